// celestemap - CELESTE MAP codec CLI tool
//
// Usage:
//
//	celestemap info [file]                 Summarize levels and entities
//	celestemap dump [--format=F] [file]    Print the element tree as json, yaml or cbor
//	celestemap pack [--format=F] [file]    Build a map file from a dump
//	celestemap check [file]                Verify the file re-encodes byte for byte
//	celestemap hash [--tree] [file]        Print the BLAKE3 digest
//	celestemap version                     Print version info
//
// If no file is given, or the file is "-", reads from stdin.
package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/Neumenon/celestemap/celestemap"
)

const libVersion = "0.1.0"

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "celestemap: %v\n", err)
		os.Exit(1)
	}
}

// env carries the streams and the flags every subcommand shares.
type env struct {
	stdin          io.Reader
	stdout, stderr io.Writer

	profile string
	verbose bool
	output  string
	logger  *slog.Logger
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		printUsage(stderr)
		return errors.New("missing command")
	}
	e := &env{stdin: stdin, stdout: stdout, stderr: stderr}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "info":
		return e.cmdInfo(rest)
	case "dump":
		return e.cmdDump(rest)
	case "pack":
		return e.cmdPack(rest)
	case "check":
		return e.cmdCheck(rest)
	case "hash":
		return e.cmdHash(rest)
	case "version", "-v", "--version":
		fmt.Fprintf(stdout, "celestemap %s\n", libVersion)
		return nil
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		printUsage(stderr)
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `celestemap - CELESTE MAP codec CLI tool

Usage:
  celestemap info [file]                 Summarize levels and entities
  celestemap dump [--format=F] [file]    Print the element tree as json, yaml or cbor
  celestemap pack [--format=F] [file]    Build a map file from a dump
  celestemap check [file]                Verify the file re-encodes byte for byte
  celestemap hash [--tree] [file]        Print the BLAKE3 digest
  celestemap version                     Print version info

Common options:
  --profile=PATH      Codec options from a YAML profile
  -o, --output=PATH   Write to PATH instead of stdout
  --verbose           Log codec stages to stderr

If no file is given, reads from stdin.

Examples:
  celestemap info Maps/1-ForsakenCity.bin
  celestemap dump --format=yaml 1-ForsakenCity.bin > city.yaml
  celestemap pack --format=yaml --package=1-ForsakenCity -o city.bin city.yaml
  celestemap check --profile=loenn.yaml city.bin
`)
}

// flags creates a subcommand flag set with the shared options.
func (e *env) flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(e.stderr)
	fs.StringVar(&e.profile, "profile", "", "YAML codec profile")
	fs.StringVarP(&e.output, "output", "o", "", "output file (default: stdout)")
	fs.BoolVar(&e.verbose, "verbose", false, "log codec stages to stderr")
	return fs
}

// options builds codec options from the shared flags. Call after Parse.
func (e *env) options() ([]celestemap.Option, error) {
	var opts []celestemap.Option
	if e.profile != "" {
		p, err := celestemap.LoadProfile(e.profile)
		if err != nil {
			return nil, err
		}
		opts = p.Options()
	}
	level := slog.LevelWarn
	if e.verbose {
		level = slog.LevelDebug
	}
	e.logger = slog.New(slog.NewTextHandler(e.stderr, &slog.HandlerOptions{Level: level}))
	return append(opts, celestemap.WithLogger(e.logger)), nil
}

// input returns the bytes of the single optional file argument.
func (e *env) input(fs *pflag.FlagSet) ([]byte, error) {
	args := fs.Args()
	if len(args) > 1 {
		return nil, fmt.Errorf("%s: unexpected argument: %s", fs.Name(), args[1])
	}
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(e.stdin)
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return data, nil
}

func (e *env) write(data []byte) error {
	if e.output == "" || e.output == "-" {
		_, err := e.stdout.Write(data)
		return err
	}
	return os.WriteFile(e.output, data, 0o644)
}

func parseFormat(s string) (celestemap.Format, error) {
	for _, f := range []celestemap.Format{celestemap.FormatJSON, celestemap.FormatYAML, celestemap.FormatCBOR} {
		if strings.EqualFold(s, f.String()) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown format %q (want json, yaml or cbor)", s)
}

// ============================================================
// Commands
// ============================================================

// cmdInfo: map file -> level summary
func (e *env) cmdInfo(args []string) error {
	fs := e.flags("info")
	if err := fs.Parse(args); err != nil {
		return err
	}
	opts, err := e.options()
	if err != nil {
		return err
	}
	data, err := e.input(fs)
	if err != nil {
		return err
	}
	m, err := celestemap.Decode(data, opts...)
	if err != nil {
		return err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "package: %s\n", m.Package)
	fmt.Fprintf(&sb, "levels:  %d\n", len(m.Levels))
	fmt.Fprintf(&sb, "fillers: %d\n", len(m.Fillers))
	fmt.Fprintf(&sb, "stylegrounds: %d fg, %d bg\n", len(m.Foregrounds()), len(m.Backgrounds()))
	for _, l := range m.Levels {
		x, y, _, _ := l.Bounds()
		w, h := l.TileSize()
		fmt.Fprintf(&sb, "  %-24s at (%d, %d) %dx%d tiles, %d entities, %d triggers, %d decals\n",
			truncateName(l.Name(), 24), x, y, w, h, len(l.Entities), len(l.Triggers), len(l.FgDecals)+len(l.BgDecals))
	}
	return e.write([]byte(sb.String()))
}

// cmdDump: map file -> tree snapshot
func (e *env) cmdDump(args []string) error {
	fs := e.flags("dump")
	format := fs.String("format", "json", "snapshot format: json, yaml or cbor")
	if err := fs.Parse(args); err != nil {
		return err
	}
	f, err := parseFormat(*format)
	if err != nil {
		return err
	}
	opts, err := e.options()
	if err != nil {
		return err
	}
	data, err := e.input(fs)
	if err != nil {
		return err
	}
	d, err := celestemap.DecodeDocument(data, opts...)
	if err != nil {
		return err
	}
	out, err := celestemap.MarshalTree(d.Root, f)
	if err != nil {
		return err
	}
	if f == celestemap.FormatJSON {
		out = append(out, '\n')
	}
	return e.write(out)
}

// cmdPack: tree snapshot -> map file
func (e *env) cmdPack(args []string) error {
	fs := e.flags("pack")
	format := fs.String("format", "json", "snapshot format: json, yaml or cbor")
	pkg := fs.String("package", "", "package name written after the header")
	if err := fs.Parse(args); err != nil {
		return err
	}
	f, err := parseFormat(*format)
	if err != nil {
		return err
	}
	opts, err := e.options()
	if err != nil {
		return err
	}
	data, err := e.input(fs)
	if err != nil {
		return err
	}
	root, err := celestemap.UnmarshalTree(data, f)
	if err != nil {
		return err
	}
	out, err := celestemap.EncodeDocument(&celestemap.Document{Package: *pkg, Root: root}, opts...)
	if err != nil {
		return err
	}
	return e.write(out)
}

// cmdCheck: decode, encode and compare
func (e *env) cmdCheck(args []string) error {
	fs := e.flags("check")
	if err := fs.Parse(args); err != nil {
		return err
	}
	opts, err := e.options()
	if err != nil {
		return err
	}
	data, err := e.input(fs)
	if err != nil {
		return err
	}
	m, err := celestemap.Decode(data, opts...)
	if err != nil {
		return err
	}
	out, err := celestemap.Encode(m, opts...)
	if err != nil {
		return err
	}
	if !bytes.Equal(out, data) {
		at := 0
		for at < min(len(out), len(data)) && out[at] == data[at] {
			at++
		}
		return fmt.Errorf("round trip differs at offset %d (%d bytes in, %d bytes out)", at, len(data), len(out))
	}
	e.logger.Info("round trip ok", "bytes", len(data), "levels", len(m.Levels))
	return e.write([]byte(fmt.Sprintf("ok %s\n", celestemap.DigestBytes(data))))
}

// cmdHash: map file -> digest
func (e *env) cmdHash(args []string) error {
	fs := e.flags("hash")
	tree := fs.Bool("tree", false, "hash the element tree instead of the bytes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	opts, err := e.options()
	if err != nil {
		return err
	}
	data, err := e.input(fs)
	if err != nil {
		return err
	}
	var h celestemap.Hash
	if *tree {
		d, err := celestemap.DecodeDocument(data, opts...)
		if err != nil {
			return err
		}
		if h, err = celestemap.TreeDigest(d.Root); err != nil {
			return err
		}
	} else {
		if _, err := celestemap.DecodeDocument(data, opts...); err != nil {
			return err
		}
		h = celestemap.DigestBytes(data)
	}
	return e.write([]byte(h.String() + "\n"))
}

func truncateName(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
