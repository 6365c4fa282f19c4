// bench - CELESTE MAP benchmark runner
//
// For every map file given (or every *.bin under the given directories):
//   - Decode and encode time, averaged over --runs passes
//   - Whether the file re-encodes byte for byte
//   - Size of the binary form against the JSON, YAML and CBOR snapshots
//
// Output: CSV and markdown summary
package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/pflag"

	"github.com/Neumenon/celestemap/celestemap"
)

type CaseResult struct {
	Name       string
	Bytes      int
	Levels     int
	DecodeTime time.Duration
	EncodeTime time.Duration
	Identical  bool
	JSONBytes  int
	YAMLBytes  int
	CBORBytes  int
}

func main() {
	var csvPath, mdPath string
	var runs int
	fs := pflag.NewFlagSet("bench", pflag.ContinueOnError)
	fs.StringVar(&csvPath, "csv", "bench_results.csv", "CSV output path")
	fs.StringVar(&mdPath, "markdown", "BENCH.md", "markdown output path")
	fs.IntVar(&runs, "runs", 10, "decode/encode passes per file")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return
		}
		os.Exit(2)
	}
	if runs < 1 {
		runs = 1
	}

	files, err := collectFiles(fs.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot list maps: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "usage: bench [--runs=N] [--csv=PATH] [--markdown=PATH] map.bin|dir ...")
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "CELESTE MAP Benchmark Runner\n")
	fmt.Fprintf(os.Stderr, "============================\n")
	fmt.Fprintf(os.Stderr, "Corpus: %d files, %d runs each\n\n", len(files), runs)

	var results []CaseResult
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Skip %s: %v\n", path, err)
			continue
		}
		r, err := measure(filepath.Base(path), data, runs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Skip %s: %v\n", path, err)
			continue
		}
		results = append(results, r)
	}

	csvFile, err := os.Create(csvPath)
	if err == nil {
		writeCSV(csvFile, results)
		csvFile.Close()
		fmt.Fprintf(os.Stderr, "CSV written to: %s\n", csvPath)
	}

	mdFile, err := os.Create(mdPath)
	if err == nil {
		writeMarkdown(mdFile, results, runs)
		mdFile.Close()
		fmt.Fprintf(os.Stderr, "Markdown written to: %s\n", mdPath)
	}

	var totalBytes, identical int
	var totalDecode, totalEncode time.Duration
	for _, r := range results {
		totalBytes += r.Bytes
		totalDecode += r.DecodeTime
		totalEncode += r.EncodeTime
		if r.Identical {
			identical++
		}
	}
	fmt.Printf("\n=== SUMMARY ===\n")
	fmt.Printf("Files:      %d (%d bytes)\n", len(results), totalBytes)
	fmt.Printf("Identical:  %d/%d\n", identical, len(results))
	fmt.Printf("Decode:     %s total, %s\n", totalDecode, throughput(totalBytes, totalDecode))
	fmt.Printf("Encode:     %s total, %s\n", totalEncode, throughput(totalBytes, totalEncode))
}

// collectFiles expands directories to the map files they contain.
func collectFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && filepath.Ext(path) == ".bin" {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}

func measure(name string, data []byte, runs int) (CaseResult, error) {
	r := CaseResult{Name: name, Bytes: len(data)}

	var m *celestemap.Map
	start := time.Now()
	for i := 0; i < runs; i++ {
		var err error
		if m, err = celestemap.Decode(data); err != nil {
			return r, err
		}
	}
	r.DecodeTime = time.Since(start) / time.Duration(runs)
	r.Levels = len(m.Levels)

	var out []byte
	start = time.Now()
	for i := 0; i < runs; i++ {
		var err error
		if out, err = celestemap.Encode(m); err != nil {
			return r, err
		}
	}
	r.EncodeTime = time.Since(start) / time.Duration(runs)
	r.Identical = bytes.Equal(out, data)

	d, err := m.ToDocument()
	if err != nil {
		return r, err
	}
	for _, s := range []struct {
		format celestemap.Format
		size   *int
	}{
		{celestemap.FormatJSON, &r.JSONBytes},
		{celestemap.FormatYAML, &r.YAMLBytes},
		{celestemap.FormatCBOR, &r.CBORBytes},
	} {
		snap, err := celestemap.MarshalTree(d.Root, s.format)
		if err != nil {
			return r, err
		}
		*s.size = len(snap)
	}
	return r, nil
}

func throughput(n int, d time.Duration) string {
	if d <= 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.1f MB/s", float64(n)/d.Seconds()/1e6)
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

func writeCSV(w io.Writer, results []CaseResult) {
	fmt.Fprintln(w, "name,bytes,levels,decode_us,encode_us,identical,json_bytes,yaml_bytes,cbor_bytes")
	for _, r := range results {
		fmt.Fprintf(w, "%s,%d,%d,%d,%d,%t,%d,%d,%d\n",
			r.Name, r.Bytes, r.Levels, r.DecodeTime.Microseconds(), r.EncodeTime.Microseconds(),
			r.Identical, r.JSONBytes, r.YAMLBytes, r.CBORBytes)
	}
}

func writeMarkdown(w io.Writer, results []CaseResult, runs int) {
	fmt.Fprintf(w, "# CELESTE MAP Benchmark Results\n\n")
	fmt.Fprintf(w, "**Date:** %s  \n", time.Now().Format("2006-01-02"))
	fmt.Fprintf(w, "**Corpus:** %d files, %d runs each  \n\n", len(results), runs)

	var totalBytes, totalJSON, totalCBOR int
	for _, r := range results {
		totalBytes += r.Bytes
		totalJSON += r.JSONBytes
		totalCBOR += r.CBORBytes
	}
	fmt.Fprintf(w, "## Summary\n\n")
	fmt.Fprintf(w, "| Metric | Binary | JSON snapshot | CBOR snapshot |\n")
	fmt.Fprintf(w, "|--------|--------|---------------|---------------|\n")
	fmt.Fprintf(w, "| **Bytes** | %d | %d (%.1fx) | %d (%.1fx) |\n\n",
		totalBytes, totalJSON, ratio(totalJSON, totalBytes), totalCBOR, ratio(totalCBOR, totalBytes))

	fmt.Fprintf(w, "### Slowest Decodes\n\n")
	sorted := make([]CaseResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].DecodeTime > sorted[j].DecodeTime
	})
	fmt.Fprintf(w, "| Map | Bytes | Decode | Encode |\n")
	fmt.Fprintf(w, "|-----|-------|--------|--------|\n")
	for i := 0; i < min(5, len(sorted)); i++ {
		r := sorted[i]
		fmt.Fprintf(w, "| %s | %d | %s | %s |\n", r.Name, r.Bytes, r.DecodeTime, r.EncodeTime)
	}

	fmt.Fprintf(w, "\n### Maps That Do Not Round Trip\n\n")
	var differ []CaseResult
	for _, r := range results {
		if !r.Identical {
			differ = append(differ, r)
		}
	}
	if len(differ) == 0 {
		fmt.Fprintf(w, "_None - every map re-encodes byte for byte._\n\n")
	} else {
		for _, r := range differ {
			fmt.Fprintf(w, "- %s\n", r.Name)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "## Detailed Results\n\n")
	fmt.Fprintf(w, "| Map | Bytes | Levels | Decode | Encode | JSON | YAML | CBOR |\n")
	fmt.Fprintf(w, "|-----|-------|--------|--------|--------|------|------|------|\n")
	for _, r := range results {
		fmt.Fprintf(w, "| %s | %d | %d | %s | %s | %d | %d | %d |\n",
			truncateName(r.Name, 25), r.Bytes, r.Levels, r.DecodeTime, r.EncodeTime,
			r.JSONBytes, r.YAMLBytes, r.CBORBytes)
	}
}

func truncateName(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
