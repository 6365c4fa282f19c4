package celestemap

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is a named set of codec options kept in a YAML file, for
// tools that handle maps written by different editors:
//
//	header: true
//	trimmed_rows: true
//	fresh_string_table: false
//	max_depth: 512
type Profile struct {
	// Header selects whether documents carry the format marker.
	// Defaults to true.
	Header *bool `yaml:"header,omitempty"`

	// TrimmedRows accepts tile rows with trailing empty tiles left out.
	TrimmedRows bool `yaml:"trimmed_rows"`

	// FreshStringTable rebuilds the string table in first-use order on
	// store.
	FreshStringTable bool `yaml:"fresh_string_table"`

	// MaxDepth limits element nesting on decode; 0 keeps the default.
	MaxDepth int `yaml:"max_depth,omitempty"`
}

// ParseProfile parses a YAML profile. Unknown keys are rejected.
func ParseProfile(data []byte) (*Profile, error) {
	var p Profile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadProfile reads a YAML profile from path.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return ParseProfile(data)
}

// Validate checks the profile for errors.
func (p *Profile) Validate() error {
	var errs []error
	if p.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("max_depth must not be negative, got %d", p.MaxDepth))
	}
	if p.MaxDepth > 1<<16 {
		errs = append(errs, fmt.Errorf("max_depth must be at most %d, got %d", 1<<16, p.MaxDepth))
	}
	return errors.Join(errs...)
}

// Options returns the codec options the profile selects.
func (p *Profile) Options() []Option {
	var opts []Option
	if p.Header != nil && !*p.Header {
		opts = append(opts, WithoutHeader())
	}
	if p.TrimmedRows {
		opts = append(opts, WithTrimmedRows())
	}
	if p.FreshStringTable {
		opts = append(opts, WithFreshStringTable())
	}
	if p.MaxDepth > 0 {
		opts = append(opts, WithMaxDepth(p.MaxDepth))
	}
	return opts
}
