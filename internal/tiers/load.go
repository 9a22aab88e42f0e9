package tiers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Default is the built-in tier ladder used when no tier file is configured.
func Default() *Table {
	return MustNew([]Definition{
		{Name: "Bronze", MinLifetime: 0, Multiplier: 1.0, Color: "#cd7f32"},
		{Name: "Silver", MinLifetime: 500, Multiplier: 1.25, Color: "#c0c0c0"},
		{Name: "Gold", MinLifetime: 2_000, Multiplier: 1.5, Color: "#ffd700"},
		{Name: "Platinum", MinLifetime: 5_000, Multiplier: 2.0, Color: "#e5e4e2"},
	})
}

type fileFormat struct {
	Tiers []Definition `yaml:"tiers"`
}

// Parse reads a YAML tier document:
//
//	tiers:
//	  - name: Bronze
//	    min_lifetime: 0
//	    multiplier: 1
func Parse(r io.Reader) (*Table, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc fileFormat

	err := dec.Decode(&doc)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyTable
		}

		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	t, err := New(doc.Tiers)
	if err != nil {
		return nil, fmt.Errorf("build table: %w", err)
	}

	return t, nil
}

// LoadFile parses the tier file at path. An empty path yields Default().
func LoadFile(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tiers file: %w", err)
	}

	t, err := Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return t, nil
}
