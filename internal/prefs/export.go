// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package prefs

import (
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

// ExportYAML writes the named collection to w as a YAML sequence.
func (s *Store) ExportYAML(w io.Writer, name string) error {
	papers, err := s.List(name)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(papers); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}

// ExportJSON writes the named collection to w in the persisted format.
func (s *Store) ExportJSON(w io.Writer, name string) error {
	papers, err := s.List(name)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(papers); err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return nil
}
