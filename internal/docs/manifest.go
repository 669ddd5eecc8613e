package docs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Entry describes one tutorial document to verify.
type Entry struct {
	Doc string `yaml:"doc"`
	// Reference is the companion source whose body must match the last block.
	Reference   string `yaml:"reference,omitempty"`
	HeaderLines *int   `yaml:"header_lines,omitempty"`
	Language    string `yaml:"language,omitempty"`
	Exec        *bool  `yaml:"exec,omitempty"`
	// CheckContains requires every block to appear in the reference.
	CheckContains bool `yaml:"check_contains,omitempty"`
}

// Manifest lists the documents checked by docverify. Top-level fields are
// defaults for entries that leave them unset.
type Manifest struct {
	Language    string  `yaml:"language,omitempty"`
	HeaderLines *int    `yaml:"header_lines,omitempty"`
	Exec        bool    `yaml:"exec,omitempty"`
	Entries     []Entry `yaml:"entries"`
}

// LoadManifest reads a manifest. Relative paths are resolved against the
// manifest directory and defaults are applied to every entry.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) // #nosec G304 - manifest path supplied by the caller
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}

	base := filepath.Dir(path)
	for i := range m.Entries {
		e := &m.Entries[i]
		e.Doc = resolve(base, e.Doc)
		e.Reference = resolve(base, e.Reference)
		if e.Language == "" {
			e.Language = m.Language
		}
		if e.HeaderLines == nil {
			e.HeaderLines = m.HeaderLines
		}
		if e.Exec == nil && m.Exec {
			exec := true
			e.Exec = &exec
		}
	}
	return &m, nil
}

// Validate checks that every entry names a document.
func (m *Manifest) Validate() error {
	var errs []error
	if m.HeaderLines != nil && *m.HeaderLines < 0 {
		errs = append(errs, fmt.Errorf("header_lines must not be negative"))
	}
	for i, e := range m.Entries {
		if e.Doc == "" {
			errs = append(errs, fmt.Errorf("entry %d: doc is required", i))
		}
		if e.HeaderLines != nil && *e.HeaderLines < 0 {
			errs = append(errs, fmt.Errorf("entry %d: header_lines must not be negative", i))
		}
	}
	return errors.Join(errs...)
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
