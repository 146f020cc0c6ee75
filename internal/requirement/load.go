package requirement

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultCatalogYAML []byte

type catalogFile struct {
	Requirements []Item `yaml:"requirements"`
}

// Parse decodes a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("requirement: decode catalog: %w", err)
	}
	if len(f.Requirements) == 0 {
		return nil, fmt.Errorf("requirement: catalog is empty")
	}
	return NewCatalog(f.Requirements)
}

// Default returns a fresh copy of the built-in To-Do List checklist.
func Default() *Catalog {
	c, err := Parse(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("requirement: built-in catalog: %v", err))
	}
	return c
}

// Load reads a catalog from path, or returns the built-in one when path is empty.
func Load(path string) (*Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("requirement: read catalog %s: %w", path, err)
	}
	return Parse(data)
}
