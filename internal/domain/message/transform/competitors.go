package transform

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Competitors is the operator's own handle and the handles to rewrite
type Competitors struct {
	OwnHandle   string   `yaml:"own_handle"`
	Competitors []string `yaml:"competitors"`
}

// LoadCompetitors reads the competitors file. A missing file yields an
// empty list.
func LoadCompetitors(path string) (*Competitors, error) {
	if path == "" {
		return &Competitors{}, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Competitors{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read competitors file: %w", err)
	}

	var c Competitors
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse competitors file: %w", err)
	}

	handles := make([]string, 0, len(c.Competitors))
	for _, h := range c.Competitors {
		if n := NormalizeHandle(h); n != "" {
			handles = append(handles, n)
		}
	}
	c.Competitors = handles
	c.OwnHandle = NormalizeHandle(c.OwnHandle)
	return &c, nil
}
