package policy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"chanfilter/internal/catalog/models"
)

// fileFormat is the on-disk YAML layout:
//
//	enabled: true
//	allowed: [0, 4]
type fileFormat struct {
	Enabled *bool  `yaml:"enabled"`
	Allowed *[]int `yaml:"allowed"`
}

// Load reads a policy file. An empty path yields the default policy. Keys
// missing from the file keep their default values.
func Load(path string) (Policy, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy file: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return Policy{}, fmt.Errorf("policy file %s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a YAML policy document.
func Parse(data []byte) (Policy, error) {
	p := Default()
	var f fileFormat
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return Policy{}, fmt.Errorf("decode policy: %w", err)
	}

	if f.Enabled != nil {
		p.Enabled = *f.Enabled
	}
	if f.Allowed != nil {
		codes := make([]int64, len(*f.Allowed))
		for i, c := range *f.Allowed {
			codes[i] = int64(c)
		}
		allowed, err := models.NewCategorySet(codes)
		if err != nil {
			return Policy{}, err
		}
		p.Allowed = allowed
	}
	return p, nil
}

// Marshal encodes p in the file format.
func Marshal(p Policy) ([]byte, error) {
	enabled := p.Enabled
	allowed := p.Allowed.Ints()
	return yaml.Marshal(fileFormat{Enabled: &enabled, Allowed: &allowed})
}
