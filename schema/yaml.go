package schema

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
)

// ParseYAML decodes a snapshot and links it. Unknown fields are rejected so
// that typos in hand-written snapshots surface early.
func ParseYAML(r io.Reader) (*Schema, error) {
	var s Schema
	dec := yaml.NewDecoder(r, yaml.DisallowUnknownField())
	if err := dec.Decode(&s); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty schema snapshot")
		}
		return nil, err
	}
	if s.Provider != "" {
		provider, err := ParseProvider(string(s.Provider))
		if err != nil {
			return nil, err
		}
		s.Provider = provider
	}
	s.Link()
	return &s, nil
}

func ParseYAMLString(src string) (*Schema, error) {
	return ParseYAML(bytes.NewBufferString(src))
}

func LoadYAML(path string) (*Schema, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := ParseYAML(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func (s *Schema) ToYAML() (string, error) {
	buf, err := yaml.MarshalWithOptions(s, yaml.Indent(2), yaml.IndentSequence(true))
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

func (s *Schema) WriteYAML(path string) error {
	out, err := s.ToYAML()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(out), 0o644)
}
