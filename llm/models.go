package llm

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Mappings maps the short model names used on the command line to provider
// model IDs.
type Mappings map[string]string

// DefaultMappings is used when no mappings file can be loaded.
func DefaultMappings() Mappings {
	return Mappings{
		"gpt4":         "openai/gpt-4",
		"gpt-4o":       "openai/gpt-4o",
		"claude":       "anthropic/claude-3.5-sonnet",
		"gemini":       "google/gemini-2.5-pro",
		"gemini-2.5":   "google/gemini-2.5-pro",
		"gemini-flash": "google/gemini-2.5-flash",
	}
}

type mappingsFile struct {
	Models Mappings `yaml:"models"`
}

// LoadMappings reads a YAML file with a top-level "models" map. A missing
// file gives the default mappings.
func LoadMappings(path string) (Mappings, error) {
	dat, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultMappings(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read model mappings: %w", err)
	}

	var mf mappingsFile
	if err := yaml.Unmarshal(dat, &mf); err != nil {
		return nil, fmt.Errorf("failed to parse model mappings %q: %w", path, err)
	}
	if len(mf.Models) == 0 {
		return nil, fmt.Errorf("model mappings %q has no models", path)
	}
	return mf.Models, nil
}

// Resolve returns the provider ID for name, and whether name was known.
// Unknown names are passed through as-is.
func (m Mappings) Resolve(name string) (string, bool) {
	id, ok := m[name]
	if !ok {
		return name, false
	}
	return id, true
}

// Names lists the known short names, sorted.
func (m Mappings) Names() []string {
	var out []string
	for name := range m {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Validate checks that every name is known.
func (m Mappings) Validate(names ...string) error {
	for _, name := range names {
		if _, ok := m[name]; !ok {
			return fmt.Errorf("%w %q, known models are %v", ErrUnknownModel, name, m.Names())
		}
	}
	return nil
}
