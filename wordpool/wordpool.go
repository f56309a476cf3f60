// Package wordpool loads the list of words boards are dealt from.
package wordpool

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bcspragu/Switchboard"
)

//go:embed words.txt
var defaultWords []byte

// Default returns the built-in word list.
func Default() []string {
	words, err := parseLines(defaultWords)
	if err != nil {
		// The embedded list is newline separated and can't fail to scan.
		panic(err)
	}
	return dedupe(words)
}

type namesFile struct {
	Names []string `yaml:"names"`
}

// Load reads a word pool from path. Files ending in .yaml or .yml hold a
// top-level "names" list, anything else is one word per line. Blank lines and
// repeats are dropped, and the pool must hold at least a board's worth of
// words.
func Load(path string) ([]string, error) {
	dat, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read word pool: %w", err)
	}

	var words []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var nf namesFile
		if err := yaml.Unmarshal(dat, &nf); err != nil {
			return nil, fmt.Errorf("failed to parse word pool %q: %w", path, err)
		}
		words = nf.Names
	default:
		if words, err = parseLines(dat); err != nil {
			return nil, fmt.Errorf("failed to read word pool %q: %w", path, err)
		}
	}

	words = dedupe(words)
	if len(words) < switchboard.Size {
		return nil, fmt.Errorf("word pool %q has %d distinct words, need %d: %w", path, len(words), switchboard.Size, switchboard.ErrInsufficientWords)
	}
	return words, nil
}

func parseLines(dat []byte) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(dat))
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// dedupe trims words and drops blanks and case-insensitive repeats, keeping
// the first occurrence.
func dedupe(words []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		key := strings.ToLower(w)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, w)
	}
	return out
}
