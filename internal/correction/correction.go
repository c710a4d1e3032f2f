// Package correction defines named formula deltas and the plain-text
// correction list format: one formula per line, parsed independently.
package correction

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lilyanlefevre/formula-corrector/internal/formula"
)

// Correction is a composition delta applied to a measured formula.
type Correction struct {
	Formula formula.Formula `json:"formula"`
}

// New wraps f.
func New(f formula.Formula) Correction {
	return Correction{Formula: f}
}

// Parse reads a correction from formula text.
func Parse(text string) Correction {
	return Correction{Formula: formula.Parse(text)}
}

// Name is the canonical string of the delta; it identifies the correction
// and is its grouping key.
func (c Correction) Name() string {
	return c.Formula.String()
}

// ReadList parses every line as a correction. A blank line is the zero delta.
// On a read error the result is empty.
func ReadList(r io.Reader) ([]Correction, error) {
	scanner := bufio.NewScanner(r)
	out := make([]Correction, 0, 32)
	for scanner.Scan() {
		out = append(out, Parse(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return []Correction{}, fmt.Errorf("reading corrections: %w", err)
	}
	return out, nil
}

// ParseList is ReadList over an in-memory string.
func ParseList(text string) []Correction {
	list, _ := ReadList(strings.NewReader(text))
	return list
}

// LoadFile reads a correction list from disk. On failure the result is empty
// and err describes the cause.
func LoadFile(path string) ([]Correction, error) {
	f, err := os.Open(path)
	if err != nil {
		return []Correction{}, fmt.Errorf("opening corrections file %s: %w", path, err)
	}
	defer f.Close()
	return ReadList(f)
}

// Format renders corrections in canonical form, one per line.
func Format(list []Correction) string {
	names := make([]string, len(list))
	for i, c := range list {
		names[i] = c.Name()
	}
	return strings.Join(names, "\n")
}

// Dedupe drops later corrections whose canonical name was already seen.
func Dedupe(list []Correction) []Correction {
	seen := make(map[string]struct{}, len(list))
	out := make([]Correction, 0, len(list))
	for _, c := range list {
		if _, ok := seen[c.Name()]; ok {
			continue
		}
		seen[c.Name()] = struct{}{}
		out = append(out, c)
	}
	return out
}
