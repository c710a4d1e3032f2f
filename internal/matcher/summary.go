package matcher

import (
	"strings"

	"github.com/lilyanlefevre/formula-corrector/internal/compound"
)

// CompoundMatches is the number of matches recorded for one original ID.
type CompoundMatches struct {
	ID      string `json:"id"`
	Matches int    `json:"matches"`
}

// Summary condenses a match run. Results are grouped by original ID.
type Summary struct {
	TotalMatches      int               `json:"total_matches"`
	CompoundsMatched  int               `json:"compounds_matched"`
	CompoundsMultiple int               `json:"compounds_with_multiple_matches"`
	PerCompound       []CompoundMatches `json:"per_compound"`
}

// Summarize counts matches per original ID in first-appearance order.
func Summarize(results []Result) Summary {
	s := Summary{TotalMatches: len(results)}
	pos := make(map[string]int)
	for _, r := range results {
		i, ok := pos[r.Original.ID]
		if !ok {
			i = len(s.PerCompound)
			pos[r.Original.ID] = i
			s.PerCompound = append(s.PerCompound, CompoundMatches{ID: r.Original.ID})
		}
		s.PerCompound[i].Matches++
	}
	s.CompoundsMatched = len(s.PerCompound)
	for _, pc := range s.PerCompound {
		if pc.Matches > 1 {
			s.CompoundsMultiple++
		}
	}
	return s
}

// Counts maps original ID to match count.
func Counts(results []Result) map[string]int {
	counts := make(map[string]int)
	for _, r := range results {
		counts[r.Original.ID]++
	}
	return counts
}

// ForCompound returns the results whose original has the given ID, in order.
func ForCompound(results []Result, id string) []Result {
	var out []Result
	for _, r := range results {
		if r.Original.ID == id {
			out = append(out, r)
		}
	}
	return out
}

// Filter keeps compounds where query appears, case-insensitively, in the id,
// the m/z, the canonical formula, or any "<matched id> <correction>" of the
// compound's matches. An empty query keeps everything.
func Filter(compounds []compound.Entry, results []Result, query string) []compound.Entry {
	if query == "" {
		return compounds
	}
	q := strings.ToLower(query)
	byID := make(map[string][]string)
	for _, r := range results {
		byID[r.Original.ID] = append(byID[r.Original.ID], r.Matched.ID+" "+r.Applied.String())
	}
	out := make([]compound.Entry, 0, len(compounds))
	for _, c := range compounds {
		fields := []string{
			c.ID,
			c.MZText(),
			c.Canonical(),
			strings.Join(byID[c.ID], ", "),
		}
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f), q) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}
