// Package stats ranks corrections by how often they produced a match.
package stats

import (
	"sort"

	"github.com/lilyanlefevre/formula-corrector/internal/compound"
	"github.com/lilyanlefevre/formula-corrector/internal/correction"
	"github.com/lilyanlefevre/formula-corrector/internal/matcher"
)

// Pair is one (original, matched) couple produced by a correction.
type Pair struct {
	Original compound.Entry `json:"original"`
	Matched  compound.Entry `json:"matched"`
}

// CorrectionStats aggregates the matches of a single correction.
type CorrectionStats struct {
	Correction       correction.Correction `json:"correction"`
	TimesUsed        int                   `json:"times_used"`
	MatchedCompounds []Pair                `json:"matched_compounds"`
}

// Aggregate groups results by the canonical string of the applied correction.
// Pairs keep their relative order from results. The list is sorted by
// TimesUsed descending; equal counts sort by ascending canonical string.
func Aggregate(results []matcher.Result) []CorrectionStats {
	groups := make(map[string]*CorrectionStats)
	for _, r := range results {
		key := r.Applied.String()
		g, ok := groups[key]
		if !ok {
			g = &CorrectionStats{Correction: correction.New(r.Applied)}
			groups[key] = g
		}
		g.TimesUsed++
		g.MatchedCompounds = append(g.MatchedCompounds, Pair{Original: r.Original, Matched: r.Matched})
	}

	out := make([]CorrectionStats, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TimesUsed != out[j].TimesUsed {
			return out[i].TimesUsed > out[j].TimesUsed
		}
		return out[i].Correction.Name() < out[j].Correction.Name()
	})
	return out
}

// Total is the number of corrections applied across all stats.
func Total(list []CorrectionStats) int {
	total := 0
	for _, s := range list {
		total += s.TimesUsed
	}
	return total
}

// Top returns at most n leading entries.
func Top(list []CorrectionStats, n int) []CorrectionStats {
	if n <= 0 || len(list) <= n {
		return list
	}
	return list[:n]
}
