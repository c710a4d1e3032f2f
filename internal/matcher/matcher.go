// Package matcher applies every correction to every compound and reports the
// corrected formulas that exist elsewhere in the dataset.
package matcher

import (
	"github.com/lilyanlefevre/formula-corrector/internal/compound"
	"github.com/lilyanlefevre/formula-corrector/internal/correction"
	"github.com/lilyanlefevre/formula-corrector/internal/formula"
)

// Result states that Original.OriginalFormula + Applied has the same canonical
// form as Matched.OriginalFormula.
type Result struct {
	Original compound.Entry  `json:"original"`
	Matched  compound.Entry  `json:"matched"`
	Applied  formula.Formula `json:"applied_correction"`
}

// Candidate returns the corrected formula the match was found for.
func (r Result) Candidate() formula.Formula {
	return r.Original.OriginalFormula.Add(r.Applied)
}

// Options tunes matching. The zero value keeps self matches.
type Options struct {
	// ExcludeSelf drops hits where the indexed compound is the compound being
	// corrected, identified by input position.
	ExcludeSelf bool `json:"exclude_self" yaml:"excludeSelf"`
}

// Match evaluates every (compound, correction) pair. Output order is
// compounds in input order, then corrections in input order. idx must have
// been built from compounds for ExcludeSelf to be meaningful.
func Match(compounds []compound.Entry, corrections []correction.Correction, idx *compound.Index, opts Options) []Result {
	results := make([]Result, 0, len(compounds))
	for i, c := range compounds {
		for _, corr := range corrections {
			candidate := c.OriginalFormula.Add(corr.Formula)
			matched, pos, ok := idx.Lookup(candidate.String())
			if !ok {
				continue
			}
			if opts.ExcludeSelf && pos == i {
				continue
			}
			results = append(results, Result{
				Original: c,
				Matched:  matched,
				Applied:  corr.Formula,
			})
		}
	}
	return results
}

// MatchAll builds the index from compounds and runs Match.
func MatchAll(compounds []compound.Entry, corrections []correction.Correction, opts Options) []Result {
	return Match(compounds, corrections, compound.BuildIndex(compounds), opts)
}
