// Package analysis runs a complete correction analysis over a compound
// dataset: index, match, summarise, aggregate. Optional backends cache the
// report, persist a run summary and announce completed runs.
package analysis

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"time"

	"github.com/lilyanlefevre/formula-corrector/internal/compound"
	"github.com/lilyanlefevre/formula-corrector/internal/correction"
	"github.com/lilyanlefevre/formula-corrector/internal/matcher"
	"github.com/lilyanlefevre/formula-corrector/internal/stats"
)

// Report is the full outcome of one analysis.
type Report struct {
	ID          string                  `json:"id"`
	Source      string                  `json:"source"`
	CreatedAt   time.Time               `json:"created_at"`
	Cached      bool                    `json:"cached"`
	Options     matcher.Options         `json:"options"`
	Load        compound.LoadReport     `json:"load"`
	Corrections int                     `json:"corrections"`
	Collisions  []compound.Collision    `json:"collisions,omitempty"`
	Compounds   []compound.Entry        `json:"compounds"`
	Results     []matcher.Result        `json:"results"`
	Stats       []stats.CorrectionStats `json:"stats"`
	Summary     matcher.Summary         `json:"summary"`
}

// RunSummary is the persisted and published digest of a Report.
type RunSummary struct {
	ID                string          `json:"id"`
	Source            string          `json:"source"`
	CreatedAt         time.Time       `json:"created_at"`
	Cached            bool            `json:"cached"`
	Options           matcher.Options `json:"options"`
	Compounds         int             `json:"compounds"`
	RowsDropped       int             `json:"rows_dropped"`
	Corrections       int             `json:"corrections"`
	TotalMatches      int             `json:"total_matches"`
	CompoundsMatched  int             `json:"compounds_matched"`
	CompoundsMultiple int             `json:"compounds_with_multiple_matches"`
	TopCorrection     string          `json:"top_correction,omitempty"`
}

func (r *Report) RunSummary() RunSummary {
	s := RunSummary{
		ID:                r.ID,
		Source:            r.Source,
		CreatedAt:         r.CreatedAt,
		Cached:            r.Cached,
		Options:           r.Options,
		Compounds:         len(r.Compounds),
		RowsDropped:       len(r.Load.Dropped),
		Corrections:       r.Corrections,
		TotalMatches:      r.Summary.TotalMatches,
		CompoundsMatched:  r.Summary.CompoundsMatched,
		CompoundsMultiple: r.Summary.CompoundsMultiple,
	}
	if len(r.Stats) > 0 {
		s.TopCorrection = r.Stats[0].Correction.Name()
	}
	return s
}

// Fingerprint identifies the inputs of an analysis. Equal fingerprints yield
// equal results, so it is used as the cache key.
func Fingerprint(compounds []compound.Entry, corrections []correction.Correction, opts matcher.Options) string {
	h := sha256.New()
	var buf [8]byte
	writeString := func(s string) {
		binary.BigEndian.PutUint64(buf[:], uint64(len(s)))
		h.Write(buf[:])
		h.Write([]byte(s))
	}
	for _, c := range compounds {
		writeString(c.ID)
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(c.MZ))
		h.Write(buf[:])
		writeString(c.Canonical())
	}
	h.Write([]byte{0xff})
	for _, c := range corrections {
		writeString(c.Name())
	}
	if opts.ExcludeSelf {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}
