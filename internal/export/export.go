// Package export renders match results and correction statistics as
// semicolon-delimited files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lilyanlefevre/formula-corrector/internal/compound"
	"github.com/lilyanlefevre/formula-corrector/internal/matcher"
	"github.com/lilyanlefevre/formula-corrector/internal/stats"
)

const (
	resultsPrefix = "results_"
	noMatches     = "-"
)

var (
	resultsHeader = []string{"ID", "m/z", "Original Formula", "Matches"}
	statsHeader   = []string{"Correction", "Times Used"}
)

// DefaultResultsPath places results_<name>.csv next to the input file.
func DefaultResultsPath(inputPath string) string {
	base := filepath.Base(inputPath)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(inputPath), resultsPrefix+name+".csv")
}

// MatchCell renders the matches of one compound, or "-" when there are none:
//
//	[correction = <K> result = (ID <id>) <formula>, ...]
func MatchCell(matches []matcher.Result) string {
	if len(matches) == 0 {
		return noMatches
	}
	var b strings.Builder
	b.WriteString("[")
	for _, m := range matches {
		fmt.Fprintf(&b, "correction = %s result = (ID %s) %s, ", m.Applied, m.Matched.ID, m.Candidate())
	}
	b.WriteString("]")
	return b.String()
}

// WriteResults writes one row per compound, in compound order.
func WriteResults(w io.Writer, compounds []compound.Entry, results []matcher.Result) error {
	byID := make(map[string][]matcher.Result)
	for _, r := range results {
		byID[r.Original.ID] = append(byID[r.Original.ID], r)
	}

	cw := newWriter(w)
	if err := cw.Write(resultsHeader); err != nil {
		return fmt.Errorf("writing results header: %w", err)
	}
	for _, c := range compounds {
		row := []string{c.ID, c.MZText(), c.Canonical(), MatchCell(byID[c.ID])}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing results row %s: %w", c.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteResultsFile writes the results export to path.
func WriteResultsFile(path string, compounds []compound.Entry, results []matcher.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating results file %s: %w", path, err)
	}
	if err := WriteResults(f, compounds, results); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteStats writes one row per correction followed by a total row.
func WriteStats(w io.Writer, list []stats.CorrectionStats) error {
	cw := newWriter(w)
	if err := cw.Write(statsHeader); err != nil {
		return fmt.Errorf("writing stats header: %w", err)
	}
	for _, s := range list {
		if err := cw.Write([]string{s.Correction.Name(), strconv.Itoa(s.TimesUsed)}); err != nil {
			return fmt.Errorf("writing stats row: %w", err)
		}
	}
	if err := cw.Write([]string{"Total", strconv.Itoa(stats.Total(list))}); err != nil {
		return fmt.Errorf("writing stats total: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

func newWriter(w io.Writer) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	return cw
}
