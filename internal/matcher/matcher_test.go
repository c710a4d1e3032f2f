package matcher

import (
	"fmt"
	"testing"

	"github.com/lilyanlefevre/formula-corrector/internal/compound"
	"github.com/lilyanlefevre/formula-corrector/internal/correction"
	"github.com/lilyanlefevre/formula-corrector/internal/formula"
)

func entry(id string, mz float64, f string) compound.Entry {
	return compound.Entry{ID: id, MZ: mz, OriginalFormula: formula.Parse(f)}
}

func corrections(lines ...string) []correction.Correction {
	out := make([]correction.Correction, len(lines))
	for i, l := range lines {
		out[i] = correction.Parse(l)
	}
	return out
}

func TestMatchGlucoseHydration(t *testing.T) {
	compounds := []compound.Entry{
		entry("1", 100.0, "C6H12O6"),
		entry("2", 118.0, "C6H14O7"),
	}
	results := MatchAll(compounds, corrections("H2O1"), Options{})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.Original.ID != "1" || r.Matched.ID != "2" || r.Applied.String() != "C0H2Cl0N0O1P0S0" {
		t.Fatalf("unexpected result %+v", r)
	}
	if !r.Candidate().Equal(compounds[1].OriginalFormula) {
		t.Fatalf("candidate %s does not equal matched formula", r.Candidate())
	}
}

func TestMatchZeroDeltaDuplicates(t *testing.T) {
	compounds := []compound.Entry{
		entry("1", 100.0, "C6H12O6"),
		entry("2", 100.1, "C6H12O6"),
	}
	zero := corrections("C0H0N0O0S0P0Cl0")

	// The index keeps the last duplicate, so both compounds resolve to "2";
	// for "2" that is a self match.
	results := MatchAll(compounds, zero, Options{})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Original.ID != "1" || results[0].Matched.ID != "2" {
		t.Errorf("results[0] = %s -> %s", results[0].Original.ID, results[0].Matched.ID)
	}
	if results[1].Original.ID != "2" || results[1].Matched.ID != "2" {
		t.Errorf("results[1] = %s -> %s", results[1].Original.ID, results[1].Matched.ID)
	}

	filtered := MatchAll(compounds, zero, Options{ExcludeSelf: true})
	if len(filtered) != 1 || filtered[0].Original.ID != "1" || filtered[0].Matched.ID != "2" {
		t.Fatalf("ExcludeSelf kept %+v", filtered)
	}
}

func TestMatchSelfRetainedByDefault(t *testing.T) {
	compounds := []compound.Entry{entry("1", 100.0, "C6H12O6")}
	results := MatchAll(compounds, corrections("C0", "H2O1"), Options{})
	if len(results) != 1 || results[0].Original.ID != "1" || results[0].Matched.ID != "1" {
		t.Fatalf("expected a single self match, got %+v", results)
	}
	if got := MatchAll(compounds, corrections("C0"), Options{ExcludeSelf: true}); len(got) != 0 {
		t.Fatalf("expected self match filtered, got %+v", got)
	}
}

func TestMatchNegativeCandidatesNeverMatch(t *testing.T) {
	compounds := []compound.Entry{
		entry("1", 28.0, "C1H2"),
		entry("2", 30.0, "C2H4O1"),
	}
	results := MatchAll(compounds, corrections("C-2H-4O-1"), Options{})
	// C2H4O1 - C2H4O1 = zero, which is not a compound; C1H2 goes negative.
	if len(results) != 0 {
		t.Fatalf("expected no results, got %+v", results)
	}
}

func TestMatchOrderAndMultiplicity(t *testing.T) {
	compounds := []compound.Entry{
		entry("10", 1, "C2H4"),
		entry("11", 2, "C2H6"),
		entry("12", 3, "C2H4O1"),
		entry("13", 4, "C3H6"),
	}
	corrs := corrections("O1", "H2", "C1H2", "N1")
	results := MatchAll(compounds, corrs, Options{})

	type pair struct{ from, to, corr string }
	want := []pair{
		{"10", "12", "O1"},
		{"10", "11", "H2"},
		{"10", "13", "C1H2"},
	}
	if len(results) != len(want) {
		t.Fatalf("expected %d results, got %d: %+v", len(want), len(results), results)
	}
	for i, w := range want {
		r := results[i]
		if r.Original.ID != w.from || r.Matched.ID != w.to || !r.Applied.Equal(formula.Parse(w.corr)) {
			t.Errorf("results[%d] = %s->%s via %s, want %s->%s via %s",
				i, r.Original.ID, r.Matched.ID, r.Applied, w.from, w.to, w.corr)
		}
	}
}

// TestMatchExhaustive checks the result set against a brute-force scan of
// every pair.
func TestMatchExhaustive(t *testing.T) {
	compounds := []compound.Entry{
		entry("1", 0, "C1H4"),
		entry("2", 0, "C2H6"),
		entry("3", 0, "C1H4O1"),
		entry("4", 0, "C2H6O1"),
		entry("5", 0, "C1H2O2"),
		entry("6", 0, "C0H2O1"),
	}
	corrs := corrections("O1", "C1H2", "H-2O1", "C-1H-2", "C0")
	results := MatchAll(compounds, corrs, Options{})

	canon := make(map[string]bool)
	for _, c := range compounds {
		canon[c.Canonical()] = true
	}
	expected := 0
	for _, c := range compounds {
		for _, k := range corrs {
			if canon[c.OriginalFormula.Add(k.Formula).String()] {
				expected++
			}
		}
	}
	if len(results) != expected {
		t.Fatalf("expected %d results, got %d", expected, len(results))
	}
	for _, r := range results {
		if r.Candidate().String() != r.Matched.Canonical() {
			t.Errorf("inconsistent result %s + %s != %s", r.Original.Canonical(), r.Applied, r.Matched.Canonical())
		}
	}
}

func TestMatchEmptyInputs(t *testing.T) {
	if got := MatchAll(nil, corrections("H2O1"), Options{}); len(got) != 0 {
		t.Errorf("expected no results for no compounds")
	}
	if got := MatchAll([]compound.Entry{entry("1", 1, "C1")}, nil, Options{}); len(got) != 0 {
		t.Errorf("expected no results for no corrections")
	}
}

func TestMatchDoesNotMutateInputs(t *testing.T) {
	compounds := []compound.Entry{entry("1", 1, "C1H2"), entry("2", 2, "C1H4")}
	corrs := corrections("H2")
	before := compounds[0].Canonical() + compounds[1].Canonical() + corrs[0].Name()
	MatchAll(compounds, corrs, Options{})
	after := compounds[0].Canonical() + compounds[1].Canonical() + corrs[0].Name()
	if before != after {
		t.Fatalf("inputs changed")
	}
}

func TestSummarize(t *testing.T) {
	compounds := []compound.Entry{
		entry("1", 1, "C2H4"),
		entry("2", 2, "C2H6"),
		entry("3", 3, "C2H4O1"),
		entry("4", 4, "C2H8"),
	}
	results := MatchAll(compounds, corrections("H2", "O1"), Options{})
	// 1 -> 2 (H2), 1 -> 3 (O1), 2 -> 4 (H2)
	s := Summarize(results)
	if s.TotalMatches != 3 || s.CompoundsMatched != 2 || s.CompoundsMultiple != 1 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if s.PerCompound[0].ID != "1" || s.PerCompound[0].Matches != 2 || s.PerCompound[1].ID != "2" {
		t.Fatalf("unexpected per-compound %+v", s.PerCompound)
	}
	if got := ForCompound(results, "1"); len(got) != 2 || got[0].Matched.ID != "2" || got[1].Matched.ID != "3" {
		t.Fatalf("ForCompound(1) = %+v", got)
	}
	if got := Counts(results); got["1"] != 2 || got["2"] != 1 || got["3"] != 0 {
		t.Fatalf("Counts = %v", got)
	}
	if s := Summarize(nil); s.TotalMatches != 0 || len(s.PerCompound) != 0 {
		t.Fatalf("empty summary %+v", s)
	}
}

func TestFilter(t *testing.T) {
	compounds := []compound.Entry{
		entry("1", 100.5, "C2H4"),
		entry("2", 118, "C2H6"),
		entry("3", 7, "N2"),
	}
	results := MatchAll(compounds, corrections("H2"), Options{})

	cases := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"100.5", 1},
		{"118.0", 1},
		{"n2o0", 1},
		{"c0h2cl0", 1}, // the correction applied by compound 1
		{"zzz", 0},
	}
	for _, c := range cases {
		if got := Filter(compounds, results, c.query); len(got) != c.want {
			t.Errorf("Filter(%q) returned %d, want %d", c.query, len(got), c.want)
		}
	}
}

func BenchmarkMatch(b *testing.B) {
	compounds := make([]compound.Entry, 0, 2000)
	for i := 0; i < 2000; i++ {
		compounds = append(compounds, entry("x", 0, fmt.Sprintf("C%dH%dO%d", i%40, i%80, i%7)))
	}
	corrs := correction.Defaults()
	idx := compound.BuildIndex(compounds)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Match(compounds, corrs, idx, Options{})
	}
}
