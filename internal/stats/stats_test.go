package stats

import (
	"testing"

	"github.com/lilyanlefevre/formula-corrector/internal/compound"
	"github.com/lilyanlefevre/formula-corrector/internal/correction"
	"github.com/lilyanlefevre/formula-corrector/internal/formula"
	"github.com/lilyanlefevre/formula-corrector/internal/matcher"
)

func result(from, to, corr string) matcher.Result {
	return matcher.Result{
		Original: compound.Entry{ID: from},
		Matched:  compound.Entry{ID: to},
		Applied:  formula.Parse(corr),
	}
}

func TestAggregateEmpty(t *testing.T) {
	got := Aggregate(nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty, non-nil stats, got %v", got)
	}
	if Total(got) != 0 {
		t.Fatalf("expected zero total")
	}
}

func TestAggregateRanking(t *testing.T) {
	results := []matcher.Result{
		result("1", "2", "H2O1"),
		result("1", "3", "O1"),
		result("2", "4", "H2O1"),
		result("5", "6", "C1H2"),
		result("7", "8", "H2O1"),
		result("9", "10", "O1"),
	}
	stats := Aggregate(results)
	if len(stats) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(stats))
	}
	if Total(stats) != len(results) {
		t.Fatalf("Total = %d, want %d", Total(stats), len(results))
	}

	first := stats[0]
	if first.Correction.Name() != correction.Parse("H2O1").Name() || first.TimesUsed != 3 {
		t.Fatalf("first = %s x%d", first.Correction.Name(), first.TimesUsed)
	}
	wantPairs := [][2]string{{"1", "2"}, {"2", "4"}, {"7", "8"}}
	for i, p := range first.MatchedCompounds {
		if p.Original.ID != wantPairs[i][0] || p.Matched.ID != wantPairs[i][1] {
			t.Errorf("pair %d = %s->%s", i, p.Original.ID, p.Matched.ID)
		}
	}
	if stats[1].Correction.Name() != correction.Parse("O1").Name() || stats[1].TimesUsed != 2 {
		t.Errorf("second = %s x%d", stats[1].Correction.Name(), stats[1].TimesUsed)
	}
	if stats[2].TimesUsed != 1 {
		t.Errorf("third used %d times", stats[2].TimesUsed)
	}
}

func TestAggregateTieBreakAscendingName(t *testing.T) {
	// Canonical strings: C0H0...O1 < C0H2... < C1H2...
	results := []matcher.Result{
		result("1", "2", "C1H2"),
		result("3", "4", "H2"),
		result("5", "6", "O1"),
	}
	stats := Aggregate(results)
	want := []string{
		formula.Parse("O1").String(),
		formula.Parse("H2").String(),
		formula.Parse("C1H2").String(),
	}
	for i, s := range stats {
		if s.Correction.Name() != want[i] {
			t.Errorf("stats[%d] = %s, want %s", i, s.Correction.Name(), want[i])
		}
	}
}

func TestAggregateGroupsByCanonicalForm(t *testing.T) {
	results := []matcher.Result{
		result("1", "2", "H2O1"),
		result("3", "4", "O1H2"),
	}
	stats := Aggregate(results)
	if len(stats) != 1 || stats[0].TimesUsed != 2 {
		t.Fatalf("expected one group of 2, got %+v", stats)
	}
}

func TestTop(t *testing.T) {
	stats := Aggregate([]matcher.Result{
		result("1", "2", "H2"),
		result("1", "3", "O1"),
		result("1", "4", "N1"),
	})
	if len(Top(stats, 2)) != 2 || len(Top(stats, 0)) != 3 || len(Top(stats, 10)) != 3 {
		t.Fatalf("Top returned wrong lengths")
	}
}
