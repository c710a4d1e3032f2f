package compound

import (
	"cmp"
	"fmt"
	"sort"
	"strings"
)

// SortKey selects the column compounds are ordered by.
type SortKey string

const (
	SortByID      SortKey = "id"
	SortByMZ      SortKey = "mz"
	SortByFormula SortKey = "formula"
	SortByMatches SortKey = "matches"
)

// ParseSortKey validates a user-supplied sort key.
func ParseSortKey(s string) (SortKey, error) {
	switch key := SortKey(strings.ToLower(strings.TrimSpace(s))); key {
	case SortByID, SortByMZ, SortByFormula, SortByMatches:
		return key, nil
	case "":
		return SortByID, nil
	default:
		return "", fmt.Errorf("unknown sort key %q", s)
	}
}

// SortOptions configures Sort. MatchCount is required for SortByMatches.
type SortOptions struct {
	Key        SortKey
	Descending bool
	MatchCount func(Entry) int
}

// Sort returns a sorted copy of entries. IDs compare numerically; numeric IDs
// order before non-numeric ones, which compare as strings. The sort is stable
// so equal keys keep their input order.
func Sort(entries []Entry, opts SortOptions) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)

	var by func(a, b Entry) int
	switch opts.Key {
	case SortByMZ:
		by = func(a, b Entry) int { return cmp.Compare(a.MZ, b.MZ) }
	case SortByFormula:
		by = func(a, b Entry) int { return strings.Compare(a.Canonical(), b.Canonical()) }
	case SortByMatches:
		count := opts.MatchCount
		if count == nil {
			count = func(Entry) int { return 0 }
		}
		by = func(a, b Entry) int { return cmp.Compare(count(a), count(b)) }
	default:
		by = compareID
	}

	sort.SliceStable(out, func(i, j int) bool {
		c := by(out[i], out[j])
		if opts.Descending {
			return c > 0
		}
		return c < 0
	})
	return out
}

func compareID(a, b Entry) int {
	na, okA := a.NumericID()
	nb, okB := b.NumericID()
	switch {
	case okA && okB:
		return cmp.Compare(na, nb)
	case okA:
		return -1
	case okB:
		return 1
	default:
		return strings.Compare(a.ID, b.ID)
	}
}
