package compound

// Index maps a canonical formula string to one compound. When two compounds
// share a canonical formula the later one wins; the shadowed ones are kept
// only in Collisions for diagnostics.
type Index struct {
	entries    []Entry
	byFormula  map[string]int
	collisions []Collision
}

// Collision records a compound that was shadowed in the index by a later
// compound with the same canonical formula.
type Collision struct {
	Formula  string `json:"formula"`
	Shadowed int    `json:"shadowed"`
	Winner   int    `json:"winner"`
}

// BuildIndex indexes entries in input order. The slice is retained, not
// copied; callers must not mutate it while the index is in use.
func BuildIndex(entries []Entry) *Index {
	idx := &Index{
		entries:   entries,
		byFormula: make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		key := e.Canonical()
		if prev, exists := idx.byFormula[key]; exists {
			idx.collisions = append(idx.collisions, Collision{
				Formula:  key,
				Shadowed: prev,
				Winner:   i,
			})
		}
		idx.byFormula[key] = i
	}
	return idx
}

// Lookup returns the indexed entry for a canonical formula together with its
// position in the slice the index was built from.
func (idx *Index) Lookup(canonical string) (Entry, int, bool) {
	pos, ok := idx.byFormula[canonical]
	if !ok {
		return Entry{}, -1, false
	}
	return idx.entries[pos], pos, true
}

// Len returns the number of distinct canonical formulas.
func (idx *Index) Len() int {
	return len(idx.byFormula)
}

// Collisions lists every overwrite performed while building, in build order.
func (idx *Index) Collisions() []Collision {
	out := make([]Collision, len(idx.collisions))
	copy(out, idx.collisions)
	return out
}
