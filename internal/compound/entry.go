// Package compound holds measured compound records, the canonical-formula
// index built over them, and the CSV loader that produces them.
package compound

import (
	"math"
	"strconv"
	"strings"

	"github.com/lilyanlefevre/formula-corrector/internal/formula"
)

// Entry is a single measured compound.
type Entry struct {
	ID               string           `json:"id"`
	MZ               float64          `json:"mz"`
	OriginalFormula  formula.Formula  `json:"original_formula"`
	CorrectedFormula *formula.Formula `json:"corrected_formula,omitempty"`
}

// NumericID interprets the ID as an integer. ok is false for non-numeric IDs.
func (e Entry) NumericID() (id int, ok bool) {
	n, err := strconv.Atoi(e.ID)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Canonical returns the canonical string of the original formula.
func (e Entry) Canonical() string {
	return e.OriginalFormula.String()
}

// MZText renders the m/z value with FormatMZ.
func (e Entry) MZText() string {
	return FormatMZ(e.MZ)
}

// FormatMZ renders a double in JVM style: shortest round-trip digits with at
// least one fraction digit, switching to E notation outside [1e-3, 1e7).
func FormatMZ(mz float64) string {
	switch {
	case math.IsNaN(mz):
		return "NaN"
	case math.IsInf(mz, 1):
		return "Infinity"
	case math.IsInf(mz, -1):
		return "-Infinity"
	}
	if abs := math.Abs(mz); abs == 0 || (abs >= 1e-3 && abs < 1e7) {
		s := strconv.FormatFloat(mz, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}
	mant, exp, _ := strings.Cut(strconv.FormatFloat(mz, 'E', -1, 64), "E")
	if !strings.Contains(mant, ".") {
		mant += ".0"
	}
	n, _ := strconv.Atoi(exp)
	return mant + "E" + strconv.Itoa(n)
}
