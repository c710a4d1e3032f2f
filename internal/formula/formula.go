// Package formula implements the atomic-composition record used throughout
// the corrector: a fixed set of seven element counts with a canonical text
// form. Two formulas are equal iff their canonical strings are equal.
package formula

import (
	"strconv"
	"strings"
)

// Element identifies one of the seven tracked element symbols.
type Element int

const (
	Carbon Element = iota
	Hydrogen
	Chlorine
	Nitrogen
	Oxygen
	Phosphorus
	Sulfur

	numElements
)

// canonical order: C H Cl N O P S.
var symbols = [numElements]string{
	Carbon:     "C",
	Hydrogen:   "H",
	Chlorine:   "Cl",
	Nitrogen:   "N",
	Oxygen:     "O",
	Phosphorus: "P",
	Sulfur:     "S",
}

// Symbol returns the element symbol, e.g. "Cl".
func (e Element) Symbol() string {
	if e < 0 || e >= numElements {
		return ""
	}
	return symbols[e]
}

// ParseElement maps a symbol to its Element. Unknown symbols report false.
func ParseElement(symbol string) (Element, bool) {
	for i, s := range symbols {
		if s == symbol {
			return Element(i), true
		}
	}
	return 0, false
}

// Elements returns every tracked element in canonical order.
func Elements() []Element {
	out := make([]Element, numElements)
	for i := range out {
		out[i] = Element(i)
	}
	return out
}

// Formula is an immutable element-count record. The zero value is the
// all-zero formula.
type Formula struct {
	counts [numElements]int
}

// Zero is the identity for Add.
var Zero = Formula{}

// Count returns the count for e.
func (f Formula) Count(e Element) int {
	if e < 0 || e >= numElements {
		return 0
	}
	return f.counts[e]
}

// Add returns the component-wise sum of f and other.
func (f Formula) Add(other Formula) Formula {
	var out Formula
	for i := range out.counts {
		out.counts[i] = f.counts[i] + other.counts[i]
	}
	return out
}

// Add returns a + b.
func Add(a, b Formula) Formula {
	return a.Add(b)
}

// IsZero reports whether every count is 0.
func (f Formula) IsZero() bool {
	return f == Zero
}

// Equal compares canonical forms.
func (f Formula) Equal(other Formula) bool {
	return f.counts == other.counts
}

// String serializes f in canonical form, always emitting all seven
// elements: C<n>H<n>Cl<n>N<n>O<n>P<n>S<n>.
func (f Formula) String() string {
	var b strings.Builder
	b.Grow(32)
	for i, sym := range symbols {
		b.WriteString(sym)
		b.WriteString(strconv.Itoa(f.counts[i]))
	}
	return b.String()
}

// MarshalText encodes f as its canonical string.
func (f Formula) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText parses text permissively, see Parse.
func (f *Formula) UnmarshalText(text []byte) error {
	*f = Parse(string(text))
	return nil
}

// Parse reads a formula from text. It scans for an uppercase letter,
// optionally followed by one lowercase letter, then an optional signed
// integer. Recognised symbols take the parsed count; a symbol without digits
// counts 0. The last occurrence of a symbol wins. Anything else is skipped,
// so Parse never fails and blank text yields Zero.
func Parse(text string) Formula {
	var f Formula
	i := 0
	for i < len(text) {
		if !isUpper(text[i]) {
			i++
			continue
		}
		j := i + 1
		if j < len(text) && isLower(text[j]) {
			j++
		}
		symbol := text[i:j]

		start := j
		if j < len(text) && (text[j] == '-' || text[j] == '+') {
			j++
		}
		digits := j
		for j < len(text) && isDigit(text[j]) {
			j++
		}

		count := 0
		if j > digits {
			if n, err := strconv.Atoi(text[start:j]); err == nil {
				count = n
			}
		}
		if e, ok := ParseElement(symbol); ok {
			f.counts[e] = count
		}
		i = j
	}
	return f
}

func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }
func isLower(c byte) bool { return c >= 'a' && c <= 'z' }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }
