package formula

import (
	"encoding/json"
	"testing"
)

func TestParse(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"C6H12O6", "C6H12Cl0N0O6P0S0"},
		{"C6H14O7", "C6H14Cl0N0O7P0S0"},
		{"H2O1", "C0H2Cl0N0O1P0S0"},
		{"C-2H-4O-1", "C-2H-4Cl0N0O-1P0S0"},
		{"C2H5Cl1", "C2H5Cl1N0O0P0S0"},
		{"C0H0N0O0S0P0Cl0", "C0H0Cl0N0O0P0S0"},
		{"", "C0H0Cl0N0O0P0S0"},
		{"   \t", "C0H0Cl0N0O0P0S0"},
		// bare symbol counts 0
		{"CH4", "C0H4Cl0N0O0P0S0"},
		// last occurrence wins, no summation
		{"C2H4C5", "C5H4Cl0N0O0P0S0"},
		// unknown symbols are ignored, including two-letter look-alikes
		{"Na1C3Co2Fe", "C3H0Cl0N0O0P0S0"},
		{"C+3H2", "C3H2Cl0N0O0P0S0"},
		{"C-H2", "C0H2Cl0N0O0P0S0"},
		{"\"C2H4\"", "C2H4Cl0N0O0P0S0"},
		{"c6h12", "C0H0Cl0N0O0P0S0"},
		{"S1P2N3", "C0H0Cl0N3O0P2S1"},
	}
	for _, c := range cases {
		if got := Parse(c.input).String(); got != c.want {
			t.Errorf("Parse(%q) = %s, want %s", c.input, got, c.want)
		}
	}
}

func TestParseOverflowCountsZero(t *testing.T) {
	f := Parse("C99999999999999999999999H2")
	if f.Count(Carbon) != 0 || f.Count(Hydrogen) != 2 {
		t.Fatalf("unexpected counts: %s", f)
	}
}

func TestRoundTrip(t *testing.T) {
	samples := []Formula{
		Zero,
		Parse("C6H12O6"),
		Parse("C-2H-4O-1"),
		New(map[Element]int{Carbon: 1, Hydrogen: -1, Chlorine: 7, Nitrogen: 2, Oxygen: -3, Phosphorus: 4, Sulfur: 5}),
	}
	for _, f := range samples {
		if got := Parse(f.String()); !got.Equal(f) {
			t.Errorf("round trip of %s produced %s", f, got)
		}
	}
}

func TestAddLaws(t *testing.T) {
	a := Parse("C6H12O6")
	b := Parse("H2O1")
	c := Parse("C-1H-2N1Cl3")

	if !Add(Add(a, b), c).Equal(Add(a, Add(b, c))) {
		t.Errorf("add is not associative")
	}
	if !Add(a, b).Equal(Add(b, a)) {
		t.Errorf("add is not commutative")
	}
	if !Add(a, Zero).Equal(a) {
		t.Errorf("zero is not the identity")
	}
	if got := a.Add(b).String(); got != "C6H14Cl0N0O7P0S0" {
		t.Errorf("C6H12O6 + H2O = %s", got)
	}
}

func TestNegativeCandidate(t *testing.T) {
	delta := Parse("C-2H-4O-1")
	got := Parse("C1H2").Add(delta)
	if got.String() != "C-1H-2Cl0N0O-1P0S0" {
		t.Fatalf("C1H2 + C-2H-4O-1 = %s", got)
	}
	if got.Count(Carbon) != -1 {
		t.Fatalf("carbon = %d", got.Count(Carbon))
	}
}

func TestElements(t *testing.T) {
	var joined string
	for _, e := range Elements() {
		joined += e.Symbol()
	}
	if joined != "CHClNOPS" {
		t.Fatalf("canonical order = %s", joined)
	}
	if _, ok := ParseElement("Na"); ok {
		t.Fatalf("Na should not be recognised")
	}
	if e, ok := ParseElement("Cl"); !ok || e != Chlorine {
		t.Fatalf("Cl lookup failed")
	}
}

func TestJSONUsesCanonicalString(t *testing.T) {
	type wrap struct {
		F Formula `json:"f"`
	}
	data, err := json.Marshal(wrap{F: Parse("H2O1")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"f":"C0H2Cl0N0O1P0S0"}` {
		t.Fatalf("unexpected json %s", data)
	}
	var back wrap
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.F.Equal(Parse("H2O1")) {
		t.Fatalf("decoded %s", back.F)
	}
}
