package normalize

import (
	"math"
	"testing"
)

func TestParseValue(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want float64
		ok   bool
	}{
		{"decimal point", "5.6", 5.6, true},
		{"decimal comma", "5,6", 5.6, true},
		{"integer", "120", 120, true},
		{"below bound", "<0.5", 0.5, true},
		{"below bound with space", "< 0,5", 0.5, true},
		{"above bound", "> 10", 10, true},
		{"embedded number", "около 4,2 ммоль/л", 4.2, true},
		{"decimal wins over integer", "результат 1,5 из 10", 1.5, true},
		{"qualitative", "отрицательно", 0, false},
		{"empty", "", 0, false},
		{"whitespace only", "   ", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseValue(tc.raw)
			if ok != tc.ok {
				t.Fatalf("ParseValue(%q) ok = %v, want %v", tc.raw, ok, tc.ok)
			}
			if ok && math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("ParseValue(%q) = %v, want %v", tc.raw, got, tc.want)
			}
		})
	}
}
