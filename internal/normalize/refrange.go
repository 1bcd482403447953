package normalize

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/tahkootay/LabTrack/internal/domain/catalog"
)

var (
	// "3.9 - 5.5" with hyphen, en dash or em dash.
	rangeIntervalRe = regexp.MustCompile(`(\d+[.,]?\d*)\s*[-–—]\s*(\d+[.,]?\d*)`)
	rangeBelowRe    = regexp.MustCompile(`<\s*(\d+[.,]?\d*)`)
	rangeAboveRe    = regexp.MustCompile(`>\s*(\d+[.,]?\d*)`)
	// Russian "up to N" / "no more than N" phrasings.
	rangeUpToRe = regexp.MustCompile(`(?:до|не более)\s*(\d+[.,]?\d*)`)
)

// ParseRange parses an explicit reference range string into bounds. Either
// bound may be nil for open intervals; both are nil when the string holds no
// recognizable range.
func ParseRange(raw string) (min, max *float64) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return nil, nil
	}

	if m := rangeIntervalRe.FindStringSubmatch(s); m != nil {
		lo, err1 := parseDecimal(m[1])
		hi, err2 := parseDecimal(m[2])
		if err1 == nil && err2 == nil {
			return &lo, &hi
		}
	}
	if m := rangeBelowRe.FindStringSubmatch(s); m != nil {
		if hi, err := parseDecimal(m[1]); err == nil {
			return nil, &hi
		}
	}
	if m := rangeAboveRe.FindStringSubmatch(s); m != nil {
		if lo, err := parseDecimal(m[1]); err == nil {
			return &lo, nil
		}
	}
	if m := rangeUpToRe.FindStringSubmatch(s); m != nil {
		if hi, err := parseDecimal(m[1]); err == nil {
			return nil, &hi
		}
	}
	return nil, nil
}

// DefaultRange picks the analyte's fallback reference interval: the "normal"
// cohort when present, otherwise the first cohort in sorted key order.
func DefaultRange(a *catalog.Analyte) (min, max *float64) {
	if a == nil || len(a.ReferenceRanges) == 0 {
		return nil, nil
	}
	if rr, ok := a.ReferenceRanges["normal"]; ok {
		return rr.Min, rr.Max
	}
	keys := make([]string, 0, len(a.ReferenceRanges))
	for k := range a.ReferenceRanges {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rr := a.ReferenceRanges[keys[0]]
	return rr.Min, rr.Max
}

func parseDecimal(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}
