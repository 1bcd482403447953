// Package normalize turns raw extracted lab values into canonical numeric
// observations: numeric parsing, unit conversion, reference range
// resolution, flagging and delta computation.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// Value parsing patterns, tried in order. Decimals win over bounded values,
// bounded values win over bare integers so that "<5" is read as 5 and not
// shadowed by the integer rule.
var valuePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+[.,]\d+)`),
	regexp.MustCompile(`<\s*(\d+[.,]?\d*)`),
	regexp.MustCompile(`>\s*(\d+[.,]?\d*)`),
	regexp.MustCompile(`(\d+)`),
}

// ParseValue extracts a numeric value from a raw result string. Comma decimal
// separators are accepted. The second return is false when the string holds
// no parseable number, which marks the result as qualitative.
func ParseValue(raw string) (float64, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return 0, false
	}
	for _, re := range valuePatterns {
		m := re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
		if err != nil {
			continue
		}
		return v, true
	}
	return 0, false
}
