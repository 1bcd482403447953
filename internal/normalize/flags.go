package normalize

const (
	FlagLow    = "L"
	FlagHigh   = "H"
	FlagNormal = "N"
)

// Suspect ratio bounds: a value below a tenth of the lower bound or above
// ten times the upper bound is likely a unit or extraction error.
const (
	suspectLowRatio  = 0.1
	suspectHighRatio = 10
)

// Flag classifies a numeric value against a reference interval. A missing
// bound skips that comparison. The second return reports whether the value
// falls outside the interval.
func Flag(value float64, min, max *float64) (string, bool) {
	if min != nil && value < *min {
		return FlagLow, true
	}
	if max != nil && value > *max {
		return FlagHigh, true
	}
	return FlagNormal, false
}

// Suspect reports whether a value is so far outside its reference interval
// that the raw data itself is questionable.
func Suspect(value float64, min, max *float64) bool {
	if min != nil && *min > 0 && value / *min < suspectLowRatio {
		return true
	}
	if max != nil && *max > 0 && value / *max > suspectHighRatio {
		return true
	}
	return false
}

// Delta computes the absolute and relative change from a previous value.
// The relative change is nil when the previous value is zero.
func Delta(current, previous float64) (delta float64, deltaPercent *float64) {
	delta = current - previous
	if previous != 0 {
		pct := 100 * delta / previous
		deltaPercent = &pct
	}
	return delta, deltaPercent
}
