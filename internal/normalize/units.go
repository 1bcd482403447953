package normalize

import (
	"strings"

	units "github.com/bcicen/go-units"
)

// conversion is one analyte-specific unit conversion.
type conversion struct {
	from   string
	to     string
	factor float64
}

// Analyte-specific conversions between conventional (mg/dl) and SI units.
// Factors follow standard clinical chemistry conversion tables.
var conversions = map[string][]conversion{
	"glucose":     {{from: "mg/dl", to: "mmol/l", factor: 0.0555}},
	"cholesterol": {{from: "mg/dl", to: "mmol/l", factor: 0.02586}},
	"creatinine":  {{from: "mg/dl", to: "μmol/l", factor: 88.4}},
}

// unitAliases maps Cyrillic unit spellings to their Latin equivalents.
var unitAliases = map[string]string{
	"г/л":      "g/l",
	"мг/л":     "mg/l",
	"ммоль/л":  "mmol/l",
	"мкмоль/л": "μmol/l",
	"мкг/л":    "μg/l",
	"ед/л":     "U/l",
	"мед/л":    "mU/l",
}

// CanonicalUnit lowercases a raw unit string and resolves Cyrillic aliases.
func CanonicalUnit(raw string) string {
	u := strings.ToLower(strings.TrimSpace(raw))
	if alias, ok := unitAliases[u]; ok {
		return alias
	}
	return u
}

// ConvertUnit converts value from rawUnit toward targetUnit for the given
// analyte code and returns the canonical unit symbol. Only the analyte
// conversion table changes the value; everything else is notation-only,
// resolving Cyrillic aliases and symbols the unit registry recognizes to
// their canonical spelling with the value untouched. Symbols unknown to
// both pass through unchanged. The last return reports a value conversion.
func ConvertUnit(analyteCode, rawUnit, targetUnit string, value float64) (float64, string, bool) {
	from := CanonicalUnit(rawUnit)
	to := CanonicalUnit(targetUnit)
	if from == "" {
		return value, rawUnit, false
	}

	if to != "" && !strings.EqualFold(from, to) {
		for _, c := range conversions[analyteCode] {
			if strings.EqualFold(c.from, from) && strings.EqualFold(c.to, to) {
				return value * c.factor, c.to, true
			}
		}
	}

	if from != strings.ToLower(strings.TrimSpace(rawUnit)) {
		// Alias table hit; the spelling changed but the value did not.
		return value, from, false
	}
	if _, err := units.Find(from); err != nil {
		return value, rawUnit, false
	}
	return value, from, false
}
