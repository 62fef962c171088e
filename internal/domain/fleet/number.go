package fleet

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is a float64 that decodes leniently from JSON. Numbers and numeric
// strings are accepted as-is; null, empty strings and anything unparseable
// decode to 0 instead of failing the whole payload.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "" || raw == "null" {
		*n = 0
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var value string
		if err := json.Unmarshal(data, &value); err != nil {
			*n = 0
			return nil
		}
		*n = Number(ParseNumber(value))
		return nil
	}
	*n = Number(ParseNumber(raw))
	return nil
}

func (n Number) Float() float64 {
	return float64(n)
}

// ParseNumber parses a user-entered amount, tolerating surrounding spaces,
// a leading currency sign and thousands separators. Failure yields 0.
func ParseNumber(value string) float64 {
	cleaned := strings.TrimSpace(value)
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return 0
	}
	return parsed
}
