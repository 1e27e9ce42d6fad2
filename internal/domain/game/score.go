package game

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ExtractScore coerces the many upstream score encodings into an int.
// Numbers, numeric strings, and {value|displayValue} objects are accepted;
// anything else yields 0.
func ExtractScore(raw any) int {
	switch value := raw.(type) {
	case nil:
		return 0
	case int:
		return value
	case int32:
		return int(value)
	case int64:
		return int(value)
	case float32:
		return roundScore(float64(value))
	case float64:
		return roundScore(value)
	case json.Number:
		return scoreFromString(value.String())
	case string:
		return scoreFromString(value)
	case map[string]any:
		if v, ok := value["value"]; ok && v != nil {
			return ExtractScore(v)
		}
		if v, ok := value["displayValue"]; ok {
			return ExtractScore(v)
		}
		return 0
	default:
		return 0
	}
}

func scoreFromString(value string) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if parsed, err := strconv.Atoi(value); err == nil {
		return parsed
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return roundScore(parsed)
}

func roundScore(value float64) int {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return int(math.Trunc(value))
}
