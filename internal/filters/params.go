package filters

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Range is the clamp table entry for one numeric parameter.
type Range struct {
	Min     float64
	Max     float64
	Default float64
}

// Clamp saturates v into the range.
func (r Range) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return r.Default
	}
	return math.Min(r.Max, math.Max(r.Min, v))
}

// Params is the clamp table, keyed by kind then parameter name.
var Params = map[Kind]map[string]Range{
	KindExposure:   {"stops": {-3, 3, 0}},
	KindContrast:   {"amount": {-0.8, 2.0, 0}},
	KindBrightness: {"amount": {-1, 1, 0}},
	KindSaturation: {"amount": {0, 3, 1}},
	KindGamma:      {"value": {0.1, 10, 1}},
	KindHue:        {"degrees": {-180, 180, 0}},
	KindSharpen: {
		"luma_amount": {0, 5, 1},
		"luma_size":   {3, 13, 5},
	},
	KindBlur:     {"sigma": {0, 50, 2}},
	KindDenoise:  {"strength": {0, 30, 4}},
	KindVignette: {"angle": {0, math.Pi / 2, math.Pi / 5}},
	KindColorBalance: {
		"shadows_red": {-1, 1, 0}, "shadows_green": {-1, 1, 0}, "shadows_blue": {-1, 1, 0},
		"midtones_red": {-1, 1, 0}, "midtones_green": {-1, 1, 0}, "midtones_blue": {-1, 1, 0},
		"highlights_red": {-1, 1, 0}, "highlights_green": {-1, 1, 0}, "highlights_blue": {-1, 1, 0},
	},
	KindTeethWhiten: {"strength": {0, 1, 0.5}},
	KindSkinSmooth:  {"strength": {0, 1, 0.5}},
	KindEyeBrighten: {"strength": {0, 1, 0.5}},
	KindFaceBlur: {
		"strength": {0, 1, 0.5},
		"radius":   {1, 50, 10},
	},
}

// param reads a numeric parameter, applying the kind's default and clamp.
func param(kind Kind, params map[string]any, name string) float64 {
	r, ok := Params[kind][name]
	if !ok {
		return 0
	}
	raw, present := params[name]
	if !present {
		return r.Default
	}
	v, ok := toFloat(raw)
	if !ok {
		return r.Default
	}
	return r.Clamp(v)
}

// toFloat accepts the numeric shapes JSON, YAML and SQLite produce.
func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// FormatNumber renders a float with at most four decimals and no trailing zeros.
func FormatNumber(v float64) string {
	if v == 0 || math.Abs(v) < 0.00005 {
		return "0"
	}
	s := strconv.FormatFloat(v, 'f', 4, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// EscapeValue escapes a path or text for use inside a single-quoted filter
// option value.
func EscapeValue(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`)
	return replacer.Replace(value)
}
