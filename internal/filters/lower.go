package filters

import (
	"fmt"
	"math"
	"strings"
)

// colorBalanceKeys is the fixed emission order for colorbalance options.
var colorBalanceKeys = []struct {
	param  string
	option string
}{
	{"shadows_red", "rs"}, {"shadows_green", "gs"}, {"shadows_blue", "bs"},
	{"midtones_red", "rm"}, {"midtones_green", "gm"}, {"midtones_blue", "bm"},
	{"highlights_red", "rh"}, {"highlights_green", "gh"}, {"highlights_blue", "bh"},
}

// Lower maps a filter type and its parameters to an ffmpeg filter expression.
func Lower(filterType string, params map[string]any) (string, error) {
	kind, ok := ParseKind(filterType)
	if !ok {
		return "", &UnsupportedFilterError{Type: filterType}
	}
	return LowerKind(kind, params)
}

// LowerKind is Lower for an already-parsed kind.
func LowerKind(kind Kind, params map[string]any) (string, error) {
	n := func(name string) string { return FormatNumber(param(kind, params, name)) }

	switch kind {
	case KindExposure:
		return "exposure=exposure=" + n("stops"), nil
	case KindContrast:
		return "eq=contrast=" + FormatNumber(1+param(kind, params, "amount")), nil
	case KindBrightness:
		return "eq=brightness=" + n("amount"), nil
	case KindSaturation:
		return "eq=saturation=" + n("amount"), nil
	case KindGamma:
		return "eq=gamma=" + n("value"), nil
	case KindHue:
		return "hue=h=" + n("degrees"), nil
	case KindSharpen:
		size := int(math.Round(param(kind, params, "luma_size")))
		if size%2 == 0 {
			size++
		}
		return fmt.Sprintf("unsharp=lx=%d:ly=%d:la=%s", size, size, n("luma_amount")), nil
	case KindBlur:
		return "gblur=sigma=" + n("sigma"), nil
	case KindDenoise:
		return "hqdn3d=luma_spatial=" + n("strength"), nil
	case KindVignette:
		return "vignette=angle=" + n("angle"), nil
	case KindColorBalance:
		return lowerColorBalance(params), nil
	case KindTeethWhiten:
		s := param(kind, params, "strength")
		return fmt.Sprintf("eq=brightness=%s:saturation=%s", FormatNumber(0.08*s), FormatNumber(1-0.6*s)), nil
	case KindSkinSmooth:
		s := param(kind, params, "strength")
		return fmt.Sprintf("smartblur=lr=%s:ls=%s", FormatNumber(1+4*s), FormatNumber(s)), nil
	case KindEyeBrighten:
		s := param(kind, params, "strength")
		return fmt.Sprintf("eq=brightness=%s:contrast=%s", FormatNumber(0.1*s), FormatNumber(1+0.2*s)), nil
	case KindFaceBlur:
		s := param(kind, params, "strength")
		radius := int(math.Round(param(kind, params, "radius")))
		power := max(1, int(math.Round(3*s)))
		return fmt.Sprintf("boxblur=luma_radius=%d:luma_power=%d", radius, power), nil
	case KindLUT:
		path, _ := params["path"].(string)
		if strings.TrimSpace(path) == "" {
			return "", ErrMissingLUTPath
		}
		return fmt.Sprintf("lut3d=file='%s':interp=tetrahedral", EscapeValue(path)), nil
	default:
		return "", &UnsupportedFilterError{Type: kind.String()}
	}
}

// lowerColorBalance emits only non-zero offsets; an all-zero balance lowers
// to the null pass-through so the filter still occupies a graph node.
func lowerColorBalance(params map[string]any) string {
	opts := make([]string, 0, len(colorBalanceKeys))
	for _, key := range colorBalanceKeys {
		v := param(KindColorBalance, params, key.param)
		if FormatNumber(v) == "0" {
			continue
		}
		opts = append(opts, key.option+"="+FormatNumber(v))
	}
	if len(opts) == 0 {
		return "null"
	}
	return "colorbalance=" + strings.Join(opts, ":")
}

// Loudnorm renders dual-mono EBU R128 normalization at target LUFS.
func Loudnorm(target float64) string {
	return "loudnorm=I=" + FormatNumber(target) + ":TP=-1.5:LRA=11:dual_mono=true"
}
