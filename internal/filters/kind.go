package filters

import "strings"

// Kind is the closed set of filter types the planner can lower.
type Kind int

const (
	KindExposure Kind = iota + 1
	KindContrast
	KindBrightness
	KindSaturation
	KindGamma
	KindHue
	KindSharpen
	KindBlur
	KindDenoise
	KindVignette
	KindColorBalance
	KindTeethWhiten
	KindSkinSmooth
	KindEyeBrighten
	KindFaceBlur
	KindLUT
)

var kindNames = map[Kind]string{
	KindExposure:     "exposure",
	KindContrast:     "contrast",
	KindBrightness:   "brightness",
	KindSaturation:   "saturation",
	KindGamma:        "gamma",
	KindHue:          "hue",
	KindSharpen:      "sharpen",
	KindBlur:         "blur",
	KindDenoise:      "denoise",
	KindVignette:     "vignette",
	KindColorBalance: "color_balance",
	KindTeethWhiten:  "teeth_whiten",
	KindSkinSmooth:   "skin_smooth",
	KindEyeBrighten:  "eye_brighten",
	KindFaceBlur:     "face_blur",
	KindLUT:          "lut",
}

var kindsByName = func() map[string]Kind {
	out := make(map[string]Kind, len(kindNames))
	for kind, name := range kindNames {
		out[name] = kind
	}
	return out
}()

// String returns the filter type name as stored on a filter stack.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind resolves a filter type name.
func ParseKind(name string) (Kind, bool) {
	kind, ok := kindsByName[strings.ToLower(strings.TrimSpace(name))]
	return kind, ok
}

// Region names a facial or body region a filter targets.
type Region string

const (
	RegionNone  Region = ""
	RegionTeeth Region = "teeth"
	RegionSkin  Region = "skin"
	RegionEyes  Region = "eyes"
	RegionFace  Region = "face"
)

// Region returns the region a kind is confined to, if any.
func (k Kind) Region() Region {
	switch k {
	case KindTeethWhiten:
		return RegionTeeth
	case KindSkinSmooth:
		return RegionSkin
	case KindEyeBrighten:
		return RegionEyes
	case KindFaceBlur:
		return RegionFace
	default:
		return RegionNone
	}
}
