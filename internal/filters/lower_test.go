package filters

import (
	"errors"
	"strings"
	"testing"

	"reelplan/internal/services"
)

func TestLowerTable(t *testing.T) {
	tests := []struct {
		name   string
		typ    string
		params map[string]any
		want   string
	}{
		{"exposure clamps high", "exposure", map[string]any{"stops": 100}, "exposure=exposure=3"},
		{"exposure clamps low", "exposure", map[string]any{"stops": -7.5}, "exposure=exposure=-3"},
		{"exposure default", "exposure", nil, "exposure=exposure=0"},
		{"contrast offset", "contrast", map[string]any{"amount": 0.3}, "eq=contrast=1.3"},
		{"contrast clamps", "contrast", map[string]any{"amount": -5}, "eq=contrast=0.2"},
		{"brightness", "brightness", map[string]any{"amount": "0.25"}, "eq=brightness=0.25"},
		{"saturation default", "saturation", map[string]any{}, "eq=saturation=1"},
		{"gamma floor", "gamma", map[string]any{"value": 0}, "eq=gamma=0.1"},
		{"hue", "hue", map[string]any{"degrees": 270}, "hue=h=180"},
		{"sharpen defaults", "sharpen", nil, "unsharp=lx=5:ly=5:la=1"},
		{"sharpen even size", "sharpen", map[string]any{"luma_size": 8, "luma_amount": 9}, "unsharp=lx=9:ly=9:la=5"},
		{"sharpen size ceiling", "sharpen", map[string]any{"luma_size": 40}, "unsharp=lx=13:ly=13:la=1"},
		{"blur", "blur", map[string]any{"sigma": 3.5}, "gblur=sigma=3.5"},
		{"denoise", "denoise", nil, "hqdn3d=luma_spatial=4"},
		{"vignette default", "vignette", nil, "vignette=angle=0.6283"},
		{"non-numeric falls back", "blur", map[string]any{"sigma": []int{1}}, "gblur=sigma=2"},
		{"case insensitive", " Exposure ", map[string]any{"stops": true}, "exposure=exposure=1"},
		{"face blur", "face_blur", map[string]any{"radius": 99, "strength": 1}, "boxblur=luma_radius=50:luma_power=3"},
		{"teeth whiten", "teeth_whiten", nil, "eq=brightness=0.04:saturation=0.7"},
		{"lut", "lut", map[string]any{"path": "/luts/it's:warm.cube"}, `lut3d=file='/luts/it\'s\:warm.cube':interp=tetrahedral`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Lower(tc.typ, tc.params)
			if err != nil {
				t.Fatalf("Lower returned error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Lower(%q) = %q, want %q", tc.typ, got, tc.want)
			}
		})
	}
}

func TestLowerUnknownFilter(t *testing.T) {
	_, err := Lower("not_a_real_filter", map[string]any{})
	var unsupported *UnsupportedFilterError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedFilterError, got %v", err)
	}
	if unsupported.Type != "not_a_real_filter" {
		t.Fatalf("unexpected type %q", unsupported.Type)
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatal("expected unsupported filter to classify as validation error")
	}
}

func TestLowerLUTRequiresPath(t *testing.T) {
	if _, err := Lower("lut", nil); !errors.Is(err, ErrMissingLUTPath) {
		t.Fatalf("expected ErrMissingLUTPath, got %v", err)
	}
}

func TestColorBalance(t *testing.T) {
	got, err := Lower("color_balance", map[string]any{
		"highlights_blue": -0.2,
		"shadows_red":     0.1,
		"midtones_green":  4,
		"shadows_blue":    0,
	})
	if err != nil {
		t.Fatalf("Lower returned error: %v", err)
	}
	if want := "colorbalance=rs=0.1:gm=1:bh=-0.2"; got != want {
		t.Fatalf("color_balance = %q, want %q", got, want)
	}

	zero, err := Lower("color_balance", map[string]any{"shadows_red": 0})
	if err != nil {
		t.Fatalf("Lower returned error: %v", err)
	}
	if zero != "null" {
		t.Fatalf("all-zero color_balance = %q, want null", zero)
	}
}

func TestEveryKindLowers(t *testing.T) {
	for kind, name := range kindNames {
		params := map[string]any{}
		if kind == KindLUT {
			params["path"] = "/tmp/a.cube"
		}
		got, err := Lower(name, params)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", name, err)
		}
		if strings.TrimSpace(got) == "" {
			t.Fatalf("%s: empty expression", name)
		}
	}
}

func TestRegions(t *testing.T) {
	cases := map[string]Region{
		"teeth_whiten": RegionTeeth,
		"skin_smooth":  RegionSkin,
		"eye_brighten": RegionEyes,
		"face_blur":    RegionFace,
		"exposure":     RegionNone,
	}
	for name, want := range cases {
		kind, ok := ParseKind(name)
		if !ok {
			t.Fatalf("ParseKind(%q) failed", name)
		}
		if got := kind.Region(); got != want {
			t.Fatalf("%s region = %q, want %q", name, got, want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	cases := map[float64]string{
		0:         "0",
		1:         "1",
		-0.00001:  "0",
		0.1 + 0.2: "0.3",
		2.5:       "2.5",
		-1.23456:  "-1.2346",
	}
	for in, want := range cases {
		if got := FormatNumber(in); got != want {
			t.Fatalf("FormatNumber(%v) = %q, want %q", in, got, want)
		}
	}
}
