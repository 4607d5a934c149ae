package timeline

import "testing"

func TestClipValidate(t *testing.T) {
	tests := []struct {
		name    string
		clip    Clip
		wantErr bool
	}{
		{"valid", Clip{ID: "a", InMS: 0, OutMS: 1000, Speed: 1}, false},
		{"empty range", Clip{ID: "b", InMS: 500, OutMS: 500, Speed: 1}, true},
		{"zero speed", Clip{ID: "c", InMS: 0, OutMS: 1000}, true},
		{"negative speed", Clip{ID: "d", InMS: 0, OutMS: 1000, Speed: -2}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.clip.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestClipTimelineDuration(t *testing.T) {
	clip := Clip{InMS: 1000, OutMS: 5000, StartMS: 2000, Speed: 0.5}
	if got := clip.DurationMS(); got != 8000 {
		t.Fatalf("DurationMS() = %d, want 8000", got)
	}
	if got := clip.EndMS(); got != 10000 {
		t.Fatalf("EndMS() = %d, want 10000", got)
	}
	fast := Clip{InMS: 0, OutMS: 3000, Speed: 2}
	if got := fast.DurationMS(); got != 1500 {
		t.Fatalf("DurationMS() = %d, want 1500", got)
	}
}

func TestAutomationValidate(t *testing.T) {
	ok := Automation{ID: "a", Keyframes: []Keyframe{{0, 0}, {500, -6}, {500, -3}, {900, 0}}}
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := Automation{ID: "b", Keyframes: []Keyframe{{500, 0}, {100, -6}}}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected out-of-order keyframes to fail")
	}
}

func TestRoleAndBlendDefaults(t *testing.T) {
	if !RoleMusic.Ducked() || !RoleBackground.Ducked() || RoleDialogue.Ducked() || RoleGeneric.Ducked() {
		t.Fatal("unexpected ducking classification")
	}
	if (Clip{}).Blend() != BlendNormal {
		t.Fatal("expected normal blend by default")
	}
	if !(Clip{VolumeDB: -120}).Muted() || (Clip{VolumeDB: -12}).Muted() {
		t.Fatal("unexpected mute classification")
	}
	if (Track{Kind: TrackAudio}).CarriesVideo() || !(Track{}).CarriesVideo() {
		t.Fatal("unexpected video classification")
	}
}
