package plan

import "testing"

func TestRequestWindow(t *testing.T) {
	tests := []struct {
		name string
		req  RenderRequest
		want Window
	}{
		{"open", RenderRequest{StartMS: 0}, Window{StartMS: 0}},
		{"clamped start", RenderRequest{StartMS: 500, EndMS: 60000, OverlapMS: 1000}, Window{StartMS: 0, EndMS: 61000, Bounded: true}},
		{"widened", RenderRequest{StartMS: 60000, EndMS: 120000, OverlapMS: 1000}, Window{StartMS: 59000, EndMS: 121000, Bounded: true}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.req.Window(); got != tc.want {
				t.Fatalf("Window() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestWindowExcludes(t *testing.T) {
	w := Window{StartMS: 1000, EndMS: 5000, Bounded: true}
	cases := []struct {
		start, end int64
		excluded   bool
	}{
		{0, 1000, true},
		{0, 1001, false},
		{4999, 6000, false},
		{5000, 6000, true},
	}
	for _, c := range cases {
		if got := w.Excludes(c.start, c.end); got != c.excluded {
			t.Fatalf("Excludes(%d,%d) = %v, want %v", c.start, c.end, got, c.excluded)
		}
	}
	open := Window{StartMS: 0}
	if open.Excludes(1_000_000, 2_000_000) {
		t.Fatal("open window must not exclude late clips")
	}
}

func TestRequestValidate(t *testing.T) {
	if err := (RenderRequest{ProjectID: "p"}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := RenderRequest{StartMS: 5000, EndMS: 1000, OverlapMS: -1, Captions: &CaptionOptions{}}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected validation error")
	}
	if err := (RenderRequest{ProjectID: "p", NoOverlap: true, OverlapMS: 500}).Validate(); err == nil {
		t.Fatal("expected conflict between no_overlap and overlap_ms")
	}
}
