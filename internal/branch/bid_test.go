package branch

import (
	"testing"

	"github.com/arborvc/arbor/internal/types"
)

func TestNestSplitRoundTrip(t *testing.T) {
	top := TopLevel(0)
	if top != "B0" {
		t.Fatalf("expected TopLevel(0) to be B0, got %s", top)
	}

	level1 := Nest(top, 7, 0)
	if level1 != "B0.7.0" {
		t.Fatalf("expected B0.7.0, got %s", level1)
	}
	outer, host, inner, ok := level1.Split()
	if !ok || outer != top || host != 7 || inner != 0 {
		t.Fatalf("split %s: got (%s, %d, %d, %v)", level1, outer, host, inner, ok)
	}

	// A second nesting level, hosted at a transient negative eid, must
	// round-trip the same way: Split peels exactly one level.
	level2 := Nest(level1, -3, 1)
	if level2 != "B0.7.0.-3.1" {
		t.Fatalf("expected B0.7.0.-3.1, got %s", level2)
	}
	outer, host, inner, ok = level2.Split()
	if !ok || outer != level1 || host != types.Eid(-3) || inner != 1 {
		t.Fatalf("split %s: got (%s, %d, %d, %v)", level2, outer, host, inner, ok)
	}
	if !level2.IsNested() || !level1.IsNested() || top.IsNested() {
		t.Fatalf("nesting detection wrong: %v %v %v", level2.IsNested(), level1.IsNested(), top.IsNested())
	}
}

func TestSplitRejectsMalformedBids(t *testing.T) {
	tests := []struct {
		name string
		bid  Bid
	}{
		{"top-level id", "B0"},
		{"single dot component", "B0.5"},
		{"non-numeric hosting eid", "B0.x.0"},
		{"non-numeric inner counter", "B0.5.x"},
		{"empty string", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, _, ok := tt.bid.Split(); ok {
				t.Fatalf("expected Split(%q) to fail", tt.bid)
			}
		})
	}
}

func TestTopLevelIndex(t *testing.T) {
	if n, ok := Bid("B12").TopLevelIndex(); !ok || n != 12 {
		t.Fatalf("expected (12, true), got (%d, %v)", n, ok)
	}
	if _, ok := Bid("B0.5.0").TopLevelIndex(); ok {
		t.Fatalf("expected a nested bid to have no top-level index")
	}
	if _, ok := Bid("X3").TopLevelIndex(); ok {
		t.Fatalf("expected a non-B prefix to be rejected")
	}
}

func TestNormalizeBid(t *testing.T) {
	tests := []struct {
		in   string
		want Bid
	}{
		{"", ""},
		{"0", "B0"},
		{"B1", "B1"},
		{"b1", "b1"},
		{"2.5.0", "B2.5.0"},
		{"B2.5.0", "B2.5.0"},
	}
	for _, tt := range tests {
		if got := NormalizeBid(tt.in); got != tt.want {
			t.Fatalf("NormalizeBid(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
