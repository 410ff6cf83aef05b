package game

import (
	"math"
	"testing"
)

func TestNewPrizeWheel_Empty(t *testing.T) {
	if _, err := NewPrizeWheel(nil); err == nil {
		t.Fatal("expected error for empty segment table")
	}
	if _, err := NewPrizeWheel([]WheelSegment{{ID: 0, Prize: 1, Weight: 0}}); err == nil {
		t.Fatal("expected error for zero total weight")
	}
}

func TestDraw_SingleSegment(t *testing.T) {
	w, err := NewPrizeWheel([]WheelSegment{{ID: 3, Prize: 0.5, Weight: 2.5}})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 100; i++ {
		if got := w.Draw(); got.ID != 3 {
			t.Fatalf("draw returned segment %d, want 3", got.ID)
		}
	}
}

func TestDraw_ZeroWeightNeverDrawn(t *testing.T) {
	w, err := NewPrizeWheel([]WheelSegment{
		{ID: 0, Prize: 1, Weight: 1},
		{ID: 1, Prize: 100, Weight: 0},
		{ID: 2, Prize: 2, Weight: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2000; i++ {
		if got := w.Draw(); got.ID == 1 {
			t.Fatal("zero-weight segment was drawn")
		}
	}
}

// Statistical check: over many trials the draw frequency should follow
// weight/totalWeight within a loose tolerance.
func TestDraw_Distribution(t *testing.T) {
	segments := DefaultSegments()
	w, err := NewPrizeWheel(segments)
	if err != nil {
		t.Fatal(err)
	}

	const trials = 200000
	counts := make(map[int]int)
	for i := 0; i < trials; i++ {
		counts[w.Draw().ID]++
	}

	total := 0.0
	for _, s := range segments {
		total += s.Weight
	}

	for _, s := range segments {
		expected := s.Weight / total
		observed := float64(counts[s.ID]) / trials
		// 20% relative tolerance plus an absolute floor for tiny weights
		tol := math.Max(expected*0.2, 0.002)
		if math.Abs(observed-expected) > tol {
			t.Errorf("segment %d: observed %.4f, expected %.4f (tol %.4f)",
				s.ID, observed, expected, tol)
		}
	}
}

func TestExpectedPrize(t *testing.T) {
	w, err := NewPrizeWheel([]WheelSegment{
		{ID: 0, Prize: 1, Weight: 1},
		{ID: 1, Prize: 3, Weight: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := w.ExpectedPrize(); math.Abs(got-2.0) > 1e-9 {
		t.Errorf("expected prize = %v, want 2.0", got)
	}
}

func TestSpinAngle_LandsInSegment(t *testing.T) {
	w, err := NewPrizeWheel(DefaultSegments())
	if err != nil {
		t.Fatal(err)
	}
	for idx := 0; idx < len(w.Segments()); idx++ {
		angle := w.SpinAngle(idx)
		segmentAngle := 360.0 / float64(len(w.Segments()))
		base := math.Mod(angle, 360)
		if base < float64(idx)*segmentAngle || base >= float64(idx+1)*segmentAngle {
			t.Errorf("segment %d: angle %.2f lands outside [%.2f, %.2f)",
				idx, base, float64(idx)*segmentAngle, float64(idx+1)*segmentAngle)
		}
	}
}
