package game

import (
	"crypto/rand"
	"errors"
	"math/big"
)

// WheelSegment is a single segment on the daily prize wheel. Weight is
// relative: segments do not have to sum to any particular total, and
// fractional weights are allowed.
type WheelSegment struct {
	ID     int     `json:"id"`
	Prize  float64 `json:"prize"`
	Weight float64 `json:"weight"`
}

// PrizeWheel performs server-side weighted draws over a fixed segment table.
type PrizeWheel struct {
	segments    []WheelSegment
	totalWeight float64
}

var ErrEmptyWheel = errors.New("prize wheel has no drawable segments")

// DefaultSegments returns the production 8-segment wheel, heavily skewed
// toward the smallest prizes.
func DefaultSegments() []WheelSegment {
	return []WheelSegment{
		{ID: 0, Prize: 0.01, Weight: 40},
		{ID: 1, Prize: 0.1, Weight: 25},
		{ID: 2, Prize: 0.5, Weight: 10},
		{ID: 3, Prize: 1.0, Weight: 5},
		{ID: 4, Prize: 5.0, Weight: 1},
		{ID: 5, Prize: 10.0, Weight: 0.5},
		{ID: 6, Prize: 0.05, Weight: 15},
		{ID: 7, Prize: 0.2, Weight: 3.5},
	}
}

// NewPrizeWheel builds a wheel from the given segment table.
func NewPrizeWheel(segments []WheelSegment) (*PrizeWheel, error) {
	total := 0.0
	for _, s := range segments {
		if s.Weight < 0 {
			return nil, errors.New("prize wheel weight must be non-negative")
		}
		total += s.Weight
	}
	if len(segments) == 0 || total <= 0 {
		return nil, ErrEmptyWheel
	}
	return &PrizeWheel{segments: segments, totalWeight: total}, nil
}

// Segments returns the wheel configuration.
func (w *PrizeWheel) Segments() []WheelSegment {
	return w.segments
}

// Draw selects a segment with probability weight/totalWeight using
// cryptographically secure randomness.
func (w *PrizeWheel) Draw() WheelSegment {
	// 0.000001 precision
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		n = big.NewInt(500000)
	}
	random := float64(n.Int64()) / 1000000.0 * w.totalWeight

	cumulative := 0.0
	for _, s := range w.segments {
		cumulative += s.Weight
		if random < cumulative {
			return s
		}
	}

	// float accumulation can leave random at the very edge
	return w.segments[len(w.segments)-1]
}

// SpinAngle returns the final rotation angle for the frontend animation of a
// draw that landed on segment index idx.
func (w *PrizeWheel) SpinAngle(idx int) float64 {
	segmentAngle := 360.0 / float64(len(w.segments))
	baseAngle := float64(idx) * segmentAngle

	offsetMax := big.NewInt(int64(segmentAngle * 100))
	offsetN, err := rand.Int(rand.Reader, offsetMax)
	offset := 0.0
	if err == nil {
		offset = float64(offsetN.Int64()) / 100.0
	}

	const rotations = 5
	return float64(rotations*360) + baseAngle + offset
}

// ExpectedPrize returns the mean payout of a single draw.
func (w *PrizeWheel) ExpectedPrize() float64 {
	expected := 0.0
	for _, s := range w.segments {
		expected += s.Prize * s.Weight / w.totalWeight
	}
	return expected
}
