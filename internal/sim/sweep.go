package sim

import (
	"cmp"
	"slices"
)

// CandidatePair indexes two balls of the x-sorted slice from the current frame.
// It is only valid until the slice is sorted or mutated again.
type CandidatePair struct {
	A, B int
}

// BroadPhase is a one-axis sweep over ball x extents. It keeps its output buffer
// between frames.
type BroadPhase struct {
	pairs []CandidatePair
}

// Sweep sorts balls in place by Position.X and returns every pair (A, B), A before B,
// where B's left edge does not pass A's right edge. The result is a superset of the
// truly overlapping pairs. The returned slice is reused on the next call.
func (bp *BroadPhase) Sweep(balls []Ball) []CandidatePair {
	bp.pairs = bp.pairs[:0]
	if len(balls) < 2 {
		return bp.pairs
	}

	slices.SortStableFunc(balls, func(a, b Ball) int {
		return cmp.Compare(a.Position.X, b.Position.X)
	})

	// Centers are sorted, left edges are not. Once a center is more than the largest
	// radius past the active right edge, no later left edge can reach it.
	maxRadius := 0.0
	for i := range balls {
		maxRadius = max(maxRadius, balls[i].Radius)
	}

	for active := 0; active < len(balls)-1; active++ {
		rightmost := balls[active].Right()
		for checked := active + 1; checked < len(balls); checked++ {
			if balls[checked].Position.X-maxRadius > rightmost {
				break
			}
			if balls[checked].Left() <= rightmost {
				bp.pairs = append(bp.pairs, CandidatePair{A: active, B: checked})
			}
		}
	}
	return bp.pairs
}
