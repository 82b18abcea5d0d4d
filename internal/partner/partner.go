// Package partner picks, for each residue, the partner residue whose
// local geometry pairs with it to produce the most informative
// descriptor. The sequence-separation penalty is injected as a function
// value rather than modeled as a type hierarchy: one algorithm
// parameterized by a pluggable cost function, not one type per penalty.
package partner

import (
	"github.com/sarat-asymmetrica/fold3di/internal/geom"
)

// PenaltyFunc computes the sequence-separation term f(|j-i|) for the
// composite cost. ClippedLinear is the standard sequence-penalty shape.
type PenaltyFunc func(sep int) float64

// ClippedLinear returns f(sep) = min(sep, dMax), clipping the penalty so
// distant sequence separations stop growing past dMax.
func ClippedLinear(dMax int) PenaltyFunc {
	return func(sep int) float64 {
		if sep > dMax {
			return float64(dMax)
		}
		return float64(sep)
	}
}

// Params configures Select. Weight and the DMax bound that Penalty is
// built from are asset-derived, never code constants.
type Params struct {
	Weight  float64
	Penalty PenaltyFunc
}

// Select finds, for every residue i in a chain of effective Cβ
// positions, the partner j minimizing
//
//	cost(i, j) = dist(cb[i], cb[j]) + weight*penalty(|j-i|)
//
// restricted to candidates j with 0 < j < L-1 and j != i (both of j's
// own neighbours must exist for the feature extractor). Ties are broken
// by smallest |j-i|, then smallest j. Residues i in {0, L-1}, or any
// residue with no valid candidate (L < 3), are reported invalid.
//
// Returns a partner index per residue (meaningless where valid[i] is
// false) and a validity bit per residue.
func Select(cb []geom.Vec3, p Params) (partnerOf []int, valid []bool) {
	l := len(cb)
	partnerOf = make([]int, l)
	valid = make([]bool, l)

	if l < 3 {
		return partnerOf, valid
	}

	for i := 1; i < l-1; i++ {
		bestJ := -1
		bestCost := 0.0
		bestSep := 0

		for j := 1; j < l-1; j++ {
			if j == i {
				continue
			}
			sep := j - i
			if sep < 0 {
				sep = -sep
			}
			cost := geom.Dist(cb[i], cb[j]) + p.Weight*p.Penalty(sep)

			if bestJ == -1 {
				bestJ, bestCost, bestSep = j, cost, sep
				continue
			}
			switch {
			case cost < bestCost:
				bestJ, bestCost, bestSep = j, cost, sep
			case cost == bestCost:
				if sep < bestSep || (sep == bestSep && j < bestJ) {
					bestJ, bestCost, bestSep = j, cost, sep
				}
			}
		}

		if bestJ >= 0 {
			partnerOf[i] = bestJ
			valid[i] = true
		}
	}

	return partnerOf, valid
}
