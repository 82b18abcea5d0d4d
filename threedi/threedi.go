// Package threedi is the public entry point of the backbone-to-3Di
// encoder: given one chain's backbone coordinates and a loaded model
// asset, Encode produces one discrete structural state per residue. It
// is a pure function with no I/O and no retained state beyond the
// asset, safe to call concurrently from multiple goroutines each
// holding their own Chain.
package threedi

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sarat-asymmetrica/fold3di/internal/asset"
	"github.com/sarat-asymmetrica/fold3di/internal/feature"
	"github.com/sarat-asymmetrica/fold3di/internal/geom"
	"github.com/sarat-asymmetrica/fold3di/internal/partner"
	"github.com/sarat-asymmetrica/fold3di/internal/quantizer"
	"github.com/sarat-asymmetrica/fold3di/internal/vcenter"
)

// Asset is the loaded, immutable model bundle (network weights,
// centroids, geometric constants). Re-exported from internal/asset so
// callers never import an internal package directly.
type Asset = asset.Asset

// Vec3 is an ordered triple of double-precision coordinates. Re-exported
// from internal/geom so callers can build a Chain without importing an
// internal package.
type Vec3 = geom.Vec3

// LoadAsset parses the binary asset blob.
func LoadAsset(r io.Reader) (*Asset, error) {
	return asset.Load(r)
}

// The INVALID state code for a given asset is always a.K: states range
// over {0..K-1} plus one sentinel value equal to K. There is no
// package-level constant for it, since K is not fixed at compile time;
// callers read it off the Asset they loaded.

var (
	// ErrInputShapeMismatch is returned when the four coordinate arrays
	// of a Chain have unequal length. Fatal per call.
	ErrInputShapeMismatch = errors.New("threedi: input coordinate arrays have mismatched length")
)

// Chain is one residue chain's backbone coordinates, borrowed for the
// duration of one Encode call. CA, N, and C must all have the same
// length; Cb may contain non-finite entries to signal "missing".
type Chain struct {
	CA []geom.Vec3
	N  []geom.Vec3
	C  []geom.Vec3
	Cb []geom.Vec3
}

// Result is Encode's output: one state code per residue (0..K-1, or the
// INVALID sentinel equal to the asset's K) and a parallel validity bitset, in input
// order.
type Result struct {
	States []int
	Valid  []bool
}

// Encode runs the full per-residue pipeline:
//
//  1. synthesize missing Cβ positions (internal/vcenter)
//  2. select each residue's partner (internal/partner)
//  3. extract features and embed+quantize every valid residue
//  4. mark every other residue INVALID
//
// ctx is checked between residues; pass context.Background() for
// unconditional execution.
func Encode(ctx context.Context, a *Asset, chain Chain) (Result, error) {
	l := len(chain.CA)
	if len(chain.N) != l || len(chain.C) != l || len(chain.Cb) != l {
		return Result{}, fmt.Errorf("%w: CA=%d N=%d C=%d Cb=%d", ErrInputShapeMismatch, l, len(chain.N), len(chain.C), len(chain.Cb))
	}

	states := make([]int, l)
	valid := make([]bool, l)
	invalidCode := a.K

	if l < 3 {
		for i := range states {
			states[i] = invalidCode
		}
		return Result{States: states, Valid: valid}, nil
	}

	effectiveCb, cbOK := buildEffectiveCb(chain, a.VCenter)

	partnerOf, partnerValid := partner.Select(effectiveCb, a.PartnerParams())

	for i := 0; i < l; i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		if !partnerValid[i] || !cbOK[i] {
			states[i] = invalidCode
			continue
		}

		f, err := feature.Extract(chain.CA, i, partnerOf[i])
		if err != nil {
			// Degenerate geometry degrades only this residue.
			states[i] = invalidCode
			continue
		}

		embedding := a.Network.Forward(f[:])
		states[i] = quantizer.Nearest(embedding, a.Centroids)
		valid[i] = true
	}

	return Result{States: states, Valid: valid}, nil
}

// buildEffectiveCb fills in a virtual center wherever chain.Cb[i] is
// missing (non-finite), leaving real Cβ positions untouched. A
// degenerate virtual-center construction (coincident Cα/N/C) degrades
// only that residue: ok[i] is false for it, and the caller marks it
// INVALID rather than failing the whole call.
func buildEffectiveCb(chain Chain, p vcenter.Params) (out []geom.Vec3, ok []bool) {
	l := len(chain.CA)
	out = make([]geom.Vec3, l)
	ok = make([]bool, l)
	for i := 0; i < l; i++ {
		if geom.Finite(chain.Cb[i]) {
			out[i] = chain.Cb[i]
			ok[i] = true
			continue
		}
		v, err := vcenter.Synthesize(chain.CA[i], chain.N[i], chain.C[i], p)
		if err != nil {
			// A coincident N/C/Ca triple at residue i: there is no
			// sensible effective Cβ for this residue. Placing it at
			// Cα keeps the other residues' partner-distance math
			// finite; ok[i] stays false so the residue is INVALID.
			out[i] = chain.CA[i]
			continue
		}
		out[i] = v
		ok[i] = true
	}
	return out, ok
}
