// Package vcenter synthesizes a deterministic pseudo-Cβ ("virtual
// center") from Cα, N, and C when a residue's real Cβ is missing.
// Glycine has none, and crystallographic Cβ is sometimes unresolved.
//
// The construction below is frozen: different but algebraically
// "equivalent" derivations produce distinguishable floating-point
// output and would silently invalidate a trained embedding network's
// weights and a precomputed centroid table. Do not refactor this math
// without a version bump to the asset format.
package vcenter

import (
	"math"

	"github.com/sarat-asymmetrica/fold3di/internal/geom"
)

// Params are the frozen geometric constants that define the virtual
// center construction. These live in the asset, never as code
// constants, so the core stays testable against synthetic parameter sets.
type Params struct {
	AlphaDeg float64 // rotation angle about the v4 axis, degrees
	BetaDeg  float64 // rotation angle about u2, degrees
	Bond     float64 // bond length d, Ångström
}

const sqrt3Over2 = 0.8660254037844386 // math.Sqrt(3) / 2
const sqrt8Over3 = 1.632993161855452  // math.Sqrt(8.0 / 3.0)

// Synthesize builds the virtual Cβ for one residue from its Cα, N, and
// C positions. Deterministic; fails only if N coincides with Cα or with C
// (ErrDegenerateGeometry from geom.Unit propagates to the caller, which
// marks the residue INVALID and continues).
func Synthesize(ca, n, c geom.Vec3, p Params) (geom.Vec3, error) {
	u1, err := geom.Unit(geom.Sub(ca, n))
	if err != nil {
		return geom.Vec3{}, err
	}
	u2, err := geom.Unit(geom.Sub(c, n))
	if err != nil {
		return geom.Vec3{}, err
	}

	// v3 = -u1/3 - ((-u1/2 - u2*sqrt(3)/2) * sqrt(8/3))
	v3 := buildAuxiliary(u1, u2)
	// v4 is the analogous construction with u1 and u2 swapped. It
	// supplies the rotation axis for the first rotation.
	v4 := buildAuxiliary(u2, u1)

	axis, err := geom.Unit(v4)
	if err != nil {
		return geom.Vec3{}, err
	}

	alphaRad := p.AlphaDeg * math.Pi / 180.0
	betaRad := p.BetaDeg * math.Pi / 180.0

	rotated := geom.Rotate(v3, axis, alphaRad)
	rotated = geom.Rotate(rotated, u2, betaRad)

	dir, err := geom.Unit(rotated)
	if err != nil {
		return geom.Vec3{}, err
	}

	return geom.Add(ca, geom.Scale(dir, p.Bond)), nil
}

// buildAuxiliary computes -a/3 - ((-a/2 - b*sqrt(3)/2) * sqrt(8/3)) for
// the pair (a, b), the shared shape behind both v3 (a=u1, b=u2) and its
// analogue v4 (a=u2, b=u1).
func buildAuxiliary(a, b geom.Vec3) geom.Vec3 {
	inner := geom.Sub(geom.Scale(a, -0.5), geom.Scale(b, sqrt3Over2))
	return geom.Sub(geom.Scale(a, -1.0/3.0), geom.Scale(inner, sqrt8Over3))
}
