// Package feature computes the fixed-length numeric descriptor for a
// residue pair (i, j): cosines between local backbone tangents, one
// Euclidean distance, and two signed sequence-separation terms. The
// positional order of the ten slots is a protocol with the trained
// embedding network. Slots below names each one, so a reordering is
// caught at a glance rather than by silently retraining a network
// against shuffled inputs.
package feature

import (
	"math"

	"github.com/sarat-asymmetrica/fold3di/internal/geom"
)

// N is the fixed descriptor length.
const N = 10

// Slots names the semantic of each positional feature. Index order must
// never change without an asset-version bump.
var Slots = [N]string{
	0: "u1.u2",
	1: "u3.u4",
	2: "u1.u5",
	3: "u3.u5",
	4: "u1.u4",
	5: "u2.u3",
	6: "u1.u3",
	7: "dist(ca_i, ca_j)",
	8: "sign(j-i) * min(|j-i|, 4)",
	// NOTE: feature 9 is intentionally asymmetric with feature 8. It is
	// unclipped natural log, feature 8 is clipped linear. Both are signed
	// by partner direction. Not a bug to "fix".
	9: "sign(j-i) * log(|j-i|+1)",
}

// sequenceClip is the clip bound for feature 8.
const sequenceClip = 4.0

// Extract computes the descriptor for residue pair (i, j) given the
// chain's Cα positions. Requires i-1, i+1, j-1, j+1 to all be valid
// indices into ca; the driver only calls Extract once the partner
// selector has already established that both neighbourhoods exist.
// Returns geom.ErrDegenerateGeometry if any of the five tangents is
// undefined (coincident Cα atoms).
func Extract(ca []geom.Vec3, i, j int) ([N]float64, error) {
	var out [N]float64

	u1, err := geom.Unit(geom.Sub(ca[i], ca[i-1]))
	if err != nil {
		return out, err
	}
	u2, err := geom.Unit(geom.Sub(ca[i+1], ca[i]))
	if err != nil {
		return out, err
	}
	u3, err := geom.Unit(geom.Sub(ca[j], ca[j-1]))
	if err != nil {
		return out, err
	}
	u4, err := geom.Unit(geom.Sub(ca[j+1], ca[j]))
	if err != nil {
		return out, err
	}
	u5, err := geom.Unit(geom.Sub(ca[j], ca[i]))
	if err != nil {
		return out, err
	}

	sep := j - i
	sign := 1.0
	if sep < 0 {
		sign = -1.0
		sep = -sep
	}

	clipped := float64(sep)
	if clipped > sequenceClip {
		clipped = sequenceClip
	}

	out[0] = geom.Dot(u1, u2)
	out[1] = geom.Dot(u3, u4)
	out[2] = geom.Dot(u1, u5)
	out[3] = geom.Dot(u3, u5)
	out[4] = geom.Dot(u1, u4)
	out[5] = geom.Dot(u2, u3)
	out[6] = geom.Dot(u1, u3)
	out[7] = geom.Dist(ca[i], ca[j])
	out[8] = sign * clipped
	out[9] = sign * math.Log(float64(sep)+1)

	return out, nil
}
