package threedi

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarat-asymmetrica/fold3di/internal/asset"
	"github.com/sarat-asymmetrica/fold3di/internal/feature"
	"github.com/sarat-asymmetrica/fold3di/internal/geom"
	"github.com/sarat-asymmetrica/fold3di/internal/network"
	"github.com/sarat-asymmetrica/fold3di/internal/partner"
	"github.com/sarat-asymmetrica/fold3di/internal/vcenter"
)

// testAsset builds a small, fully synthetic asset: a single linear
// layer projecting the 10-dim descriptor down to 2 dims (taking
// features 0 and 7, the first cosine and the Euclidean distance), and
// four centroids spread out in that 2-d embedding space.
func testAsset() *Asset {
	weights := make([]float64, 2*feature.N)
	weights[0*feature.N+0] = 1 // row 0 picks out feature 0
	weights[1*feature.N+7] = 1 // row 1 picks out feature 7

	return &asset.Asset{
		F: feature.N,
		E: 2,
		K: 4,
		VCenter: vcenter.Params{
			AlphaDeg: 270,
			BetaDeg:  0,
			Bond:     2.0,
		},
		PenaltyWeight: 0.1,
		DMax:          4,
		Network: network.Network{Layers: []network.Layer{
			{
				Rows:       2,
				Cols:       feature.N,
				Weights:    weights,
				Biases:     []float64{0, 0},
				Activation: network.Identity,
			},
		}},
		Centroids: [][]float64{
			{1, 0},
			{-1, 0},
			{0, 10},
			{0, 20},
		},
	}
}

func straightChain(n int) Chain {
	ca := make([]geom.Vec3, n)
	nn := make([]geom.Vec3, n)
	cc := make([]geom.Vec3, n)
	cb := make([]geom.Vec3, n)
	nan := math.NaN()
	for i := 0; i < n; i++ {
		ca[i] = geom.Vec3{X: float64(i) * 3.8}
		nn[i] = geom.Vec3{X: float64(i)*3.8 - 1, Y: 0.5}
		cc[i] = geom.Vec3{X: float64(i)*3.8 + 1, Y: 0.5}
		cb[i] = geom.Vec3{X: nan, Y: nan, Z: nan}
	}
	return Chain{CA: ca, N: nn, C: cc, Cb: cb}
}

func helixChain(n int) Chain {
	ca := make([]geom.Vec3, n)
	nn := make([]geom.Vec3, n)
	cc := make([]geom.Vec3, n)
	cb := make([]geom.Vec3, n)
	nan := math.NaN()

	const radius = 2.3
	const pitch = 5.4
	const residuesPerTurn = 3.6

	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * float64(i) / residuesPerTurn
		z := pitch * float64(i) / residuesPerTurn
		ca[i] = geom.Vec3{X: radius * math.Cos(theta), Y: radius * math.Sin(theta), Z: z}
		// Offset N/C slightly off the helix axis so local frames stay
		// well-defined (non-collinear) at every residue.
		nn[i] = geom.Vec3{X: ca[i].X - 0.5, Y: ca[i].Y, Z: ca[i].Z - 0.3}
		cc[i] = geom.Vec3{X: ca[i].X + 0.5, Y: ca[i].Y, Z: ca[i].Z + 0.3}
		cb[i] = geom.Vec3{X: nan, Y: nan, Z: nan}
	}
	return Chain{CA: ca, N: nn, C: cc, Cb: cb}
}

func TestEncodeOutputLengthMatchesInput(t *testing.T) {
	a := testAsset()
	chain := helixChain(20)
	res, err := Encode(context.Background(), a, chain)
	require.NoError(t, err)
	assert.Len(t, res.States, 20)
	assert.Len(t, res.Valid, 20)
}

func TestEncodeAlphabetRange(t *testing.T) {
	a := testAsset()
	chain := helixChain(20)
	res, err := Encode(context.Background(), a, chain)
	require.NoError(t, err)
	for _, s := range res.States {
		assert.GreaterOrEqual(t, s, 0)
		assert.LessOrEqual(t, s, a.K)
	}
}

func TestEncodeEndpointsAreInvalid(t *testing.T) {
	a := testAsset()
	chain := helixChain(20)
	res, err := Encode(context.Background(), a, chain)
	require.NoError(t, err)
	assert.Equal(t, a.K, res.States[0])
	assert.Equal(t, a.K, res.States[len(res.States)-1])
	assert.False(t, res.Valid[0])
	assert.False(t, res.Valid[len(res.Valid)-1])
}

func TestEncodeDeterministic(t *testing.T) {
	a := testAsset()
	chain := helixChain(20)
	r1, err := Encode(context.Background(), a, chain)
	require.NoError(t, err)
	r2, err := Encode(context.Background(), a, chain)
	require.NoError(t, err)
	assert.Equal(t, r1.States, r2.States)
	assert.Equal(t, r1.Valid, r2.Valid)
}

func TestEncodeLShortChainAllInvalid(t *testing.T) {
	a := testAsset()
	chain := straightChain(2)
	res, err := Encode(context.Background(), a, chain)
	require.NoError(t, err)
	assert.Equal(t, []int{a.K, a.K}, res.States)
}

func TestEncodeInputShapeMismatch(t *testing.T) {
	a := testAsset()
	chain := straightChain(5)
	chain.N = chain.N[:4]
	_, err := Encode(context.Background(), a, chain)
	require.ErrorIs(t, err, ErrInputShapeMismatch)
}

func TestEncodeTranslationInvariance(t *testing.T) {
	a := testAsset()
	chain := helixChain(20)
	shift := geom.Vec3{X: 17.3, Y: -4.1, Z: 2.2}
	shifted := Chain{
		CA: translateAll(chain.CA, shift),
		N:  translateAll(chain.N, shift),
		C:  translateAll(chain.C, shift),
		Cb: chain.Cb, // still all-NaN; translating NaN is still NaN
	}

	r1, err := Encode(context.Background(), a, chain)
	require.NoError(t, err)
	r2, err := Encode(context.Background(), a, shifted)
	require.NoError(t, err)
	assert.Equal(t, r1.States, r2.States)
}

func translateAll(vs []geom.Vec3, shift geom.Vec3) []geom.Vec3 {
	out := make([]geom.Vec3, len(vs))
	for i, v := range vs {
		out[i] = geom.Add(v, shift)
	}
	return out
}

func TestEncodeRotationInvariance(t *testing.T) {
	a := testAsset()
	chain := helixChain(20)

	axis, err := geom.Unit(geom.Vec3{X: 0.3, Y: -0.7, Z: 0.4})
	require.NoError(t, err)
	const theta = 1.1 // radians, an arbitrary non-axis-aligned angle

	rotated := Chain{
		CA: rotateAll(chain.CA, axis, theta),
		N:  rotateAll(chain.N, axis, theta),
		C:  rotateAll(chain.C, axis, theta),
		Cb: chain.Cb, // still all-NaN; rotating NaN is still NaN
	}

	r1, err := Encode(context.Background(), a, chain)
	require.NoError(t, err)
	r2, err := Encode(context.Background(), a, rotated)
	require.NoError(t, err)
	assert.Equal(t, r1.States, r2.States)
}

func rotateAll(vs []geom.Vec3, axis geom.Vec3, theta float64) []geom.Vec3 {
	out := make([]geom.Vec3, len(vs))
	for i, v := range vs {
		out[i] = geom.Rotate(v, axis, theta)
	}
	return out
}

func TestEncodeMissingCbMatchesSynthesizedCb(t *testing.T) {
	a := testAsset()
	chain := helixChain(20)

	withExplicitCb := chain
	withExplicitCb.Cb = make([]geom.Vec3, len(chain.Cb))
	for i := range chain.Cb {
		v, err := vcenter.Synthesize(chain.CA[i], chain.N[i], chain.C[i], a.VCenter)
		require.NoError(t, err)
		withExplicitCb.Cb[i] = v
	}

	r1, err := Encode(context.Background(), a, chain) // Cb all missing
	require.NoError(t, err)
	r2, err := Encode(context.Background(), a, withExplicitCb) // Cb == synthesized
	require.NoError(t, err)
	assert.Equal(t, r1.States, r2.States)
}

func TestEncodeDegeneratePairMarksResidueInvalid(t *testing.T) {
	a := testAsset()
	chain := straightChain(20)
	chain.CA[5] = chain.CA[6] // coincident Cα atoms

	res, err := Encode(context.Background(), a, chain)
	require.NoError(t, err)
	assert.Equal(t, a.K, res.States[5])
}

func TestEncodeRespectsCancellation(t *testing.T) {
	a := testAsset()
	chain := helixChain(20)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Encode(ctx, a, chain)
	require.Error(t, err)
}

func TestEncodeMirroringGenerallyChangesOutput(t *testing.T) {
	// Feature 8/9 preserve the sign of j-i, but virtual-center
	// construction is chiral, so mirroring coordinates through a plane
	// should generally change at least some residue states.
	a := testAsset()
	chain := helixChain(20)
	mirrored := Chain{
		CA: mirrorX(chain.CA),
		N:  mirrorX(chain.N),
		C:  mirrorX(chain.C),
		Cb: chain.Cb,
	}

	r1, err := Encode(context.Background(), a, chain)
	require.NoError(t, err)
	r2, err := Encode(context.Background(), a, mirrored)
	require.NoError(t, err)

	differs := false
	for i := range r1.States {
		if r1.States[i] != r2.States[i] {
			differs = true
			break
		}
	}
	assert.True(t, differs, "mirrored chain should rarely reproduce identical states")
}

func mirrorX(vs []geom.Vec3) []geom.Vec3 {
	out := make([]geom.Vec3, len(vs))
	for i, v := range vs {
		out[i] = geom.Vec3{X: -v.X, Y: v.Y, Z: v.Z}
	}
	return out
}

func TestPartnerSeparationHasNoSystematicBias(t *testing.T) {
	// Empirical check that partner selection carries no systematic bias
	// toward positive or negative separation on a chain with no
	// asymmetric structure to prefer one direction.
	a := testAsset()
	chain := straightChain(60)
	effective := make([]geom.Vec3, len(chain.CA))
	copy(effective, chain.CA)

	partnerOf, valid := partner.Select(effective, a.PartnerParams())
	positive, negative := 0, 0
	for i, v := range valid {
		if !v {
			continue
		}
		if partnerOf[i] > i {
			positive++
		} else if partnerOf[i] < i {
			negative++
		}
	}
	// On a symmetric straight chain, the split should not be wildly
	// lopsided (allow generous slack: this is not a statistical test,
	// just a sanity bound).
	total := positive + negative
	require.Greater(t, total, 0)
	ratio := float64(positive) / float64(total)
	assert.InDelta(t, 0.5, ratio, 0.3)
}
