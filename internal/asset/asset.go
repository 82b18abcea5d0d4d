// Package asset parses the frozen, versioned binary bundle describing
// the embedding network's layers, the centroid table, and the
// geometric constants the virtual-center synthesiser and partner
// selector depend on. The loader favours a single validated pass that
// fully materializes every layer into contiguous buffers, rejecting
// partial or inconsistent data outright rather than lazily loading it.
package asset

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/sarat-asymmetrica/fold3di/internal/network"
	"github.com/sarat-asymmetrica/fold3di/internal/partner"
	"github.com/sarat-asymmetrica/fold3di/internal/vcenter"
)

// ErrAssetMalformed is returned when the asset blob cannot be parsed or
// has inconsistent dimensions. Fatal at load time: no meaningful
// partial result exists once the bundle itself cannot be trusted.
var ErrAssetMalformed = errors.New("asset: malformed asset")

// precisionTag values for the header's declared float width.
const (
	precisionFloat32 uint32 = 4
	precisionFloat64 uint32 = 8
)

// Asset is the immutable bundle loaded once per process and shared
// read-only by every caller.
type Asset struct {
	F int // feature vector length
	E int // embedding length
	K int // number of centroids / alphabet size

	VCenter       vcenter.Params
	PenaltyWeight float64 // w in cost(i,j) = dist + w*f(|j-i|)
	DMax          int     // clip bound for the sequence-penalty function

	Network   network.Network
	Centroids [][]float64 // K rows of length E
}

// PartnerParams builds the partner.Params this asset describes. Built
// on demand rather than stored, since the penalty function is a closure
// and therefore not itself part of the serialized wire format: only
// PenaltyWeight and DMax are persisted.
func (a *Asset) PartnerParams() partner.Params {
	return partner.Params{
		Weight:  a.PenaltyWeight,
		Penalty: partner.ClippedLinear(a.DMax),
	}
}

// Load parses a binary asset blob: header, centroid table (K·E
// numbers), then a list of layers, each
// (rows, cols, activation_tag, weights[rows·cols], biases[rows]).
// Numbers are little-endian floats of the width the header declares.
func Load(r io.Reader) (*Asset, error) {
	br := &byteReader{r: r}

	version := br.u32()
	precision := br.u32()
	f := int(br.u32())
	e := int(br.u32())
	k := int(br.u32())
	alphaDeg := br.f64(precision)
	betaDeg := br.f64(precision)
	bond := br.f64(precision)
	penaltyWeight := br.f64(precision)
	dMax := int(br.u32())
	numLayers := int(br.u32())
	if br.err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrAssetMalformed, br.err)
	}
	if version == 0 {
		return nil, fmt.Errorf("%w: unsupported asset version 0", ErrAssetMalformed)
	}
	if precision != precisionFloat32 && precision != precisionFloat64 {
		return nil, fmt.Errorf("%w: unsupported precision tag %d", ErrAssetMalformed, precision)
	}
	if f <= 0 || e <= 0 || k <= 0 {
		return nil, fmt.Errorf("%w: non-positive dimension F=%d E=%d K=%d", ErrAssetMalformed, f, e, k)
	}

	centroids := make([][]float64, k)
	for i := 0; i < k; i++ {
		centroids[i] = br.f64Slice(precision, e)
	}
	if br.err != nil {
		return nil, fmt.Errorf("%w: reading centroid table: %v", ErrAssetMalformed, br.err)
	}

	layers := make([]network.Layer, numLayers)
	for i := 0; i < numLayers; i++ {
		rows := int(br.u32())
		cols := int(br.u32())
		tag := br.u32()
		if br.err != nil {
			return nil, fmt.Errorf("%w: reading layer %d header: %v", ErrAssetMalformed, i, br.err)
		}
		act, err := activationFromTag(tag)
		if err != nil {
			return nil, fmt.Errorf("%w: layer %d: %v", ErrAssetMalformed, i, err)
		}
		weights := br.f64Slice(precision, rows*cols)
		biases := br.f64Slice(precision, rows)
		if br.err != nil {
			return nil, fmt.Errorf("%w: reading layer %d body: %v", ErrAssetMalformed, i, br.err)
		}
		layers[i] = network.Layer{
			Rows:       rows,
			Cols:       cols,
			Weights:    weights,
			Biases:     biases,
			Activation: act,
		}
	}

	a := &Asset{
		F: f,
		E: e,
		K: k,
		VCenter: vcenter.Params{
			AlphaDeg: alphaDeg,
			BetaDeg:  betaDeg,
			Bond:     bond,
		},
		PenaltyWeight: penaltyWeight,
		DMax:          dMax,
		Network:       network.Network{Layers: layers},
		Centroids: centroids,
	}

	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Validate checks every dimension the asset declares against the
// data actually present: the network's layer chain against (F, E), and
// every centroid row's length against E. Callers may re-run Validate
// independently of Load (e.g. after round-tripping through serialization
// in a test) without re-parsing the blob.
func (a *Asset) Validate() error {
	if err := a.Network.Validate(a.F, a.E); err != nil {
		return fmt.Errorf("%w: %v", ErrAssetMalformed, err)
	}
	if len(a.Centroids) != a.K {
		return fmt.Errorf("%w: centroid table has %d rows, want K=%d", ErrAssetMalformed, len(a.Centroids), a.K)
	}
	for i, c := range a.Centroids {
		if len(c) != a.E {
			return fmt.Errorf("%w: centroid %d has %d components, want E=%d", ErrAssetMalformed, i, len(c), a.E)
		}
	}
	return nil
}

func activationFromTag(tag uint32) (network.Activation, error) {
	switch tag {
	case 0:
		return network.Identity, nil
	case 1:
		return network.ReLU, nil
	case 2:
		return network.Tanh, nil
	case 3:
		return network.Sigmoid, nil
	case 4:
		return network.Softmax, nil
	default:
		return 0, fmt.Errorf("unknown activation tag %d", tag)
	}
}

func tagFromActivation(a network.Activation) uint32 {
	switch a {
	case network.Identity:
		return 0
	case network.ReLU:
		return 1
	case network.Tanh:
		return 2
	case network.Sigmoid:
		return 3
	case network.Softmax:
		return 4
	default:
		return 0
	}
}

// currentVersion is the asset wire-format version Encode writes.
const currentVersion uint32 = 1

// Encode serializes a into the wire format Load expects, always at
// float64 precision. It is the logical inverse of Load, used to
// round-trip assets built or modified in-process (tests, asset-version
// migration tooling).
func Encode(w io.Writer, a *Asset) error {
	bw := &byteWriter{w: w}

	bw.u32(currentVersion)
	bw.u32(precisionFloat64)
	bw.u32(uint32(a.F))
	bw.u32(uint32(a.E))
	bw.u32(uint32(a.K))
	bw.f64(a.VCenter.AlphaDeg)
	bw.f64(a.VCenter.BetaDeg)
	bw.f64(a.VCenter.Bond)
	bw.f64(a.PenaltyWeight)
	bw.u32(uint32(a.DMax))
	bw.u32(uint32(len(a.Network.Layers)))

	for _, c := range a.Centroids {
		bw.f64Slice(c)
	}

	for _, l := range a.Network.Layers {
		bw.u32(uint32(l.Rows))
		bw.u32(uint32(l.Cols))
		bw.u32(tagFromActivation(l.Activation))
		bw.f64Slice(l.Weights)
		bw.f64Slice(l.Biases)
	}

	return bw.err
}

// byteWriter mirrors byteReader: little-endian scalar helpers with
// sticky-error semantics.
type byteWriter struct {
	w   io.Writer
	err error
}

func (b *byteWriter) u32(v uint32) {
	if b.err != nil {
		return
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, b.err = b.w.Write(buf[:])
}

func (b *byteWriter) f64(v float64) {
	if b.err != nil {
		return
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	_, b.err = b.w.Write(buf[:])
}

func (b *byteWriter) f64Slice(v []float64) {
	for _, x := range v {
		b.f64(x)
		if b.err != nil {
			return
		}
	}
}

// byteReader wraps an io.Reader with little-endian scalar helpers and
// sticky-error semantics: once a read fails, every subsequent helper
// becomes a no-op so call sites can defer error checking to the end of
// a logical section instead of after every field.
type byteReader struct {
	r   io.Reader
	err error
}

func (b *byteReader) u32() uint32 {
	if b.err != nil {
		return 0
	}
	var buf [4]byte
	if _, err := io.ReadFull(b.r, buf[:]); err != nil {
		b.err = err
		return 0
	}
	return binary.LittleEndian.Uint32(buf[:])
}

func (b *byteReader) f64(precision uint32) float64 {
	if b.err != nil {
		return 0
	}
	if precision == precisionFloat32 {
		var buf [4]byte
		if _, err := io.ReadFull(b.r, buf[:]); err != nil {
			b.err = err
			return 0
		}
		bits := binary.LittleEndian.Uint32(buf[:])
		return float64(math.Float32frombits(bits))
	}
	var buf [8]byte
	if _, err := io.ReadFull(b.r, buf[:]); err != nil {
		b.err = err
		return 0
	}
	bits := binary.LittleEndian.Uint64(buf[:])
	return math.Float64frombits(bits)
}

func (b *byteReader) f64Slice(precision uint32, n int) []float64 {
	if b.err != nil {
		return nil
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = b.f64(precision)
		if b.err != nil {
			return nil
		}
	}
	return out
}
