// Package shape provides mode-shape vector utilities shared by the
// frequency-domain and subspace identification packages.
package shape

import (
	"errors"
	"math"
	"math/cmplx"
)

var errLengthMismatch = errors.New("shape: vectors must have same length")

// MAC returns the Modal Assurance Criterion between two complex mode
// shapes: |a^H b|^2 / ((a^H a)(b^H b)), in [0,1]. Identical vectors give
// exactly 1, orthogonal vectors 0. Zero-length or zero-norm input gives 0.
func MAC(a, b []complex128) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var ab complex128
	var aa, bb float64
	for i := range a {
		ab += cmplx.Conj(a[i]) * b[i]
		aa += real(a[i])*real(a[i]) + imag(a[i])*imag(a[i])
		bb += real(b[i])*real(b[i]) + imag(b[i])*imag(b[i])
	}

	den := aa * bb
	if den == 0 {
		return 0
	}

	num := real(ab)*real(ab) + imag(ab)*imag(ab)
	return num / den
}

// Normalize returns a copy of v scaled to unit Euclidean norm. A zero
// vector is returned unchanged.
func Normalize(v []complex128) []complex128 {
	out := make([]complex128, len(v))
	nrm := 0.0
	for _, c := range v {
		nrm += real(c)*real(c) + imag(c)*imag(c)
	}
	if nrm == 0 {
		copy(out, v)
		return out
	}

	inv := complex(1/math.Sqrt(nrm), 0)
	for i, c := range v {
		out[i] = c * inv
	}
	return out
}

// AlignPhase returns a copy of v rotated so its largest-magnitude
// component is real and positive. Mode shapes are only defined up to a
// unit phase; aligning makes shapes comparable across runs and setups.
func AlignPhase(v []complex128) []complex128 {
	out := make([]complex128, len(v))
	copy(out, v)

	maxIdx := -1
	maxAbs := 0.0
	for i, c := range v {
		if a := cmplx.Abs(c); a > maxAbs {
			maxAbs = a
			maxIdx = i
		}
	}
	if maxIdx < 0 || maxAbs == 0 {
		return out
	}

	rot := cmplx.Conj(v[maxIdx]) / complex(maxAbs, 0)
	for i := range out {
		out[i] *= rot
	}
	return out
}

// ScaleTo returns v scaled so that component idx equals one, the usual
// presentation for merged multi-setup shapes referenced to a shared channel.
func ScaleTo(v []complex128, idx int) ([]complex128, error) {
	if idx < 0 || idx >= len(v) {
		return nil, errors.New("shape: scale index out of range")
	}
	ref := v[idx]
	if ref == 0 {
		return nil, errors.New("shape: scale component is zero")
	}

	out := make([]complex128, len(v))
	for i, c := range v {
		out[i] = c / ref
	}
	return out, nil
}

// Real projects a complex shape onto the real axis after phase alignment,
// for consumers that draw real-valued displacements.
func Real(v []complex128) []float64 {
	aligned := AlignPhase(v)
	out := make([]float64, len(aligned))
	for i, c := range aligned {
		out[i] = real(c)
	}
	return out
}

// MACMatrix returns the pairwise MAC between the columns of two mode sets.
func MACMatrix(a, b [][]complex128) ([][]float64, error) {
	out := make([][]float64, len(a))
	for i := range a {
		out[i] = make([]float64, len(b))
		for j := range b {
			if len(a[i]) != len(b[j]) {
				return nil, errLengthMismatch
			}
			out[i][j] = MAC(a[i], b[j])
		}
	}
	return out, nil
}
