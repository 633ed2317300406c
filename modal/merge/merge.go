package merge

import (
	"errors"
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/algo-oma/dsp/spectral"
	"github.com/cwbudde/algo-oma/internal/linalg"
	"github.com/cwbudde/algo-oma/modal/ssi"
)

// Errors returned by the multi-setup merge.
var (
	ErrNoSetups      = errors.New("merge: no setups")
	ErrRefIndices    = errors.New("merge: reference index lists must agree in length and be valid")
	ErrGridMismatch  = errors.New("merge: setups must share the frequency grid")
	ErrDegenerateRef = errors.New("merge: reference block carries no power")
)

// pinvRcond is the relative eigenvalue cutoff of the reference block
// pseudo-inverse used when bridging movers of different setups.
const pinvRcond = 1e-10

// Spectra merges per-setup spectral density matrices sharing a common set
// of reference channels into one extended-channel matrix. Channel order of
// the result: the references first, then each setup's moving channels in
// setup order.
//
// Each setup is aligned to the first by a per-line least squares scale on
// its reference auto block; the merged reference block is the average of
// the aligned blocks, so identical reference records reproduce any single
// setup's reference block. Cross blocks between movers of different
// setups are never measured together and are bridged through the
// reference block.
func Spectra(perSetup []*spectral.Matrix, refIndices [][]int) (*spectral.Matrix, error) {
	if len(perSetup) == 0 {
		return nil, ErrNoSetups
	}
	if len(refIndices) != len(perSetup) {
		return nil, fmt.Errorf("%w: %d lists for %d setups", ErrRefIndices, len(refIndices), len(perSetup))
	}

	nRef := len(refIndices[0])
	movers := make([][]int, len(perSetup))
	for s, sd := range perSetup {
		nOut, nCols := sd.Channels()
		if nOut != nCols {
			return nil, fmt.Errorf("merge: setup %d spectra are %dx%d, need square", s, nOut, nCols)
		}
		var err error
		movers[s], err = moverIndices(nOut, refIndices[s], nRef)
		if err != nil {
			return nil, fmt.Errorf("merge: setup %d: %w", s, err)
		}
		if s > 0 && !sameGrid(perSetup[0], sd) {
			return nil, fmt.Errorf("%w: setup %d", ErrGridMismatch, s)
		}
	}

	nLines := perSetup[0].Lines()
	total := nRef
	for _, m := range movers {
		total += len(m)
	}

	merged := &spectral.Matrix{
		Freq: perSetup[0].Freq,
		Sy:   make([]*mat.CDense, nLines),
		DT:   perSetup[0].DT,
	}

	for f := range nLines {
		sy, err := mergeLine(perSetup, refIndices, movers, nRef, total, f)
		if err != nil {
			return nil, fmt.Errorf("merge: line %d (%.4g Hz): %w", f, perSetup[0].Freq[f], err)
		}
		merged.Sy[f] = sy
	}
	return merged, nil
}

func mergeLine(perSetup []*spectral.Matrix, refIdx, movers [][]int, nRef, total, f int) (*mat.CDense, error) {
	nSetups := len(perSetup)

	// Least squares scale aligning each setup's reference auto block
	// to the first setup's.
	refBlocks := make([]*mat.CDense, nSetups)
	scales := make([]float64, nSetups)
	for s := range nSetups {
		refBlocks[s] = subMatrix(perSetup[s].Sy[f], refIdx[s], refIdx[s])
		if s == 0 {
			scales[s] = 1
			continue
		}
		num := frobInner(refBlocks[0], refBlocks[s])
		den := frobInner(refBlocks[s], refBlocks[s])
		if den == 0 {
			return nil, ErrDegenerateRef
		}
		scales[s] = num / den
	}

	// Merged reference block: mean of the aligned blocks.
	refBar := mat.NewCDense(nRef, nRef, nil)
	for s := range nSetups {
		addScaled(refBar, refBlocks[s], scales[s]/float64(nSetups))
	}

	refPinv, err := hermPinv(refBar)
	if err != nil {
		return nil, err
	}

	// Aligned mover-to-reference cross blocks per setup.
	cross := make([]*mat.CDense, nSetups)
	offsets := make([]int, nSetups)
	off := nRef
	for s := range nSetups {
		offsets[s] = off
		off += len(movers[s])
		if len(movers[s]) == 0 {
			continue
		}
		cross[s] = subMatrix(perSetup[s].Sy[f], movers[s], refIdx[s])
		scaleInPlace(cross[s], scales[s])
	}

	sy := mat.NewCDense(total, total, nil)
	copyBlock(sy, refBar, 0, 0)

	for s := range nSetups {
		ms := len(movers[s])
		if ms == 0 {
			continue
		}
		o := offsets[s]

		for i := range ms {
			for j := range nRef {
				v := cross[s].At(i, j)
				sy.Set(o+i, j, v)
				sy.Set(j, o+i, cmplx.Conj(v))
			}
		}

		own := subMatrix(perSetup[s].Sy[f], movers[s], movers[s])
		scaleInPlace(own, scales[s])
		copyBlock(sy, own, o, o)

		// Movers of different setups were never measured together;
		// bridge them through the reference block.
		for q := s + 1; q < nSetups; q++ {
			mq := len(movers[q])
			if mq == 0 {
				continue
			}
			bridge := bridgeBlock(cross[s], refPinv, cross[q])
			oq := offsets[q]
			for i := range ms {
				for j := range mq {
					v := bridge.At(i, j)
					sy.Set(o+i, oq+j, v)
					sy.Set(oq+j, o+i, cmplx.Conj(v))
				}
			}
		}
	}
	return sy, nil
}

// Covariances merges per-setup lag covariance blocks, referenced to the
// shared channels, into one covariance-driven subspace matrix ready for
// factorization. perSetup holds each setup's channel-major record;
// blockRows and unbiased have the same meaning as in the subspace builder.
// The merged channel count (references first, then movers per setup) is
// returned alongside the matrix.
func Covariances(perSetup [][][]float64, refIndices [][]int, blockRows int, unbiased bool) (*mat.Dense, int, error) {
	if len(perSetup) == 0 {
		return nil, 0, ErrNoSetups
	}
	if len(refIndices) != len(perSetup) {
		return nil, 0, fmt.Errorf("%w: %d lists for %d setups", ErrRefIndices, len(refIndices), len(perSetup))
	}
	if blockRows < 1 {
		return nil, 0, fmt.Errorf("merge: block rows must be positive, got %d", blockRows)
	}

	nRef := len(refIndices[0])
	nSetups := len(perSetup)
	maxLag := 2*blockRows - 1

	lags := make([][]*mat.Dense, nSetups)
	movers := make([][]int, nSetups)
	for s, y := range perSetup {
		var err error
		movers[s], err = moverIndices(len(y), refIndices[s], nRef)
		if err != nil {
			return nil, 0, fmt.Errorf("merge: setup %d: %w", s, err)
		}
		refs := make([][]float64, nRef)
		for j, idx := range refIndices[s] {
			refs[j] = y[idx]
		}
		lags[s], err = ssi.LagCovariances(y, refs, maxLag, unbiased)
		if err != nil {
			return nil, 0, fmt.Errorf("merge: setup %d: %w", s, err)
		}
	}

	// One real scale per setup, fitted over the reference rows of every
	// lag block against the first setup's.
	scales := make([]float64, nSetups)
	scales[0] = 1
	for s := 1; s < nSetups; s++ {
		var num, den float64
		for lag := range maxLag {
			for i, ri := range refIndices[s] {
				r0 := refIndices[0][i]
				for j := range nRef {
					a := lags[0][lag].At(r0, j)
					b := lags[s][lag].At(ri, j)
					num += a * b
					den += b * b
				}
			}
		}
		if den == 0 {
			return nil, 0, ErrDegenerateRef
		}
		scales[s] = num / den
	}

	total := nRef
	for _, m := range movers {
		total += len(m)
	}

	mergedLags := make([]*mat.Dense, maxLag)
	for lag := range maxLag {
		block := mat.NewDense(total, nRef, nil)
		// Reference rows: mean of the aligned setups.
		for i := range nRef {
			for j := range nRef {
				var acc float64
				for s := range nSetups {
					acc += scales[s] * lags[s][lag].At(refIndices[s][i], j)
				}
				block.Set(i, j, acc/float64(nSetups))
			}
		}
		off := nRef
		for s := range nSetups {
			for i, mi := range movers[s] {
				for j := range nRef {
					block.Set(off+i, j, scales[s]*lags[s][lag].At(mi, j))
				}
			}
			off += len(movers[s])
		}
		mergedLags[lag] = block
	}

	h, err := ssi.ToeplitzFromLags(mergedLags, blockRows)
	if err != nil {
		return nil, 0, err
	}
	return h, total, nil
}

// moverIndices returns the channel indices of a setup that are not
// references, in their original order.
func moverIndices(channels int, refs []int, nRef int) ([]int, error) {
	if len(refs) != nRef || nRef < 1 {
		return nil, ErrRefIndices
	}
	isRef := make(map[int]bool, nRef)
	for _, idx := range refs {
		if idx < 0 || idx >= channels || isRef[idx] {
			return nil, fmt.Errorf("%w: index %d", ErrRefIndices, idx)
		}
		isRef[idx] = true
	}
	var movers []int
	for ch := range channels {
		if !isRef[ch] {
			movers = append(movers, ch)
		}
	}
	return movers, nil
}

func sameGrid(a, b *spectral.Matrix) bool {
	if a.Lines() != b.Lines() || a.DT != b.DT {
		return false
	}
	for i := range a.Freq {
		if a.Freq[i] != b.Freq[i] {
			return false
		}
	}
	return true
}

// subMatrix extracts rows and cols of m into a fresh matrix.
func subMatrix(m *mat.CDense, rows, cols []int) *mat.CDense {
	out := mat.NewCDense(len(rows), len(cols), nil)
	for i, r := range rows {
		for j, c := range cols {
			out.Set(i, j, m.At(r, c))
		}
	}
	return out
}

// frobInner is the real part of the Frobenius inner product <a, b>.
func frobInner(a, b *mat.CDense) float64 {
	r, c := a.Dims()
	var acc float64
	for i := range r {
		for j := range c {
			acc += real(cmplx.Conj(a.At(i, j)) * b.At(i, j))
		}
	}
	return acc
}

func addScaled(dst, src *mat.CDense, scale float64) {
	r, c := src.Dims()
	for i := range r {
		for j := range c {
			dst.Set(i, j, dst.At(i, j)+complex(scale, 0)*src.At(i, j))
		}
	}
}

func scaleInPlace(m *mat.CDense, scale float64) {
	r, c := m.Dims()
	for i := range r {
		for j := range c {
			m.Set(i, j, complex(scale, 0)*m.At(i, j))
		}
	}
}

func copyBlock(dst, src *mat.CDense, row, col int) {
	r, c := src.Dims()
	for i := range r {
		for j := range c {
			dst.Set(row+i, col+j, src.At(i, j))
		}
	}
}

// hermPinv computes the pseudo-inverse of a Hermitian positive
// semi-definite block from its eigendecomposition.
func hermPinv(h *mat.CDense) (*mat.CDense, error) {
	vals, vecs, err := linalg.HermEigen(h)
	if err != nil {
		return nil, err
	}
	n := len(vals)
	cutoff := pinvRcond * vals[0]
	if vals[0] <= 0 {
		return nil, ErrDegenerateRef
	}

	out := mat.NewCDense(n, n, nil)
	for k := range n {
		if vals[k] <= cutoff {
			continue
		}
		inv := complex(1/vals[k], 0)
		for i := range n {
			for j := range n {
				out.Set(i, j, out.At(i, j)+inv*vecs.At(i, k)*cmplx.Conj(vecs.At(j, k)))
			}
		}
	}
	return out, nil
}

// bridgeBlock evaluates a * p * b' for the cross-setup mover blocks.
func bridgeBlock(a, p, b *mat.CDense) *mat.CDense {
	ra, k := a.Dims()
	rb, _ := b.Dims()

	ap := mat.NewCDense(ra, k, nil)
	for i := range ra {
		for j := range k {
			var acc complex128
			for t := range k {
				acc += a.At(i, t) * p.At(t, j)
			}
			ap.Set(i, j, acc)
		}
	}

	out := mat.NewCDense(ra, rb, nil)
	for i := range ra {
		for j := range rb {
			var acc complex128
			for t := range k {
				acc += ap.At(i, t) * cmplx.Conj(b.At(j, t))
			}
			out.Set(i, j, acc)
		}
	}
	return out
}
