package ssi

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Errors returned by the subspace identification stages.
var (
	ErrNoData         = errors.New("ssi: no input data")
	ErrChannelLength  = errors.New("ssi: channels must share the same length")
	ErrShortRecord    = errors.New("ssi: record too short for the block row count")
	ErrRankDeficient  = errors.New("ssi: subspace rank below requested model order")
	ErrNoMatchingPole = errors.New("ssi: no stable pole near target frequency")
)

// Method selects how the block Hankel matrix is assembled from the data.
type Method int

const (
	// MethodData projects the future data row space onto the past
	// reference row space (data-driven SSI).
	MethodData Method = iota
	// MethodCovBiased builds the block Toeplitz matrix from biased
	// lag covariance estimates (1/N normalization).
	MethodCovBiased
	// MethodCovUnbiased uses unbiased lag covariances (1/(N-lag)).
	MethodCovUnbiased
	// MethodCovMatmul forms the same biased covariance Toeplitz matrix
	// as a single product of stacked Hankel matrices.
	MethodCovMatmul
)

// String returns the method name.
func (m Method) String() string {
	switch m {
	case MethodData:
		return "dat"
	case MethodCovBiased:
		return "cov"
	case MethodCovUnbiased:
		return "cov-unbiased"
	case MethodCovMatmul:
		return "cov-matmul"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// BuildHankel assembles the subspace matrix from channel-major data y and
// the reference subset yref (nil means all channels are references).
// blockRows sets the number of block rows of both the past and future
// partitions. The result has blockRows*len(y) rows and blockRows*len(yref)
// columns for every method, so the factorization step is method-agnostic.
func BuildHankel(y, yref [][]float64, blockRows int, method Method) (*mat.Dense, error) {
	if len(y) == 0 || len(y[0]) == 0 {
		return nil, ErrNoData
	}
	if yref == nil {
		yref = y
	}
	n := len(y[0])
	for _, ch := range y {
		if len(ch) != n {
			return nil, ErrChannelLength
		}
	}
	for _, ch := range yref {
		if len(ch) != n {
			return nil, ErrChannelLength
		}
	}
	if blockRows < 1 {
		return nil, fmt.Errorf("ssi: block rows must be positive, got %d", blockRows)
	}
	if n < 2*blockRows+1 {
		return nil, fmt.Errorf("%w: %d samples, %d block rows", ErrShortRecord, n, blockRows)
	}

	switch method {
	case MethodData:
		return dataHankel(y, yref, blockRows)
	case MethodCovBiased:
		return covarianceToeplitz(y, yref, blockRows, false)
	case MethodCovUnbiased:
		return covarianceToeplitz(y, yref, blockRows, true)
	case MethodCovMatmul:
		return covarianceMatmul(y, yref, blockRows)
	default:
		return nil, fmt.Errorf("ssi: unknown method %d", int(method))
	}
}

// blockHankel stacks p block rows of data, block row i holding
// data[:, offset+i : offset+i+cols], scaled by 1/sqrt(cols).
func blockHankel(data [][]float64, p, offset, cols int) *mat.Dense {
	l := len(data)
	h := mat.NewDense(p*l, cols, nil)
	scale := 1 / math.Sqrt(float64(cols))
	for i := range p {
		for ch := range l {
			row := h.RawRowView(i*l + ch)
			src := data[ch][offset+i : offset+i+cols]
			for k, v := range src {
				row[k] = v * scale
			}
		}
	}
	return h
}

// dataHankel computes the projection of the future output row space onto
// the past reference row space via the LQ factorization of the stacked
// Hankel matrix, returning the L21 block. Its column space equals that of
// the full projection matrix, which is all the factorization needs.
func dataHankel(y, yref [][]float64, p int) (*mat.Dense, error) {
	n := len(y[0])
	cols := n - 2*p + 1
	past := blockHankel(yref, p, 0, cols)
	future := blockHankel(y, p, p, cols)

	pr, _ := past.Dims()
	fr, _ := future.Dims()
	if cols < pr+fr {
		return nil, fmt.Errorf("%w: %d columns for %d stacked rows", ErrShortRecord, cols, pr+fr)
	}

	// LQ of [past; future] through QR of the transpose.
	stacked := mat.NewDense(cols, pr+fr, nil)
	stacked.Slice(0, cols, 0, pr).(*mat.Dense).Copy(past.T())
	stacked.Slice(0, cols, pr, pr+fr).(*mat.Dense).Copy(future.T())

	var qr mat.QR
	qr.Factorize(stacked)
	var r mat.Dense
	qr.RTo(&r)

	// L = R' is lower triangular; L21 = future rows, past columns.
	l21 := mat.NewDense(fr, pr, nil)
	for i := range fr {
		for j := range pr {
			l21.Set(i, j, r.At(j, pr+i))
		}
	}
	return l21, nil
}

// covarianceToeplitz builds the block Toeplitz matrix of output/reference
// lag covariances R_1 .. R_{2p-1}, block (a,b) holding R_{p+a-b}.
func covarianceToeplitz(y, yref [][]float64, p int, unbiased bool) (*mat.Dense, error) {
	lags, err := LagCovariances(y, yref, 2*p-1, unbiased)
	if err != nil {
		return nil, err
	}
	return ToeplitzFromLags(lags, p)
}

// LagCovariances estimates the cross covariance blocks between outputs y
// and references yref for lags 1..maxLag. Entry lag-1 of the result holds
// the len(y) x len(yref) block at that lag. The biased estimator
// normalizes every lag by the record length, the unbiased one by the
// overlap count.
func LagCovariances(y, yref [][]float64, maxLag int, unbiased bool) ([]*mat.Dense, error) {
	if len(y) == 0 || len(y[0]) == 0 {
		return nil, ErrNoData
	}
	if yref == nil {
		yref = y
	}
	l, r := len(y), len(yref)
	n := len(y[0])
	if maxLag < 1 || maxLag >= n {
		return nil, fmt.Errorf("ssi: max lag %d out of range for %d samples", maxLag, n)
	}

	lags := make([]*mat.Dense, maxLag)
	for lag := 1; lag <= maxLag; lag++ {
		cov := mat.NewDense(l, r, nil)
		norm := float64(n)
		if unbiased {
			norm = float64(n - lag)
		}
		for i := range l {
			for j := range r {
				var acc float64
				for k := 0; k < n-lag; k++ {
					acc += y[i][k+lag] * yref[j][k]
				}
				cov.Set(i, j, acc/norm)
			}
		}
		lags[lag-1] = cov
	}
	return lags, nil
}

// ToeplitzFromLags assembles the covariance-driven subspace matrix from
// lag blocks R_1 .. R_{2p-1} (entry lag-1 holding R_lag): block (a,b) of
// the result is R_{p+a-b}.
func ToeplitzFromLags(lags []*mat.Dense, p int) (*mat.Dense, error) {
	if p < 1 || len(lags) < 2*p-1 {
		return nil, fmt.Errorf("ssi: %d lag blocks cannot fill %d block rows", len(lags), p)
	}
	l, r := lags[0].Dims()
	t := mat.NewDense(p*l, p*r, nil)
	for a := range p {
		for b := range p {
			t.Slice(a*l, (a+1)*l, b*r, (b+1)*r).(*mat.Dense).Copy(lags[p+a-b-1])
		}
	}
	return t, nil
}

// covarianceMatmul forms the biased covariance Toeplitz matrix as
// future * past' of the stacked Hankel matrices: block (a,b) of the
// product is the lag p+a-b covariance, the same layout as the explicit
// builder. Faster when gonum can use a blocked multiply.
func covarianceMatmul(y, yref [][]float64, p int) (*mat.Dense, error) {
	n := len(y[0])
	cols := n - 2*p + 1
	past := blockHankel(yref, p, 0, cols)
	future := blockHankel(y, p, p, cols)

	var t mat.Dense
	t.Mul(future, past.T())
	return &t, nil
}
