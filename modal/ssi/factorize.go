package ssi

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/algo-oma/internal/linalg"
)

// Factorization holds the truncated observability matrix obtained from the
// subspace matrix, from which state-space realizations of any order up to
// MaxOrder can be read.
type Factorization struct {
	// Obs is the extended observability matrix U1*sqrt(S1), with
	// blockRows*Channels rows and MaxOrder columns.
	Obs *mat.Dense
	// SingularValues are the singular values of the subspace matrix,
	// descending; useful for order selection diagnostics.
	SingularValues []float64
	// Channels is the output channel count, the block row height of Obs.
	Channels int
	// MaxOrder is the largest realizable model order.
	MaxOrder int
}

// rankRcond is the relative singular value cutoff below which the
// subspace is treated as rank deficient.
const rankRcond = 1e-12

// Factorize decomposes the subspace matrix h and keeps the leading
// maxOrder directions. channels is the output channel count (the Hankel
// block height). If the numerical rank of h falls below maxOrder the
// requested order cannot be realized and ErrRankDeficient is returned.
func Factorize(h *mat.Dense, channels, maxOrder int) (*Factorization, error) {
	if h == nil {
		return nil, ErrNoData
	}
	rows, cols := h.Dims()
	if channels < 1 || rows%channels != 0 {
		return nil, fmt.Errorf("ssi: %d rows do not divide into %d channels", rows, channels)
	}
	if maxOrder < 1 || maxOrder > cols {
		return nil, fmt.Errorf("ssi: max order %d out of range 1..%d", maxOrder, cols)
	}
	if rows < maxOrder+channels {
		return nil, fmt.Errorf("ssi: %d block rows cannot support order %d", rows/channels, maxOrder)
	}

	var svd mat.SVD
	if !svd.Factorize(h, mat.SVDThin) {
		return nil, linalg.ErrFactorize
	}
	sv := svd.Values(nil)
	rank := linalg.Rank(sv, rankRcond)
	if rank < maxOrder {
		return nil, fmt.Errorf("%w: rank %d, order %d", ErrRankDeficient, rank, maxOrder)
	}

	var u mat.Dense
	svd.UTo(&u)

	obs := mat.NewDense(rows, maxOrder, nil)
	for j := range maxOrder {
		root := math.Sqrt(sv[j])
		for i := range rows {
			obs.Set(i, j, u.At(i, j)*root)
		}
	}

	return &Factorization{
		Obs:            obs,
		SingularValues: sv,
		Channels:       channels,
		MaxOrder:       maxOrder,
	}, nil
}

// Realize returns the discrete state matrix A and output matrix C of the
// order-n truncation. A follows from the shift invariance of the
// observability matrix, solved in the least squares sense; C is its first
// block row.
func (f *Factorization) Realize(order int) (a, c *mat.Dense, err error) {
	if order < 1 || order > f.MaxOrder {
		return nil, nil, fmt.Errorf("ssi: order %d out of range 1..%d", order, f.MaxOrder)
	}
	rows, _ := f.Obs.Dims()
	l := f.Channels

	obs := f.Obs.Slice(0, rows, 0, order).(*mat.Dense)
	upper := obs.Slice(0, rows-l, 0, order).(*mat.Dense)
	lower := obs.Slice(l, rows, 0, order).(*mat.Dense)

	a, err = linalg.LeastSquares(upper, lower, rankRcond)
	if err != nil {
		return nil, nil, err
	}

	c = mat.NewDense(l, order, nil)
	c.Copy(obs.Slice(0, l, 0, order))
	return a, c, nil
}
