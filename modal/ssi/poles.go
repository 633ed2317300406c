package ssi

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/algo-oma/internal/linalg"
	"github.com/cwbudde/algo-oma/modal/shape"
)

// Pole is a continuous-time modal estimate recovered from a discrete
// state-space realization.
type Pole struct {
	// Freq is the undamped natural frequency in Hz.
	Freq float64
	// Damping is the viscous damping ratio.
	Damping float64
	// Shape is the complex mode shape, one entry per output channel.
	Shape []complex128
	// Lambda is the continuous-time eigenvalue the estimate derives from.
	Lambda complex128
}

// PoleTable groups the poles found at one model order, sorted by
// ascending frequency.
type PoleTable struct {
	Order int
	Poles []Pole
}

// ExtractPoles realizes the factorization at every order from ordMin to
// ordMax in steps of step and converts the eigenstructure of each
// realization to continuous-time poles. One pole of each conjugate pair
// is kept (positive imaginary part); eigenvalues on or outside the real
// axis, and those mapping to zero frequency, are discarded.
func ExtractPoles(f *Factorization, ordMin, ordMax, step int, dt float64) ([]PoleTable, error) {
	if f == nil {
		return nil, ErrNoData
	}
	if dt <= 0 {
		return nil, fmt.Errorf("ssi: sampling interval must be positive, got %g", dt)
	}
	if step < 1 {
		step = 1
	}
	if ordMin < 1 {
		ordMin = 1
	}
	if ordMax > f.MaxOrder || ordMax < ordMin {
		return nil, fmt.Errorf("ssi: order range %d..%d invalid for max order %d", ordMin, ordMax, f.MaxOrder)
	}

	var tables []PoleTable
	for order := ordMin; order <= ordMax; order += step {
		a, c, err := f.Realize(order)
		if err != nil {
			return nil, err
		}
		poles, err := realizationPoles(a, c, dt)
		if err != nil {
			return nil, fmt.Errorf("ssi: order %d: %w", order, err)
		}
		tables = append(tables, PoleTable{Order: order, Poles: poles})
	}
	return tables, nil
}

// realizationPoles converts the eigenstructure of a discrete (A, C) pair
// to physical poles at sampling interval dt.
func realizationPoles(a, c *mat.Dense, dt float64) ([]Pole, error) {
	vals, vecs, err := linalg.Eigen(a)
	if err != nil {
		return nil, err
	}
	l, order := c.Dims()

	var poles []Pole
	for k, mu := range vals {
		if mu == 0 {
			continue
		}
		lambda := cmplx.Log(mu) / complex(dt, 0)
		if imag(lambda) <= 0 {
			continue
		}
		mag := cmplx.Abs(lambda)
		if mag == 0 || math.IsNaN(mag) || math.IsInf(mag, 0) {
			continue
		}

		phi := make([]complex128, l)
		for i := range l {
			var acc complex128
			for j := range order {
				acc += complex(c.At(i, j), 0) * vecs.At(j, k)
			}
			phi[i] = acc
		}

		poles = append(poles, Pole{
			Freq:    mag / (2 * math.Pi),
			Damping: -real(lambda) / mag,
			Shape:   shape.Normalize(phi),
			Lambda:  lambda,
		})
	}

	sort.Slice(poles, func(i, j int) bool { return poles[i].Freq < poles[j].Freq })
	return poles, nil
}
