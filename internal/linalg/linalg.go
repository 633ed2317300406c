// Package linalg wraps the dense linear algebra used by the modal
// identification packages: Hermitian eigen-decomposition of complex
// spectral matrices, eigen-decomposition of real state matrices, and
// rank-revealing least squares.
package linalg

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrNotSquare    = errors.New("linalg: matrix must be square")
	ErrFactorize    = errors.New("linalg: factorization failed")
	ErrPairRecovery = errors.New("linalg: could not recover complex eigenvector pairs")
)

// HermEigen computes the eigen-decomposition of a Hermitian matrix h.
//
// Eigenvalues are returned in descending order with matching unit-norm
// eigenvectors as columns of vecs. For a positive semi-definite input this
// coincides with the singular value decomposition, which is how the spectral
// density matrices are decomposed per frequency line.
//
// The computation embeds the n-by-n complex matrix into the real symmetric
// 2n-by-2n form [[Re, -Im], [Im, Re]] whose spectrum doubles that of h, then
// recovers one complex eigenvector per duplicated pair.
func HermEigen(h *mat.CDense) (vals []float64, vecs *mat.CDense, err error) {
	n, c := h.Dims()
	if n != c {
		return nil, nil, fmt.Errorf("%w: %dx%d", ErrNotSquare, n, c)
	}

	embedded := embedHermitian(h, n)

	var es mat.EigenSym
	if ok := es.Factorize(embedded, true); !ok {
		return nil, nil, fmt.Errorf("%w: hermitian eigen-decomposition", ErrFactorize)
	}

	// gonum returns ascending eigenvalues; traversal below walks descending.
	ascVals := es.Values(nil)

	var ascVecs mat.Dense
	es.VectorsTo(&ascVecs)

	return extractComplexPairs(ascVals, &ascVecs, n)
}

// embedHermitian builds the real symmetric embedding of h.
func embedHermitian(h *mat.CDense, n int) *mat.SymDense {
	e := mat.NewSymDense(2*n, nil)
	for i := range n {
		for j := i; j < n; j++ {
			v := h.At(i, j)
			re := real(v)
			im := imag(v)
			e.SetSym(i, j, re)
			e.SetSym(n+i, n+j, re)
			// Upper-right block is -Im; SetSym mirrors, and Im is
			// antisymmetric for Hermitian h, so set both triangles
			// explicitly through the (i, n+j) and (j, n+i) slots.
			e.SetSym(i, n+j, -im)
			if i != j {
				e.SetSym(j, n+i, im)
			}
		}
	}
	return e
}

// extractComplexPairs recovers n complex eigenpairs from the 2n real ones.
//
// Each complex eigenvector z = u + iv appears in the embedding as the real
// pair (u; v) and (-v; u). Walking the real eigenvectors in descending
// eigenvalue order, each candidate is orthogonalized against the complex
// span of the vectors accepted so far; candidates that vanish belong to an
// already-recovered pair and are skipped.
func extractComplexPairs(ascVals []float64, ascVecs *mat.Dense, n int) ([]float64, *mat.CDense, error) {
	const residualTol = 1e-8

	vals := make([]float64, 0, n)
	accepted := make([][]complex128, 0, n)

	for k := 2*n - 1; k >= 0 && len(accepted) < n; k-- {
		z := make([]complex128, n)
		for i := range n {
			z[i] = complex(ascVecs.At(i, k), ascVecs.At(n+i, k))
		}

		for _, a := range accepted {
			p := Dot(a, z)
			for i := range z {
				z[i] -= p * a[i]
			}
		}

		nrm := Norm(z)
		if nrm < residualTol {
			continue
		}

		inv := complex(1/nrm, 0)
		for i := range z {
			z[i] *= inv
		}

		accepted = append(accepted, z)
		vals = append(vals, ascVals[k])
	}

	if len(accepted) != n {
		return nil, nil, fmt.Errorf("%w: recovered %d of %d", ErrPairRecovery, len(accepted), n)
	}

	vecs := mat.NewCDense(n, n, nil)
	for j, z := range accepted {
		for i := range n {
			vecs.Set(i, j, z[i])
		}
	}

	return vals, vecs, nil
}

// Eigen computes the eigenvalues and right eigenvectors of a real square
// matrix, as needed for the discrete state matrices of subspace models.
func Eigen(a *mat.Dense) (vals []complex128, vecs *mat.CDense, err error) {
	n, c := a.Dims()
	if n != c {
		return nil, nil, fmt.Errorf("%w: %dx%d", ErrNotSquare, n, c)
	}

	var eig mat.Eigen
	if ok := eig.Factorize(a, mat.EigenRight); !ok {
		return nil, nil, fmt.Errorf("%w: eigen-decomposition", ErrFactorize)
	}

	vals = eig.Values(nil)

	var cv mat.CDense
	eig.VectorsTo(&cv)

	return vals, &cv, nil
}

// SingularValues returns the singular values of a in descending order.
func SingularValues(a mat.Matrix) ([]float64, error) {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDNone); !ok {
		return nil, fmt.Errorf("%w: singular values", ErrFactorize)
	}
	return svd.Values(nil), nil
}

// Rank counts singular values above rcond times the largest one.
func Rank(sv []float64, rcond float64) int {
	if len(sv) == 0 || sv[0] <= 0 {
		return 0
	}
	tol := sv[0] * rcond
	rank := 0
	for _, s := range sv {
		if s > tol {
			rank++
		}
	}
	return rank
}

// PseudoInverse computes the Moore-Penrose pseudo-inverse of a real matrix
// via thin SVD, truncating singular values below rcond times the largest.
func PseudoInverse(a mat.Matrix, rcond float64) (*mat.Dense, error) {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, fmt.Errorf("%w: pseudo-inverse", ErrFactorize)
	}

	sv := svd.Values(nil)

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	tol := 0.0
	if len(sv) > 0 {
		tol = sv[0] * rcond
	}

	// V * S^+ * U^T
	_, k := u.Dims()
	sInv := mat.NewDense(k, k, nil)
	for i, s := range sv {
		if s > tol {
			sInv.Set(i, i, 1/s)
		}
	}

	var tmp, pinv mat.Dense
	tmp.Mul(&v, sInv)
	pinv.Mul(&tmp, u.T())

	return &pinv, nil
}

// LeastSquares solves min ||A X - B||_F via the pseudo-inverse, tolerating
// rank-deficient A.
func LeastSquares(a, b mat.Matrix, rcond float64) (*mat.Dense, error) {
	pinv, err := PseudoInverse(a, rcond)
	if err != nil {
		return nil, err
	}

	var x mat.Dense
	x.Mul(pinv, b)
	return &x, nil
}

// Dot returns the complex inner product conj(a)·b.
func Dot(a, b []complex128) complex128 {
	var sum complex128
	for i := range a {
		sum += cmplx.Conj(a[i]) * b[i]
	}
	return sum
}

// Norm returns the Euclidean norm of a complex vector.
func Norm(a []complex128) float64 {
	sum := 0.0
	for _, v := range a {
		re := real(v)
		im := imag(v)
		sum += re*re + im*im
	}
	return math.Sqrt(sum)
}

// Col copies column j of m into a new slice.
func Col(m *mat.CDense, j int) []complex128 {
	r, _ := m.Dims()
	out := make([]complex128, r)
	for i := range r {
		out[i] = m.At(i, j)
	}
	return out
}

// MulVec computes m·x for a complex matrix and vector.
func MulVec(m *mat.CDense, x []complex128) []complex128 {
	r, c := m.Dims()
	out := make([]complex128, r)
	for i := range r {
		var sum complex128
		for j := range c {
			sum += m.At(i, j) * x[j]
		}
		out[i] = sum
	}
	return out
}
