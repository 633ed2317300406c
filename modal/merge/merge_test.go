package merge

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/algo-oma/dsp/spectral"
	"github.com/cwbudde/algo-oma/modal/ssi"
)

// twoSetups builds two measurement setups sharing two reference channels
// with identical records; each setup adds one distinct moving channel.
// scale multiplies every channel of the second setup.
func twoSetups(n int, dt, scale float64) (s0, s1 [][]float64) {
	ref1 := make([]float64, n)
	ref2 := make([]float64, n)
	mov0 := make([]float64, n)
	mov1 := make([]float64, n)
	for k := range n {
		t := float64(k) * dt
		ref1[k] = math.Sin(2 * math.Pi * 5 * t)
		ref2[k] = math.Sin(2*math.Pi*15*t) + 0.5*math.Sin(2*math.Pi*5*t)
		mov0[k] = 0.8*ref1[k] - 0.3*ref2[k]
		mov1[k] = -0.4*ref1[k] + 0.9*ref2[k]
	}
	s0 = [][]float64{ref1, ref2, mov0}
	s1 = [][]float64{scaled(ref1, scale), scaled(ref2, scale), scaled(mov1, scale)}
	return s0, s1
}

func scaled(x []float64, c float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = c * v
	}
	return out
}

func estimateSquare(t *testing.T, y [][]float64, dt float64) *spectral.Matrix {
	t.Helper()
	sd, err := spectral.Estimate(y, nil, dt, spectral.Config{SegmentLength: 256})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	return sd
}

func TestSpectraReferenceBlockInvariant(t *testing.T) {
	const (
		n  = 1024
		dt = 0.01
	)
	tests := []struct {
		name  string
		scale float64
	}{
		{"identical setups", 1},
		{"second setup scaled", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			y0, y1 := twoSetups(n, dt, tt.scale)
			sd0 := estimateSquare(t, y0, dt)
			sd1 := estimateSquare(t, y1, dt)

			merged, err := Spectra([]*spectral.Matrix{sd0, sd1}, [][]int{{0, 1}, {0, 1}})
			if err != nil {
				t.Fatalf("Spectra: %v", err)
			}

			nOut, nCols := merged.Channels()
			if nOut != 4 || nCols != 4 {
				t.Fatalf("merged channels %dx%d, want 4x4", nOut, nCols)
			}
			if merged.Lines() != sd0.Lines() {
				t.Fatalf("merged lines %d, want %d", merged.Lines(), sd0.Lines())
			}

			// The merged reference block must reproduce the first
			// setup's reference block; with consistent references
			// the aligned second setup contributes the same block.
			for f := range merged.Lines() {
				for i := range 2 {
					for j := range 2 {
						got := merged.Sy[f].At(i, j)
						want := sd0.Sy[f].At(i, j)
						if cmplx.Abs(got-want) > 1e-8 {
							t.Fatalf("line %d ref block (%d,%d): got %v, want %v", f, i, j, got, want)
						}
					}
				}
			}
		})
	}
}

func TestSpectraHermitian(t *testing.T) {
	y0, y1 := twoSetups(1024, 0.01, 1.5)
	sd0 := estimateSquare(t, y0, 0.01)
	sd1 := estimateSquare(t, y1, 0.01)

	merged, err := Spectra([]*spectral.Matrix{sd0, sd1}, [][]int{{0, 1}, {0, 1}})
	if err != nil {
		t.Fatalf("Spectra: %v", err)
	}
	for f := range merged.Lines() {
		for i := range 4 {
			for j := range 4 {
				a := merged.Sy[f].At(i, j)
				b := cmplx.Conj(merged.Sy[f].At(j, i))
				if cmplx.Abs(a-b) > 1e-10 {
					t.Fatalf("line %d: (%d,%d)=%v vs conj(%d,%d)=%v", f, i, j, a, j, i, b)
				}
			}
		}
	}
}

func TestSpectraValidation(t *testing.T) {
	y0, _ := twoSetups(512, 0.01, 1)
	sd0 := estimateSquare(t, y0, 0.01)

	if _, err := Spectra(nil, nil); !errors.Is(err, ErrNoSetups) {
		t.Fatalf("got %v, want ErrNoSetups", err)
	}
	if _, err := Spectra([]*spectral.Matrix{sd0}, [][]int{{0, 7}}); !errors.Is(err, ErrRefIndices) {
		t.Fatalf("got %v, want ErrRefIndices", err)
	}
	if _, err := Spectra([]*spectral.Matrix{sd0}, [][]int{{0, 0}}); !errors.Is(err, ErrRefIndices) {
		t.Fatalf("duplicate ref: got %v, want ErrRefIndices", err)
	}

	short, err := spectral.Estimate(y0, nil, 0.01, spectral.Config{SegmentLength: 128})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if _, err := Spectra([]*spectral.Matrix{sd0, short}, [][]int{{0, 1}, {0, 1}}); !errors.Is(err, ErrGridMismatch) {
		t.Fatalf("got %v, want ErrGridMismatch", err)
	}
}

func TestCovariancesReferenceRowsInvariant(t *testing.T) {
	const (
		n         = 1024
		dt        = 0.01
		blockRows = 6
	)
	y0, y1 := twoSetups(n, dt, 1)

	h, channels, err := Covariances([][][]float64{y0, y1}, [][]int{{0, 1}, {0, 1}}, blockRows, false)
	if err != nil {
		t.Fatalf("Covariances: %v", err)
	}
	if channels != 4 {
		t.Fatalf("merged channels %d, want 4", channels)
	}
	rows, cols := h.Dims()
	if rows != blockRows*4 || cols != blockRows*2 {
		t.Fatalf("subspace matrix %dx%d, want %dx%d", rows, cols, blockRows*4, blockRows*2)
	}

	// Reference rows of every lag block must match the first setup's
	// own covariance estimate.
	refs := [][]float64{y0[0], y0[1]}
	lags, err := ssi.LagCovariances(y0, refs, 2*blockRows-1, false)
	if err != nil {
		t.Fatalf("LagCovariances: %v", err)
	}
	want, err := ssi.ToeplitzFromLags(refOnlyLags(lags), blockRows)
	if err != nil {
		t.Fatalf("ToeplitzFromLags: %v", err)
	}
	for a := range blockRows {
		for i := range 2 {
			for j := range cols {
				got := h.At(a*4+i, j)
				if math.Abs(got-want.At(a*2+i, j)) > 1e-8 {
					t.Fatalf("block row %d ref row %d col %d: got %g, want %g", a, i, j, got, want.At(a*2+i, j))
				}
			}
		}
	}
}

// refOnlyLags keeps the first two rows of each lag block.
func refOnlyLags(lags []*mat.Dense) []*mat.Dense {
	out := make([]*mat.Dense, len(lags))
	for k, l := range lags {
		_, c := l.Dims()
		b := mat.NewDense(2, c, nil)
		b.Copy(l.Slice(0, 2, 0, c))
		out[k] = b
	}
	return out
}
