package fdd

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/algo-oma/dsp/spectral"
	"github.com/cwbudde/algo-oma/internal/linalg"
)

// Errors returned by the frequency-domain identification stages.
var (
	ErrNotSquare         = errors.New("fdd: spectral density matrix must be square")
	ErrEmptyDecompose    = errors.New("fdd: nothing to decompose")
	ErrNoPeakInBand      = errors.New("fdd: no spectral line within band of target frequency")
	ErrInsufficientPeaks = errors.New("fdd: insufficient autocorrelation peaks for damping fit")
)

// Decomposition holds the per-line singular value decomposition of a
// spectral density matrix stack. Values[f] is sorted descending and
// Vectors[f] carries the matching orthonormal singular vectors as columns.
type Decomposition struct {
	Freq    []float64
	Values  [][]float64
	Vectors []*mat.CDense
	Sy      []*mat.CDense
	DT      float64
}

// Lines returns the number of frequency lines.
func (d *Decomposition) Lines() int { return len(d.Freq) }

// Channels returns the channel count.
func (d *Decomposition) Channels() int {
	if len(d.Vectors) == 0 {
		return 0
	}
	r, _ := d.Vectors[0].Dims()
	return r
}

// Decompose computes the singular value decomposition of every frequency
// line of sd. The spectral matrices must be square (estimate with the full
// channel set as references, or merge setups first).
//
// Lines are independent, so the work is spread across a bounded worker
// pool; results are gathered by line index and the output order is
// deterministic.
func Decompose(sd *spectral.Matrix) (*Decomposition, error) {
	if sd == nil || len(sd.Sy) == 0 {
		return nil, ErrEmptyDecompose
	}

	nOut, nRef := sd.Channels()
	if nOut != nRef {
		return nil, fmt.Errorf("%w: %dx%d", ErrNotSquare, nOut, nRef)
	}

	nLines := sd.Lines()
	dec := &Decomposition{
		Freq:    sd.Freq,
		Values:  make([][]float64, nLines),
		Vectors: make([]*mat.CDense, nLines),
		Sy:      sd.Sy,
		DT:      sd.DT,
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > nLines {
		workers = nLines
	}

	lines := make(chan int)
	errs := make([]error, nLines)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range lines {
				vals, vecs, err := linalg.HermEigen(sd.Sy[f])
				if err != nil {
					errs[f] = fmt.Errorf("fdd: line %d (%.4g Hz): %w", f, sd.Freq[f], err)
					continue
				}
				// Eigenvalues of a PSD estimate can dip barely
				// negative from roundoff; clamp so the singular
				// value contract holds.
				for i, v := range vals {
					if v < 0 {
						vals[i] = 0
					}
				}
				dec.Values[f] = vals
				dec.Vectors[f] = vecs
			}
		}()
	}

	for f := range nLines {
		lines <- f
	}
	close(lines)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return dec, nil
}
