package fdd

import (
	"fmt"

	"github.com/cwbudde/algo-oma/modal/shape"
)

// Mode is a basic frequency-domain mode estimate: the line where the first
// singular value peaks near a requested frequency, and the matching first
// singular vector as the mode shape.
type Mode struct {
	Freq  float64
	Shape []complex128
	Line  int
}

// PeakPick locates, for each target frequency, the line with the maximal
// first singular value within ±bandwidth and returns the mode estimates in
// target order. A target with no line inside its band yields
// ErrNoPeakInBand.
func PeakPick(dec *Decomposition, targets []float64, bandwidth float64) ([]Mode, error) {
	if dec == nil || dec.Lines() == 0 {
		return nil, ErrEmptyDecompose
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("fdd: no target frequencies")
	}
	if bandwidth <= 0 {
		return nil, fmt.Errorf("fdd: bandwidth must be positive, got %g", bandwidth)
	}

	modes := make([]Mode, len(targets))
	for i, target := range targets {
		line, ok := maxLineInBand(dec, target, bandwidth)
		if !ok {
			return nil, fmt.Errorf("%w: %g Hz ± %g Hz", ErrNoPeakInBand, target, bandwidth)
		}
		modes[i] = Mode{
			Freq:  dec.Freq[line],
			Shape: shape.Normalize(singularVector(dec, line, 0)),
			Line:  line,
		}
	}
	return modes, nil
}

// maxLineInBand scans the first singular value track over the lines whose
// frequency falls within ±bw of target and reports the argmax.
func maxLineInBand(dec *Decomposition, target, bw float64) (int, bool) {
	best, found := -1, false
	for f, freq := range dec.Freq {
		if freq < target-bw || freq > target+bw {
			continue
		}
		if !found || dec.Values[f][0] > dec.Values[best][0] {
			best, found = f, true
		}
	}
	return best, found
}

// singularVector extracts column k of the singular vectors at a line.
func singularVector(dec *Decomposition, line, k int) []complex128 {
	n, _ := dec.Vectors[line].Dims()
	v := make([]complex128, n)
	for i := range n {
		v[i] = dec.Vectors[line].At(i, k)
	}
	return v
}
