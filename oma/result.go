package oma

import (
	"errors"

	"github.com/cwbudde/algo-oma/modal/fdd"
	"github.com/cwbudde/algo-oma/modal/ssi"
)

// Errors returned by the orchestration layer.
var (
	ErrNoData       = errors.New("oma: no input data")
	ErrBadRate      = errors.New("oma: sampling rate must be positive")
	ErrSegmentPow2  = errors.New("oma: segment length must be a power of two")
	ErrBadOrderSpan = errors.New("oma: invalid model order range")
)

// RunParams is the frozen configuration snapshot recorded when a run
// starts. Results embed it so an estimate can always be traced back to
// the parameters that produced it.
type RunParams struct {
	Algorithm  string
	SampleRate float64
	Channels   int
	Samples    int

	// Frequency-domain parameters.
	SegmentLength int
	Overlap       float64
	Window        string

	// Subspace parameters.
	BlockRows int
	MinOrder  int
	MaxOrder  int
	OrderStep int
	Stability ssi.StabilityConfig
}

// ModalResult is the final output of a modal parameter extraction: one
// natural frequency, damping ratio and mode shape per requested mode.
// Damping stays zero for the plain peak-picking estimator.
type ModalResult struct {
	Params RunParams
	Fn     []float64
	Xi     []float64
	Phi    [][]complex128
	// Fit carries the decay-fit diagnostics of the enhanced
	// frequency-domain estimators, nil otherwise.
	Fit []fdd.FitDiagnostics
}
