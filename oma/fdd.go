package oma

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-oma/dsp/spectral"
	"github.com/cwbudde/algo-oma/dsp/window"
	"github.com/cwbudde/algo-oma/modal/fdd"
)

// FDDMethod selects the frequency-domain estimator variant.
type FDDMethod int

const (
	// MethodFDD picks frequencies and shapes off the singular value
	// peaks; no damping estimate.
	MethodFDD FDDMethod = iota
	// MethodEFDD adds damping from the decay of the tracked
	// single-mode autocorrelation.
	MethodEFDD
	// MethodFSDD like EFDD, with the spectral matrix projected onto
	// the mode shape before the decay fit.
	MethodFSDD
)

// String returns the method name.
func (m FDDMethod) String() string {
	switch m {
	case MethodFDD:
		return "FDD"
	case MethodEFDD:
		return "EFDD"
	case MethodFSDD:
		return "FSDD"
	default:
		return fmt.Sprintf("FDDMethod(%d)", int(m))
	}
}

// FDDConfig configures a frequency-domain run. Zero values select the
// usual defaults.
type FDDConfig struct {
	// Method selects FDD, EFDD or FSDD.
	Method FDDMethod
	// SegmentLength is the estimator segment size, a power of two.
	// Defaults to the largest power of two not exceeding the record
	// length, capped at 1024.
	SegmentLength int
	// Overlap is the segment overlap fraction. Defaults to 0.5.
	Overlap float64
	// Window tapers the segments. Defaults to Hann.
	Window window.Type
	// Estimator selects the Welch periodogram or the correlogram.
	Estimator spectral.Method
	// Logger receives progress events; nil disables logging.
	Logger *zap.Logger
}

// FDDResult is the immutable artifact of a frequency-domain run: the
// decomposed spectral density stack plus the frozen run parameters.
// Modal parameters are extracted from it with MPE, which never mutates
// the artifact.
type FDDResult struct {
	Params RunParams

	method FDDMethod
	dec    *fdd.Decomposition
}

// Freq returns the frequency axis.
func (r *FDDResult) Freq() []float64 { return r.dec.Freq }

// SingularValues returns the singular value track k across all lines,
// the raw material of the stabilization-style peak plot.
func (r *FDDResult) SingularValues(k int) []float64 {
	out := make([]float64, r.dec.Lines())
	for f := range out {
		out[f] = r.dec.Values[f][k]
	}
	return out
}

// Decomposition exposes the per-line singular values and vectors.
func (r *FDDResult) Decomposition() *fdd.Decomposition { return r.dec }

// RunFDD estimates the spectral density of the record, decomposes it per
// line, and returns the run artifact. y is channel-major; fs is the
// sampling rate in Hz.
func RunFDD(y [][]float64, fs float64, cfg FDDConfig) (*FDDResult, error) {
	if len(y) == 0 || len(y[0]) == 0 {
		return nil, ErrNoData
	}
	if fs <= 0 {
		return nil, fmt.Errorf("%w: %g", ErrBadRate, fs)
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	n := len(y[0])
	seg := cfg.SegmentLength
	if seg == 0 {
		seg = defaultSegment(n)
	}
	if seg&(seg-1) != 0 {
		return nil, fmt.Errorf("%w: %d", ErrSegmentPow2, seg)
	}

	specCfg := spectral.Config{
		SegmentLength: seg,
		Overlap:       cfg.Overlap,
		Window:        cfg.Window,
		Method:        cfg.Estimator,
	}
	if specCfg.Window == 0 {
		specCfg.Window = window.TypeHann
	}

	dt := 1 / fs
	log.Info("estimating spectral density",
		zap.Int("channels", len(y)),
		zap.Int("samples", n),
		zap.Int("segment", seg),
		zap.String("method", cfg.Method.String()),
	)

	sd, err := spectral.Estimate(y, nil, dt, specCfg)
	if err != nil {
		return nil, fmt.Errorf("oma: %w", err)
	}

	dec, err := fdd.Decompose(sd)
	if err != nil {
		return nil, fmt.Errorf("oma: %w", err)
	}
	log.Info("decomposed spectral lines", zap.Int("lines", dec.Lines()))

	return &FDDResult{
		Params: RunParams{
			Algorithm:     cfg.Method.String(),
			SampleRate:    fs,
			Channels:      len(y),
			Samples:       n,
			SegmentLength: seg,
			Overlap:       cfg.Overlap,
			Window:        specCfg.Window.String(),
		},
		method: cfg.Method,
		dec:    dec,
	}, nil
}

// FDDPick configures modal parameter extraction from a frequency-domain
// artifact.
type FDDPick struct {
	// Bandwidth is the peak search half-width in Hz. Defaults to 0.1.
	Bandwidth float64
	// Enhance tunes the damping estimation of EFDD and FSDD runs;
	// ignored for plain FDD.
	Enhance fdd.EnhanceConfig
}

// MPE extracts modal parameters for the target frequencies. It is a pure
// function of the artifact and the selection: repeated calls with the
// same arguments yield the same result and the artifact is never
// modified.
func (r *FDDResult) MPE(targets []float64, pick FDDPick) (*ModalResult, error) {
	if pick.Bandwidth <= 0 {
		pick.Bandwidth = 0.1
	}

	if r.method == MethodFDD {
		modes, err := fdd.PeakPick(r.dec, targets, pick.Bandwidth)
		if err != nil {
			return nil, fmt.Errorf("oma: %w", err)
		}
		res := &ModalResult{
			Params: r.Params,
			Fn:     make([]float64, len(modes)),
			Xi:     make([]float64, len(modes)),
			Phi:    make([][]complex128, len(modes)),
		}
		for i, m := range modes {
			res.Fn[i] = m.Freq
			res.Phi[i] = m.Shape
		}
		return res, nil
	}

	enhCfg := pick.Enhance
	if enhCfg.InitialBandwidth == 0 {
		enhCfg.InitialBandwidth = pick.Bandwidth
	}
	if r.method == MethodFSDD {
		enhCfg.Variant = fdd.VariantFSDD
	} else {
		enhCfg.Variant = fdd.VariantEFDD
	}

	modes, err := fdd.Enhance(r.dec, targets, enhCfg)
	if err != nil {
		return nil, fmt.Errorf("oma: %w", err)
	}
	res := &ModalResult{
		Params: r.Params,
		Fn:     make([]float64, len(modes)),
		Xi:     make([]float64, len(modes)),
		Phi:    make([][]complex128, len(modes)),
		Fit:    make([]fdd.FitDiagnostics, len(modes)),
	}
	for i, m := range modes {
		res.Fn[i] = m.Freq
		res.Xi[i] = m.Damping
		res.Phi[i] = m.Shape
		res.Fit[i] = m.Fit
	}
	return res, nil
}

// defaultSegment is the largest power of two not exceeding n, capped
// at 1024.
func defaultSegment(n int) int {
	seg := 1
	for seg*2 <= n && seg < 1024 {
		seg *= 2
	}
	return seg
}
