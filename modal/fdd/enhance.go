package fdd

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/cwbudde/algo-oma/modal/shape"
)

// Variant selects how the single-mode spectral bell is assembled before
// the time-domain damping fit.
type Variant int

const (
	// VariantEFDD tracks the singular value belonging to the reference
	// shape across the band.
	VariantEFDD Variant = iota
	// VariantFSDD projects the full spectral matrix onto the reference
	// shape, which suppresses contributions from other modes.
	VariantFSDD
)

// String returns the variant name.
func (v Variant) String() string {
	switch v {
	case VariantEFDD:
		return "EFDD"
	case VariantFSDD:
		return "FSDD"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// EnhanceConfig controls the enhanced frequency-domain estimate.
// The zero value selects EFDD with the usual defaults.
type EnhanceConfig struct {
	// Variant selects EFDD or FSDD bell assembly.
	Variant Variant
	// InitialBandwidth is the half-width in Hz used to locate the peak
	// line for each target. Defaults to 0.1 Hz.
	InitialBandwidth float64
	// Bandwidth is the half-width in Hz of the band collected around the
	// peak for the single-mode bell. Defaults to 1.0 Hz.
	Bandwidth float64
	// ModeCount is the number of leading singular value tracks searched
	// when matching lines to the reference shape. Defaults to 1.
	ModeCount int
	// MACThreshold is the minimum modal assurance criterion between a
	// line's singular vector and the reference shape for the line to
	// join the bell. Defaults to 0.85.
	MACThreshold float64
	// SkipPeaks drops the leading autocorrelation peaks before the
	// decay fit; early lags are biased by leakage. Zero selects the
	// default of 3, a negative value keeps every peak.
	SkipPeaks int
	// MaxPeaks caps the number of peaks entering the fit. Defaults
	// to 20.
	MaxPeaks int
}

func normalizeEnhanceConfig(cfg EnhanceConfig) EnhanceConfig {
	if cfg.InitialBandwidth <= 0 {
		cfg.InitialBandwidth = 0.1
	}
	if cfg.Bandwidth <= 0 {
		cfg.Bandwidth = 1.0
	}
	if cfg.ModeCount <= 0 {
		cfg.ModeCount = 1
	}
	if cfg.MACThreshold <= 0 {
		cfg.MACThreshold = 0.85
	}
	if cfg.SkipPeaks == 0 {
		cfg.SkipPeaks = 3
	} else if cfg.SkipPeaks < 0 {
		cfg.SkipPeaks = 0
	}
	if cfg.MaxPeaks <= 0 {
		cfg.MaxPeaks = 20
	}
	return cfg
}

// FitDiagnostics records the intermediate quantities of the logarithmic
// decrement fit so a caller can judge the estimate.
type FitDiagnostics struct {
	// PeakTimes and PeakAmps are the autocorrelation extrema used in
	// the fit, after skipping and capping.
	PeakTimes []float64
	PeakAmps  []float64
	// Slope and Intercept describe the regression of ln(amplitude)
	// against peak index; R2 is its coefficient of determination.
	Slope     float64
	Intercept float64
	R2        float64
	// DampedFreq is the damped natural frequency from the mean peak
	// spacing, before the damping correction.
	DampedFreq float64
	// BandLines is the number of spectral lines that passed the MAC
	// filter into the single-mode bell.
	BandLines int
}

// EnhancedMode is a frequency-domain mode estimate with damping, obtained
// from the decay of the single-mode autocorrelation.
type EnhancedMode struct {
	Freq    float64
	Damping float64
	Shape   []complex128
	Fit     FitDiagnostics
}

// Enhance estimates frequency, damping and shape for each target using the
// enhanced frequency-domain method: a single-mode spectral bell is isolated
// around the peak with a MAC filter, transformed back to a normalized
// autocorrelation, and the damping follows from a logarithmic decrement fit
// over its positive peaks.
//
// A target whose autocorrelation exposes fewer than two usable peaks after
// skipping yields ErrInsufficientPeaks.
func Enhance(dec *Decomposition, targets []float64, cfg EnhanceConfig) ([]EnhancedMode, error) {
	if dec == nil || dec.Lines() < 2 {
		return nil, ErrEmptyDecompose
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("fdd: no target frequencies")
	}
	cfg = normalizeEnhanceConfig(cfg)

	picked, err := PeakPick(dec, targets, cfg.InitialBandwidth)
	if err != nil {
		return nil, err
	}

	modes := make([]EnhancedMode, len(targets))
	for i, m := range picked {
		enhanced, err := enhanceOne(dec, m, cfg)
		if err != nil {
			return nil, fmt.Errorf("fdd: target %g Hz: %w", targets[i], err)
		}
		modes[i] = enhanced
	}
	return modes, nil
}

func enhanceOne(dec *Decomposition, m Mode, cfg EnhanceConfig) (EnhancedMode, error) {
	bell, lines := singleModeBell(dec, m, cfg)

	r, dt, err := autocorrelation(bell, dec)
	if err != nil {
		return EnhancedMode{}, err
	}

	times, amps := positivePeaks(r, dt, cfg.SkipPeaks, cfg.MaxPeaks)
	if len(times) < 2 {
		return EnhancedMode{}, fmt.Errorf("%w: %d usable", ErrInsufficientPeaks, len(times))
	}

	fit := fitDecay(times, amps)
	fit.BandLines = lines

	delta := -fit.Slope
	damping := delta / math.Sqrt(4*math.Pi*math.Pi+delta*delta)
	freq := fit.DampedFreq / math.Sqrt(1-damping*damping)

	return EnhancedMode{
		Freq:    freq,
		Damping: damping,
		Shape:   m.Shape,
		Fit:     fit,
	}, nil
}

// singleModeBell assembles the spectral bell of the mode at m over the
// lines within cfg.Bandwidth of the peak, gated by the MAC filter against
// the reference shape. The returned slice has one entry per line of dec,
// zero outside the band.
func singleModeBell(dec *Decomposition, m Mode, cfg EnhanceConfig) ([]float64, int) {
	bell := make([]float64, dec.Lines())
	lines := 0

	for f, freq := range dec.Freq {
		if freq < m.Freq-cfg.Bandwidth || freq > m.Freq+cfg.Bandwidth {
			continue
		}
		track, mac := bestTrack(dec, f, m.Shape, cfg.ModeCount)
		if f != m.Line && mac < cfg.MACThreshold {
			continue
		}
		switch cfg.Variant {
		case VariantFSDD:
			bell[f] = projectedDensity(dec, f, m.Shape)
		default:
			bell[f] = dec.Values[f][track]
		}
		if bell[f] < 0 {
			bell[f] = 0
		}
		lines++
	}
	return bell, lines
}

// bestTrack finds, among the first modeCount singular vectors at a line,
// the one most aligned with ref, returning its index and MAC.
func bestTrack(dec *Decomposition, line int, ref []complex128, modeCount int) (int, float64) {
	n := len(ref)
	if modeCount > n {
		modeCount = n
	}
	best, bestMAC := 0, -1.0
	for k := range modeCount {
		mac := shape.MAC(ref, singularVector(dec, line, k))
		if mac > bestMAC {
			best, bestMAC = k, mac
		}
	}
	return best, bestMAC
}

// projectedDensity evaluates the quadratic form conj(phi)' * Sy[line] * phi.
// For Hermitian Sy the result is real; the imaginary residue is discarded.
func projectedDensity(dec *Decomposition, line int, phi []complex128) float64 {
	n := len(phi)
	acc := complex(0, 0)
	for i := range n {
		var row complex128
		for j := range n {
			row += dec.Sy[line].At(i, j) * phi[j]
		}
		acc += complex(real(phi[i]), -imag(phi[i])) * row
	}
	return real(acc)
}

// autocorrelation transforms the one-sided bell back to a normalized
// autocorrelation. The one-sided spectrum is mirrored into a conjugate
// symmetric sequence, padded to a power of two, and inverse transformed;
// padding above the top line refines the time sampling without altering
// the band content.
func autocorrelation(bell []float64, dec *Decomposition) ([]float64, float64, error) {
	nLines := len(bell)
	half := nLines - 1
	n := nextPowerOfTwo(2 * half)

	full := make([]complex128, n)
	full[0] = complex(bell[0], 0)
	for f := 1; f < nLines; f++ {
		full[f] = complex(bell[f], 0)
		full[n-f] = complex(bell[f], 0)
	}

	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return nil, 0, err
	}
	out := make([]complex128, n)
	if err := plan.Inverse(out, full); err != nil {
		return nil, 0, err
	}

	r := make([]float64, n/2)
	scale := real(out[0])
	if scale == 0 {
		return nil, 0, fmt.Errorf("%w: empty bell", ErrInsufficientPeaks)
	}
	for i := range r {
		r[i] = real(out[i]) / scale
	}

	// The line spacing fixes the covered time span; the transform size
	// only sets how finely it is sampled.
	span := float64(2*half) * dec.DT
	return r, span / float64(n), nil
}

// positivePeaks collects the positive local maxima of r, skipping the
// first skip of them and keeping at most maxPeaks.
func positivePeaks(r []float64, dt float64, skip, maxPeaks int) ([]float64, []float64) {
	var times, amps []float64
	seen := 0
	for i := 1; i < len(r)-1; i++ {
		if r[i] <= 0 || r[i] <= r[i-1] || r[i] < r[i+1] {
			continue
		}
		seen++
		if seen <= skip {
			continue
		}
		times = append(times, float64(i)*dt)
		amps = append(amps, r[i])
		if len(times) >= maxPeaks {
			break
		}
	}
	return times, amps
}

// fitDecay regresses ln(amplitude) and peak time against the peak index.
// The amplitude slope is the per-cycle logarithmic decrement (negated) and
// the time slope is the damped period.
func fitDecay(times, amps []float64) FitDiagnostics {
	n := len(times)
	logAmps := make([]float64, n)
	for i, a := range amps {
		logAmps[i] = math.Log(a)
	}

	slope, intercept, r2 := linearFit(logAmps)
	period, _, _ := linearFit(times)

	return FitDiagnostics{
		PeakTimes:  times,
		PeakAmps:   amps,
		Slope:      slope,
		Intercept:  intercept,
		R2:         r2,
		DampedFreq: 1 / period,
	}
}

// linearFit fits y against the index 0..n-1 by least squares.
func linearFit(y []float64) (slope, intercept, r2 float64) {
	n := float64(len(y))
	var sumX, sumY, sumXX, sumXY float64
	for i, v := range y {
		x := float64(i)
		sumX += x
		sumY += v
		sumXX += x * x
		sumXY += x * v
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n, 0
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n

	meanY := sumY / n
	var ssTot, ssRes float64
	for i, v := range y {
		fit := slope*float64(i) + intercept
		ssTot += (v - meanY) * (v - meanY)
		ssRes += (v - fit) * (v - fit)
	}
	if ssTot > 0 {
		r2 = 1 - ssRes/ssTot
	} else {
		r2 = 1
	}
	return slope, intercept, r2
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
