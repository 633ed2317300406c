package spectral

import (
	"errors"
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/algo-oma/dsp/window"
)

// Errors returned by the spectral density estimator.
var (
	ErrNoData         = errors.New("spectral: no input data")
	ErrChannelLength  = errors.New("spectral: channels must have equal sample counts")
	ErrSegmentTooLong = errors.New("spectral: segment length exceeds record length")
	ErrBadOverlap     = errors.New("spectral: overlap fraction must be in [0,1)")
	ErrBadInterval    = errors.New("spectral: sampling interval must be positive")
)

// Method selects the spectral density estimator.
type Method int

const (
	// MethodPeriodogram averages windowed segment periodograms (Welch).
	MethodPeriodogram Method = iota
	// MethodCorrelogram transforms biased lag-windowed cross-correlation
	// estimates (Blackman-Tukey).
	MethodCorrelogram
)

const (
	defaultOverlap = 0.5
)

// Config holds cross power spectral density estimation parameters.
type Config struct {
	// SegmentLength is the number of samples per segment and fixes the
	// frequency resolution to 1/(SegmentLength*dt).
	SegmentLength int
	// Overlap is the segment overlap fraction in [0,1). Defaults to 0.5.
	Overlap float64
	// Window tapers each segment (periodogram) or the lag sequence
	// (correlogram). Defaults to Hann.
	Window window.Type
	// Method selects the estimator. Defaults to MethodPeriodogram.
	Method Method

	overlapSet bool
}

// Matrix is a one-sided cross power spectral density estimate.
//
// Sy[f] is the nOut-by-nRef density matrix at Freq[f]. When the output and
// reference channel sets coincide each Sy[f] is Hermitian.
type Matrix struct {
	Freq []float64
	Sy   []*mat.CDense
	DT   float64
}

// Lines returns the number of frequency lines.
func (m *Matrix) Lines() int { return len(m.Freq) }

// Channels returns the output and reference channel counts.
func (m *Matrix) Channels() (nOut, nRef int) {
	if len(m.Sy) == 0 {
		return 0, 0
	}
	return m.Sy[0].Dims()
}

// Estimator computes cross power spectral density matrices from
// multi-channel records.
type Estimator struct {
	cfg Config
}

// NewEstimator creates an estimator, applying defaults for zero-valued
// configuration fields.
func NewEstimator(cfg Config) *Estimator {
	if !cfg.overlapSet && cfg.Overlap == 0 {
		cfg.Overlap = defaultOverlap
	}
	if cfg.Window == 0 && cfg.Method == MethodPeriodogram {
		cfg.Window = window.TypeHann
	}
	return &Estimator{cfg: cfg}
}

// WithOverlap returns a copy of cfg with an explicit overlap fraction,
// including zero overlap.
func (c Config) WithOverlap(pov float64) Config {
	c.Overlap = pov
	c.overlapSet = true
	return c
}

// Estimate is a one-shot estimate of the cross power spectral density
// between yOut and yRef.
func Estimate(yOut, yRef [][]float64, dt float64, cfg Config) (*Matrix, error) {
	return NewEstimator(cfg).Estimate(yOut, yRef, dt)
}

// Estimate computes the one-sided cross power spectral density matrix stack.
//
// yOut and yRef are channel-major records (one slice of samples per
// channel). A nil yRef reuses yOut, producing the square Hermitian density
// needed by the decomposition stage. The result has SegmentLength/2+1
// frequency lines.
func (e *Estimator) Estimate(yOut, yRef [][]float64, dt float64) (*Matrix, error) {
	if yRef == nil {
		yRef = yOut
	}

	n, err := validateInput(yOut, yRef, dt, e.cfg)
	if err != nil {
		return nil, err
	}

	switch e.cfg.Method {
	case MethodCorrelogram:
		return e.correlogram(yOut, yRef, n, dt)
	default:
		return e.periodogram(yOut, yRef, n, dt)
	}
}

func validateInput(yOut, yRef [][]float64, dt float64, cfg Config) (int, error) {
	if len(yOut) == 0 || len(yRef) == 0 {
		return 0, ErrNoData
	}

	n := len(yOut[0])
	if n == 0 {
		return 0, ErrNoData
	}

	for _, ch := range yOut {
		if len(ch) != n {
			return 0, fmt.Errorf("%w: %d != %d", ErrChannelLength, len(ch), n)
		}
	}
	for _, ch := range yRef {
		if len(ch) != n {
			return 0, fmt.Errorf("%w: %d != %d", ErrChannelLength, len(ch), n)
		}
	}

	if dt <= 0 {
		return 0, fmt.Errorf("%w: %g", ErrBadInterval, dt)
	}
	if cfg.SegmentLength < 2 || cfg.SegmentLength > n {
		return 0, fmt.Errorf("%w: segment %d, record %d", ErrSegmentTooLong, cfg.SegmentLength, n)
	}
	if cfg.Overlap < 0 || cfg.Overlap >= 1 {
		return 0, fmt.Errorf("%w: %g", ErrBadOverlap, cfg.Overlap)
	}

	return n, nil
}

// periodogram implements the Welch estimator: windowed overlapping
// segments, averaged cross periodograms, density scaling dt/sum(w^2).
func (e *Estimator) periodogram(yOut, yRef [][]float64, n int, dt float64) (*Matrix, error) {
	seg := e.cfg.SegmentLength
	step := seg - int(e.cfg.Overlap*float64(seg))
	if step < 1 {
		step = 1
	}
	nSeg := 1 + (n-seg)/step

	coeffs := window.Generate(e.cfg.Window, seg, window.WithPeriodic())
	wPow, err := window.SumSquares(coeffs)
	if err != nil {
		return nil, fmt.Errorf("spectral: window: %w", err)
	}

	plan, err := algofft.NewPlan64(seg)
	if err != nil {
		return nil, fmt.Errorf("spectral: fft plan: %w", err)
	}

	nOut := len(yOut)
	nRef := len(yRef)
	nLines := seg/2 + 1

	acc := newAccumulator(nLines, nOut, nRef)

	specOut := make([][]complex128, nOut)
	specRef := make([][]complex128, nRef)
	in := make([]complex128, seg)

	for s := range nSeg {
		off := s * step

		for i, ch := range yOut {
			for k := range seg {
				in[k] = complex(ch[off+k]*coeffs[k], 0)
			}
			out := make([]complex128, seg)
			if err := plan.Forward(out, in); err != nil {
				return nil, fmt.Errorf("spectral: fft: %w", err)
			}
			specOut[i] = out
		}

		if sameChannels(yOut, yRef) {
			copy(specRef, specOut)
		} else {
			for j, ch := range yRef {
				for k := range seg {
					in[k] = complex(ch[off+k]*coeffs[k], 0)
				}
				out := make([]complex128, seg)
				if err := plan.Forward(out, in); err != nil {
					return nil, fmt.Errorf("spectral: fft: %w", err)
				}
				specRef[j] = out
			}
		}

		acc.addCross(specOut, specRef, nLines)
	}

	// Density scaling with one-sided doubling; DC and Nyquist stay single.
	scale := dt / (wPow * float64(nSeg))
	acc.finish(scale, seg)

	return &Matrix{
		Freq: freqAxis(seg, dt),
		Sy:   acc.sy,
		DT:   dt,
	}, nil
}

// correlogram implements the Blackman-Tukey estimator: biased
// cross-correlations out to SegmentLength-1 lags via FFT, lag windowing,
// and a length-2L transform evaluated on the 1/(L*dt) grid.
func (e *Estimator) correlogram(yOut, yRef [][]float64, n int, dt float64) (*Matrix, error) {
	seg := e.cfg.SegmentLength

	m := nextPowerOf2(n + seg)
	plan, err := algofft.NewPlan64(m)
	if err != nil {
		return nil, fmt.Errorf("spectral: fft plan: %w", err)
	}

	specOut, err := fullSpectra(plan, yOut, m)
	if err != nil {
		return nil, err
	}
	specRef := specOut
	if !sameChannels(yOut, yRef) {
		specRef, err = fullSpectra(plan, yRef, m)
		if err != nil {
			return nil, err
		}
	}

	// Symmetric lag window over 2*seg-1 lags centered at zero; lagWin[t]
	// holds the taper for |lag| = t.
	full := window.Generate(e.cfg.Window, 2*seg-1)
	lagWin := full[seg-1:]

	lagPlan, err := algofft.NewPlan64(2 * seg)
	if err != nil {
		return nil, fmt.Errorf("spectral: fft plan: %w", err)
	}

	nOut := len(yOut)
	nRef := len(yRef)
	nLines := seg/2 + 1

	sy := make([]*mat.CDense, nLines)
	for f := range sy {
		sy[f] = mat.NewCDense(nOut, nRef, nil)
	}

	cross := make([]complex128, m)
	corr := make([]complex128, m)
	lagSeq := make([]complex128, 2*seg)
	spec := make([]complex128, 2*seg)
	invN := 1 / float64(n)

	for i := range nOut {
		for j := range nRef {
			for k := range m {
				cross[k] = specOut[i][k] * conj(specRef[j][k])
			}
			if err := plan.Inverse(corr, cross); err != nil {
				return nil, fmt.Errorf("spectral: fft: %w", err)
			}

			// Positive lags live at the head of the circular
			// correlation, negative lags at the tail.
			for k := range lagSeq {
				lagSeq[k] = 0
			}
			lagSeq[0] = complex(real(corr[0])*invN*lagWin[0], 0)
			for tau := 1; tau < seg; tau++ {
				w := lagWin[tau] * invN
				lagSeq[tau] = complex(real(corr[tau])*w, 0)
				lagSeq[2*seg-tau] = complex(real(corr[m-tau])*w, 0)
			}

			if err := lagPlan.Forward(spec, lagSeq); err != nil {
				return nil, fmt.Errorf("spectral: fft: %w", err)
			}

			// Even bins of the length-2L transform land on the
			// 1/(L*dt) grid shared with the periodogram method.
			for f := range nLines {
				sy[f].Set(i, j, spec[2*f]*complex(dt, 0))
			}
		}
	}

	return &Matrix{
		Freq: freqAxis(seg, dt),
		Sy:   sy,
		DT:   dt,
	}, nil
}

func fullSpectra(plan *algofft.Plan[complex128], chans [][]float64, m int) ([][]complex128, error) {
	out := make([][]complex128, len(chans))
	in := make([]complex128, m)
	for i, ch := range chans {
		for k := range in {
			in[k] = 0
		}
		for k, v := range ch {
			in[k] = complex(v, 0)
		}
		spec := make([]complex128, m)
		if err := plan.Forward(spec, in); err != nil {
			return nil, fmt.Errorf("spectral: fft: %w", err)
		}
		out[i] = spec
	}
	return out, nil
}

// accumulator sums cross periodograms across segments.
type accumulator struct {
	sy []*mat.CDense
}

func newAccumulator(nLines, nOut, nRef int) *accumulator {
	sy := make([]*mat.CDense, nLines)
	for f := range sy {
		sy[f] = mat.NewCDense(nOut, nRef, nil)
	}
	return &accumulator{sy: sy}
}

func (a *accumulator) addCross(specOut, specRef [][]complex128, nLines int) {
	for f := range nLines {
		m := a.sy[f]
		for i := range specOut {
			xi := specOut[i][f]
			for j := range specRef {
				m.Set(i, j, m.At(i, j)+xi*conj(specRef[j][f]))
			}
		}
	}
}

func (a *accumulator) finish(scale float64, seg int) {
	for f, m := range a.sy {
		s := scale
		if f != 0 && f != seg/2 {
			s *= 2
		}
		r, c := m.Dims()
		for i := range r {
			for j := range c {
				m.Set(i, j, m.At(i, j)*complex(s, 0))
			}
		}
	}
}

func freqAxis(seg int, dt float64) []float64 {
	df := 1 / (float64(seg) * dt)
	freq := make([]float64, seg/2+1)
	for i := range freq {
		freq[i] = float64(i) * df
	}
	return freq
}

func sameChannels(a, b [][]float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) == 0 || len(b[i]) == 0 || &a[i][0] != &b[i][0] {
			return false
		}
	}
	return true
}

func conj(c complex128) complex128 {
	return complex(real(c), -imag(c))
}

func nextPowerOf2(n int) int {
	if n <= 1 {
		return 1
	}

	p := 1
	for p < n {
		p <<= 1
	}

	return p
}
