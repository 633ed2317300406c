// Package signal generates deterministic test records: sinusoids, white
// noise and synthetic modal responses with known frequencies, dampings
// and shapes.
package signal

import (
	"fmt"
	"math"
	"math/rand"
)

// Mode describes one vibration mode of a synthetic response.
type Mode struct {
	// Freq is the undamped natural frequency in Hz.
	Freq float64
	// Damping is the viscous damping ratio.
	Damping float64
	// Shape holds the per-channel amplitude of the mode.
	Shape []float64
}

// Generator creates deterministic signals from a shared configuration.
type Generator struct {
	fs   float64
	seed int64
}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed sets the deterministic random seed for noise generation.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.seed = seed
	}
}

// NewGenerator creates a generator at the given sampling rate.
func NewGenerator(sampleRate float64, opts ...Option) *Generator {
	g := &Generator{fs: sampleRate, seed: 1}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// SampleRate returns the configured sampling rate.
func (g *Generator) SampleRate() float64 { return g.fs }

// Sine generates a sine wave.
func (g *Generator) Sine(freqHz, amplitude float64, samples int) ([]float64, error) {
	if err := g.validate(samples); err != nil {
		return nil, err
	}
	out := make([]float64, samples)
	step := 2 * math.Pi * freqHz / g.fs
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out, nil
}

// WhiteNoise generates deterministic Gaussian white noise with the given
// standard deviation.
func (g *Generator) WhiteNoise(sigma float64, samples int) ([]float64, error) {
	if err := g.validate(samples); err != nil {
		return nil, err
	}
	if sigma < 0 {
		return nil, fmt.Errorf("signal: noise sigma must be >= 0: %f", sigma)
	}
	out := make([]float64, samples)
	rng := rand.New(rand.NewSource(g.seed))
	for i := range out {
		out[i] = sigma * rng.NormFloat64()
	}
	return out, nil
}

// DampedSine generates the free decay of a single mode: an exponentially
// decaying cosine at the damped natural frequency.
func (g *Generator) DampedSine(freqHz, damping, amplitude float64, samples int) ([]float64, error) {
	if err := g.validate(samples); err != nil {
		return nil, err
	}
	if damping < 0 || damping >= 1 {
		return nil, fmt.Errorf("signal: damping ratio must be in [0,1): %f", damping)
	}
	out := make([]float64, samples)
	dt := 1 / g.fs
	wn := 2 * math.Pi * freqHz
	wd := wn * math.Sqrt(1-damping*damping)
	for i := range out {
		t := float64(i) * dt
		out[i] = amplitude * math.Exp(-damping*wn*t) * math.Cos(wd*t)
	}
	return out, nil
}

// ModalResponse superimposes the free decay of the given modes on
// len(modes[k].Shape) channels and adds Gaussian noise of standard
// deviation sigma per channel. The result is channel-major.
func (g *Generator) ModalResponse(modes []Mode, sigma float64, samples int) ([][]float64, error) {
	if len(modes) == 0 {
		return nil, fmt.Errorf("signal: no modes")
	}
	channels := len(modes[0].Shape)
	if channels == 0 {
		return nil, fmt.Errorf("signal: empty mode shape")
	}
	for k, m := range modes {
		if len(m.Shape) != channels {
			return nil, fmt.Errorf("signal: mode %d shape has %d entries, want %d", k, len(m.Shape), channels)
		}
	}

	y := make([][]float64, channels)
	for ch := range y {
		y[ch] = make([]float64, samples)
	}
	for _, m := range modes {
		decay, err := g.DampedSine(m.Freq, m.Damping, 1, samples)
		if err != nil {
			return nil, err
		}
		for ch := range y {
			amp := m.Shape[ch]
			for k, v := range decay {
				y[ch][k] += amp * v
			}
		}
	}

	if sigma > 0 {
		rng := rand.New(rand.NewSource(g.seed))
		for ch := range y {
			for k := range y[ch] {
				y[ch][k] += sigma * rng.NormFloat64()
			}
		}
	}
	return y, nil
}

func (g *Generator) validate(samples int) error {
	if samples <= 0 {
		return fmt.Errorf("signal: samples must be > 0: %d", samples)
	}
	if g.fs <= 0 {
		return fmt.Errorf("signal: sample rate must be > 0: %f", g.fs)
	}
	return nil
}
