package spectral

import (
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/cwbudde/algo-oma/dsp/window"
)

// makeSines builds a channel-major record of summed sinusoids with
// per-channel amplitudes, plus a little deterministic noise.
func makeSines(nCh, n int, fs float64, freqs []float64, amps [][]float64, noise float64) [][]float64 {
	rng := rand.New(rand.NewSource(42))
	y := make([][]float64, nCh)
	for c := range y {
		y[c] = make([]float64, n)
		for i := range n {
			t := float64(i) / fs
			for k, f := range freqs {
				y[c][i] += amps[c][k] * math.Sin(2*math.Pi*f*t)
			}
			y[c][i] += noise * rng.NormFloat64()
		}
	}
	return y
}

func TestEstimateValidation(t *testing.T) {
	y := makeSines(2, 512, 100, []float64{5}, [][]float64{{1}, {1}}, 0)

	tests := []struct {
		name string
		cfg  Config
		dt   float64
		data [][]float64
	}{
		{"empty", Config{SegmentLength: 128}, 0.01, nil},
		{"segment_too_long", Config{SegmentLength: 1024}, 0.01, y},
		{"bad_overlap", Config{SegmentLength: 128}.WithOverlap(1.0), 0.01, y},
		{"negative_overlap", Config{SegmentLength: 128}.WithOverlap(-0.1), 0.01, y},
		{"bad_dt", Config{SegmentLength: 128}, 0, y},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Estimate(tt.data, nil, tt.dt, tt.cfg); err == nil {
				t.Errorf("expected error for %s", tt.name)
			}
		})
	}
}

func TestFrequencyAxis(t *testing.T) {
	fs := 100.0
	y := makeSines(1, 1024, fs, []float64{5}, [][]float64{{1}}, 0)

	sd, err := Estimate(y, nil, 1/fs, Config{SegmentLength: 256})
	if err != nil {
		t.Fatal(err)
	}

	if sd.Lines() != 129 {
		t.Fatalf("lines = %d, want 129", sd.Lines())
	}
	df := fs / 256
	if math.Abs(sd.Freq[1]-df) > 1e-12 {
		t.Errorf("df = %g, want %g", sd.Freq[1], df)
	}
	if math.Abs(sd.Freq[128]-fs/2) > 1e-12 {
		t.Errorf("nyquist = %g, want %g", sd.Freq[128], fs/2)
	}
}

func TestHermitianInvariant(t *testing.T) {
	fs := 100.0
	y := makeSines(3, 2048, fs, []float64{5, 15}, [][]float64{
		{1, 0.5}, {0.8, -0.7}, {-0.3, 1.2},
	}, 0.1)

	for _, method := range []Method{MethodPeriodogram, MethodCorrelogram} {
		sd, err := Estimate(y, nil, 1/fs, Config{SegmentLength: 256, Method: method})
		if err != nil {
			t.Fatal(err)
		}

		for f := 0; f < sd.Lines(); f += 16 {
			m := sd.Sy[f]
			for i := range 3 {
				for j := range 3 {
					d := m.At(i, j) - cmplx.Conj(m.At(j, i))
					if cmplx.Abs(d) > 1e-9 {
						t.Fatalf("method %d: Sy[%d] not Hermitian at (%d,%d): %g", method, f, i, j, cmplx.Abs(d))
					}
				}
			}
		}
	}
}

func TestPeriodogramPeak(t *testing.T) {
	fs := 100.0
	f0 := 12.5 // on-bin for seg=256 at fs=100: df=0.390625, 12.5/df=32
	y := makeSines(2, 4096, fs, []float64{f0}, [][]float64{{1}, {0.5}}, 0.01)

	sd, err := Estimate(y, nil, 1/fs, Config{SegmentLength: 256})
	if err != nil {
		t.Fatal(err)
	}

	// Auto-density of channel 0 peaks at f0.
	best := 0
	bestVal := 0.0
	for f := range sd.Lines() {
		v := real(sd.Sy[f].At(0, 0))
		if v > bestVal {
			bestVal = v
			best = f
		}
	}
	if math.Abs(sd.Freq[best]-f0) > fs/256 {
		t.Errorf("peak at %g Hz, want %g", sd.Freq[best], f0)
	}

	// Auto-densities are real and non-negative.
	for f := range sd.Lines() {
		v := sd.Sy[f].At(1, 1)
		if math.Abs(imag(v)) > 1e-12 || real(v) < 0 {
			t.Fatalf("auto density not real non-negative at line %d: %v", f, v)
		}
	}
}

func TestCorrelogramMatchesPeriodogramAtPeak(t *testing.T) {
	fs := 100.0
	f0 := 12.5
	y := makeSines(2, 8192, fs, []float64{f0}, [][]float64{{1}, {0.6}}, 0)

	per, err := Estimate(y, nil, 1/fs, Config{SegmentLength: 256})
	if err != nil {
		t.Fatal(err)
	}
	cor, err := Estimate(y, nil, 1/fs, Config{SegmentLength: 256, Method: MethodCorrelogram, Window: window.TypeHann})
	if err != nil {
		t.Fatal(err)
	}

	peak := func(sd *Matrix) int {
		best, bestVal := 0, 0.0
		for f := range sd.Lines() {
			if v := real(sd.Sy[f].At(0, 0)); v > bestVal {
				bestVal, best = v, f
			}
		}
		return best
	}

	if pp, cp := peak(per), peak(cor); pp != cp {
		t.Errorf("peak lines differ: periodogram %d, correlogram %d", pp, cp)
	}
}

func TestReferenceSubset(t *testing.T) {
	fs := 100.0
	y := makeSines(3, 2048, fs, []float64{5}, [][]float64{{1}, {0.8}, {0.6}}, 0.05)

	sd, err := Estimate(y, y[:1], 1/fs, Config{SegmentLength: 256})
	if err != nil {
		t.Fatal(err)
	}

	nOut, nRef := sd.Channels()
	if nOut != 3 || nRef != 1 {
		t.Fatalf("dims = %dx%d, want 3x1", nOut, nRef)
	}
}

func BenchmarkEstimatePeriodogram(b *testing.B) {
	fs := 100.0
	y := makeSines(4, 16384, fs, []float64{5, 15}, [][]float64{
		{1, 1}, {1, -1}, {0.5, 0.5}, {-0.5, 1},
	}, 0.1)
	est := NewEstimator(Config{SegmentLength: 1024})

	b.ResetTimer()
	for range b.N {
		if _, err := est.Estimate(y, nil, 1/fs); err != nil {
			b.Fatal(err)
		}
	}
}
