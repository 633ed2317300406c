package signal

import (
	"math"
	"testing"
)

func TestSine(t *testing.T) {
	g := NewGenerator(1000)
	x, err := g.Sine(250, 1, 8)
	if err != nil {
		t.Fatalf("Sine: %v", err)
	}
	want := []float64{0, 1, 0, -1, 0, 1, 0, -1}
	for i, w := range want {
		if math.Abs(x[i]-w) > 1e-12 {
			t.Errorf("sample %d: got %g, want %g", i, x[i], w)
		}
	}
}

func TestWhiteNoiseDeterministic(t *testing.T) {
	a, err := NewGenerator(100, WithSeed(42)).WhiteNoise(1, 64)
	if err != nil {
		t.Fatalf("WhiteNoise: %v", err)
	}
	b, err := NewGenerator(100, WithSeed(42)).WhiteNoise(1, 64)
	if err != nil {
		t.Fatalf("WhiteNoise: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d differs between equally seeded generators", i)
		}
	}
}

func TestDampedSineEnvelope(t *testing.T) {
	const (
		fs   = 100.0
		fn   = 5.0
		zeta = 0.05
	)
	g := NewGenerator(fs)
	x, err := g.DampedSine(fn, zeta, 2, 400)
	if err != nil {
		t.Fatalf("DampedSine: %v", err)
	}
	if x[0] != 2 {
		t.Fatalf("initial sample %g, want 2", x[0])
	}
	// One damped period later the envelope has decayed by the
	// logarithmic decrement.
	wd := 2 * math.Pi * fn * math.Sqrt(1-zeta*zeta)
	period := 2 * math.Pi / wd
	k := int(math.Round(period * fs))
	wantRatio := math.Exp(-zeta * 2 * math.Pi * fn * float64(k) / fs)
	if math.Abs(x[k]/x[0]-wantRatio) > 0.01 {
		t.Errorf("decay ratio %.4f, want %.4f", x[k]/x[0], wantRatio)
	}
}

func TestModalResponse(t *testing.T) {
	g := NewGenerator(100, WithSeed(3))
	modes := []Mode{
		{Freq: 5, Damping: 0.02, Shape: []float64{1, 0.8}},
		{Freq: 15, Damping: 0.03, Shape: []float64{1, -0.5}},
	}
	y, err := g.ModalResponse(modes, 0, 256)
	if err != nil {
		t.Fatalf("ModalResponse: %v", err)
	}
	if len(y) != 2 || len(y[0]) != 256 {
		t.Fatalf("got %d channels x %d samples", len(y), len(y[0]))
	}
	// At t=0 every decay starts at its shape amplitude.
	if math.Abs(y[0][0]-2) > 1e-12 || math.Abs(y[1][0]-0.3) > 1e-12 {
		t.Errorf("initial samples %.4f, %.4f, want 2, 0.3", y[0][0], y[1][0])
	}

	if _, err := g.ModalResponse([]Mode{{Freq: 5, Shape: []float64{1}}, {Freq: 7, Shape: []float64{1, 2}}}, 0, 16); err == nil {
		t.Fatal("mismatched shapes must fail")
	}
}
