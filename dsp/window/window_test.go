package window

import (
	"math"
	"testing"
)

func TestGenerateLengths(t *testing.T) {
	for _, n := range []int{0, 1, 2, 15, 64, 513} {
		w := Generate(TypeHann, n)
		if n <= 0 {
			if w != nil {
				t.Errorf("Generate(Hann, %d) = %v, want nil", n, w)
			}
			continue
		}
		if len(w) != n {
			t.Errorf("Generate(Hann, %d) length = %d", n, len(w))
		}
	}
}

func TestSymmetry(t *testing.T) {
	types := []Type{TypeHann, TypeHamming, TypeBlackman, TypeFlatTop, TypeKaiser, TypeTukey}
	for _, typ := range types {
		w := Generate(typ, 65, WithAlpha(0.5))
		for i := range len(w) / 2 {
			j := len(w) - 1 - i
			if math.Abs(w[i]-w[j]) > 1e-12 {
				t.Errorf("type %d not symmetric: w[%d]=%g w[%d]=%g", typ, i, w[i], j, w[j])
			}
		}
	}
}

func TestHannEndpointsAndPeak(t *testing.T) {
	w := Generate(TypeHann, 33)
	if math.Abs(w[0]) > 1e-12 || math.Abs(w[32]) > 1e-12 {
		t.Errorf("Hann endpoints = %g, %g, want 0", w[0], w[32])
	}
	if math.Abs(w[16]-1) > 1e-12 {
		t.Errorf("Hann center = %g, want 1", w[16])
	}
}

func TestPeriodicForm(t *testing.T) {
	// Periodic Hann of length N equals symmetric Hann of length N+1 truncated.
	n := 32
	per := Generate(TypeHann, n, WithPeriodic())
	sym := Generate(TypeHann, n+1)
	for i := range per {
		if math.Abs(per[i]-sym[i]) > 1e-12 {
			t.Fatalf("periodic[%d] = %g, want %g", i, per[i], sym[i])
		}
	}
}

func TestRectangular(t *testing.T) {
	w := Generate(TypeRectangular, 16)
	for i, v := range w {
		if v != 1 {
			t.Fatalf("rectangular[%d] = %g, want 1", i, v)
		}
	}
}

func TestTukeyLimits(t *testing.T) {
	// alpha=0 is rectangular, alpha=1 is Hann.
	rect := Generate(TypeTukey, 33, WithAlpha(0))
	for i, v := range rect {
		if math.Abs(v-1) > 1e-12 {
			t.Fatalf("tukey(0)[%d] = %g, want 1", i, v)
		}
	}

	hann := Generate(TypeHann, 33)
	tuk := Generate(TypeTukey, 33, WithAlpha(1))
	for i := range hann {
		if math.Abs(hann[i]-tuk[i]) > 1e-12 {
			t.Fatalf("tukey(1)[%d] = %g, want %g", i, tuk[i], hann[i])
		}
	}
}

func TestConstructorsValidate(t *testing.T) {
	if _, err := Hann(0); err == nil {
		t.Error("Hann(0) expected error")
	}
	if _, err := Kaiser(16, -1); err == nil {
		t.Error("Kaiser(beta=-1) expected error")
	}
	if _, err := Tukey(16, 1.5); err == nil {
		t.Error("Tukey(alpha=1.5) expected error")
	}
	if _, err := Tukey(16, 0.25); err != nil {
		t.Errorf("Tukey(0.25) unexpected error: %v", err)
	}
}

func TestEquivalentNoiseBandwidth(t *testing.T) {
	// Rectangular ENBW is exactly 1 bin, Hann is 1.5 bins.
	rect := Generate(TypeRectangular, 1024)
	enbw, err := EquivalentNoiseBandwidth(rect)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(enbw-1) > 1e-12 {
		t.Errorf("rect ENBW = %g, want 1", enbw)
	}

	hann := Generate(TypeHann, 4096, WithPeriodic())
	enbw, err = EquivalentNoiseBandwidth(hann)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(enbw-1.5) > 1e-3 {
		t.Errorf("hann ENBW = %g, want 1.5", enbw)
	}

	if _, err := EquivalentNoiseBandwidth(nil); err == nil {
		t.Error("ENBW(nil) expected error")
	}
}

func TestCoherentGain(t *testing.T) {
	hann := Generate(TypeHann, 4096, WithPeriodic())
	cg, err := CoherentGain(hann)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(cg-0.5) > 1e-3 {
		t.Errorf("hann coherent gain = %g, want 0.5", cg)
	}
}

func TestApplyCoefficients(t *testing.T) {
	samples := []float64{1, 2, 3, 4}
	coeffs := []float64{0.5, 0.5, 0.5, 0.5}

	out, err := ApplyCoefficients(samples, coeffs)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0.5, 1, 1.5, 2}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("out[%d] = %g, want %g", i, out[i], want[i])
		}
	}

	if _, err := ApplyCoefficients(samples, coeffs[:2]); err == nil {
		t.Error("mismatched length expected error")
	}

	if err := ApplyCoefficientsInPlace(samples, coeffs); err != nil {
		t.Fatal(err)
	}
	for i := range want {
		if samples[i] != want[i] {
			t.Fatalf("in-place[%d] = %g, want %g", i, samples[i], want[i])
		}
	}
}
