package shape

import (
	"math"
	"math/cmplx"
	"testing"
)

func TestMACIdentical(t *testing.T) {
	v := []complex128{complex(1, 0.5), complex(-2, 1), complex(0.3, -0.1)}
	if got := MAC(v, v); got != 1.0 {
		t.Errorf("MAC(v,v) = %v, want exactly 1", got)
	}
}

func TestMACScaleAndPhaseInvariant(t *testing.T) {
	v := []complex128{1, complex(0, 2), complex(-1, 1)}
	w := make([]complex128, len(v))
	rot := cmplx.Exp(complex(0, 1.1)) * 3.7
	for i := range v {
		w[i] = v[i] * rot
	}
	if got := MAC(v, w); math.Abs(got-1) > 1e-14 {
		t.Errorf("MAC under scaling/rotation = %v, want 1", got)
	}
}

func TestMACOrthogonal(t *testing.T) {
	a := []complex128{1, 0}
	b := []complex128{0, 1}
	if got := MAC(a, b); got != 0.0 {
		t.Errorf("MAC(a,b) = %v, want exactly 0", got)
	}
}

func TestMACDegenerate(t *testing.T) {
	if MAC(nil, nil) != 0 {
		t.Error("MAC(nil,nil) != 0")
	}
	if MAC([]complex128{1}, []complex128{1, 2}) != 0 {
		t.Error("MAC length mismatch != 0")
	}
	if MAC([]complex128{0, 0}, []complex128{1, 1}) != 0 {
		t.Error("MAC zero vector != 0")
	}
}

func TestNormalize(t *testing.T) {
	v := []complex128{complex(3, 0), complex(0, 4)}
	n := Normalize(v)
	nrm := 0.0
	for _, c := range n {
		nrm += real(c)*real(c) + imag(c)*imag(c)
	}
	if math.Abs(nrm-1) > 1e-14 {
		t.Errorf("norm^2 = %v, want 1", nrm)
	}

	z := Normalize([]complex128{0, 0})
	if z[0] != 0 || z[1] != 0 {
		t.Error("Normalize(zero) changed values")
	}
}

func TestAlignPhase(t *testing.T) {
	rot := cmplx.Exp(complex(0, 0.7))
	v := []complex128{0.5 * rot, 2 * rot, -1 * rot}
	a := AlignPhase(v)

	// Largest component becomes real positive.
	if math.Abs(imag(a[1])) > 1e-14 || real(a[1]) <= 0 {
		t.Errorf("aligned max component = %v, want real positive", a[1])
	}
	// MAC with original preserved.
	if got := MAC(v, a); math.Abs(got-1) > 1e-14 {
		t.Errorf("MAC after alignment = %v, want 1", got)
	}
}

func TestScaleTo(t *testing.T) {
	v := []complex128{2, complex(4, 2)}
	s, err := ScaleTo(v, 0)
	if err != nil {
		t.Fatal(err)
	}
	if s[0] != 1 {
		t.Errorf("s[0] = %v, want 1", s[0])
	}
	if s[1] != complex(2, 1) {
		t.Errorf("s[1] = %v, want 2+1i", s[1])
	}

	if _, err := ScaleTo(v, 5); err == nil {
		t.Error("out-of-range index expected error")
	}
	if _, err := ScaleTo([]complex128{0, 1}, 0); err == nil {
		t.Error("zero component expected error")
	}
}

func TestMACMatrix(t *testing.T) {
	a := [][]complex128{{1, 0}, {0, 1}}
	m, err := MACMatrix(a, a)
	if err != nil {
		t.Fatal(err)
	}
	if m[0][0] != 1 || m[1][1] != 1 || m[0][1] != 0 || m[1][0] != 0 {
		t.Errorf("MACMatrix = %v, want identity pattern", m)
	}

	if _, err := MACMatrix(a, [][]complex128{{1}}); err == nil {
		t.Error("length mismatch expected error")
	}
}
