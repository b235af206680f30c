package solver

import (
	"errors"
	"math"
	"testing"
)

const tolerance = 1e-6

func cubicAt(c Coefficients, v float64) float64 {
	return c[0]*v*v*v + c[1]*v*v + c[2]*v + c[3]
}

func TestLinearSolveRoundTrip(t *testing.T) {
	c := Coefficients{0.5, 0.1, 0, 0}
	for _, g := range []float64{0.2, 0.6, 1.1, 1.5, 1.7} {
		v := LinearSolve(c, g)
		if v == 0 {
			t.Fatalf("LinearSolve(%v) returned sentinel", g)
		}
		if got := c[0]*v + c[1]; math.Abs(got-g) > tolerance {
			t.Errorf("f(LinearSolve(%v)) = %v", g, got)
		}
		if got := EvaluateLinear(c, v/MaxVoltage); math.Abs(got-g) > tolerance {
			t.Errorf("EvaluateLinear(LinearSolve(%v)) = %v", g, got)
		}
	}
}

func TestLinearSolveOutOfRange(t *testing.T) {
	c := Coefficients{0.5, 0.1, 0, 0}
	tests := []struct {
		name    string
		targetG float64
	}{
		{"above max voltage", 5},
		{"zero voltage", 0.1},
		{"negative voltage", -1},
	}
	for _, tt := range tests {
		if got := LinearSolve(c, tt.targetG); got != 0 {
			t.Errorf("%s: LinearSolve(%v) = %v, want 0", tt.name, tt.targetG, got)
		}
	}
	if got := LinearSolve(Coefficients{}, 1); got != 0 {
		t.Errorf("zero slope: got %v, want 0", got)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		c       Coefficients
		targetG float64
		want    RootCase
	}{
		{"triple", Coefficients{1, -3, 3, -1}, 0, TripleRoot},
		{"one real", Coefficients{1, 0, 1, 0}, 2, OneRealRoot},
		{"three real", Coefficients{1, -3.5, 3.5, -1}, 0, ThreeRealRoots},
		{"double", Coefficients{1, -4, 5, -1.75}, 0.25, DoubleRoot},
		{"not cubic", Coefficients{0, 1, 1, 1}, 1, NoRealRoot},
	}
	for _, tt := range tests {
		if got := Classify(tt.c, tt.targetG); got.Case != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestCubicSolveSatisfiesPolynomial(t *testing.T) {
	tests := []struct {
		name    string
		c       Coefficients
		targetG float64
		want    float64
	}{
		// v³ + v = 2 has the single real root 1.
		{"one real root", Coefficients{1, 0, 1, 0}, 2, 1},
		// (v-0.5)(v-1)(v-2)
		{"three real roots", Coefficients{1, -3.5, 3.5, -1}, 0, 0.5},
		// (v-1)²(v-2), the simple root is tested first
		{"double root", Coefficients{1, -4, 5, -1.75}, 0.25, 2},
		// (v-1)²(v-4), 4 is out of range so the double root wins
		{"double root second candidate", Coefficients{1, -6, 9, -4}, 0, 1},
		// (v-1)³
		{"triple root", Coefficients{1, -3, 3, -1}, 0, 1},
	}
	for _, tt := range tests {
		v := CubicSolve(tt.c, tt.targetG)
		if v <= 0 || v > MaxVoltage {
			t.Fatalf("%s: root %v outside (0, %v]", tt.name, v, MaxVoltage)
		}
		if math.Abs(v-tt.want) > 1e-4 {
			t.Errorf("%s: CubicSolve = %v, want %v", tt.name, v, tt.want)
		}
		if got := cubicAt(tt.c, v); math.Abs(got-tt.targetG) > 1e-4 {
			t.Errorf("%s: f(%v) = %v, want %v", tt.name, v, got, tt.targetG)
		}
	}
}

func TestCubicSolveFirstCandidateWins(t *testing.T) {
	// Roots -1, 1 and 2: the trigonometric candidates come out as
	// -1, 2, 1. The first in range is 2, not the smaller root 1.
	c := Coefficients{1, -2, -1, 2.5}
	disc := Classify(c, 0.5)
	if disc.Case != ThreeRealRoots {
		t.Fatalf("expected three real roots, got %v", disc)
	}
	cands := disc.Candidates(c)
	if len(cands) != 3 || math.Abs(cands[0]+1) > 1e-4 {
		t.Fatalf("unexpected candidates %v", cands)
	}
	if got := CubicSolve(c, 0.5); math.Abs(got-2) > 1e-4 {
		t.Errorf("CubicSolve = %v, want 2 (first in-range candidate)", got)
	}

	// Roots 0.5, 1 and 2 all in range: the first candidate is 0.5, not the
	// largest root.
	c = Coefficients{1, -3.5, 3.5, -1}
	if got := CubicSolve(c, 0); math.Abs(got-0.5) > 1e-4 {
		t.Errorf("CubicSolve = %v, want 0.5", got)
	}
}

func TestCubicSolveNoValidRoot(t *testing.T) {
	tests := []struct {
		name    string
		c       Coefficients
		targetG float64
	}{
		{"triple root above max", Coefficients{1, -12, 48, -64}, 0},
		{"not cubic", Coefficients{0, 1, 1, 1}, 1},
		{"all zero", Coefficients{}, 1},
		{"negative root only", Coefficients{1, 0, 1, 0}, -2},
	}
	for _, tt := range tests {
		if got := CubicSolve(tt.c, tt.targetG); got != 0 {
			t.Errorf("%s: CubicSolve = %v, want 0", tt.name, got)
		}
	}
}

func TestEvaluateCubic(t *testing.T) {
	c := Coefficients{0.1, 0.2, 0.3, 0.4}
	v := 0.5 * MaxVoltage
	want := 0.1*v*v*v + 0.2*v*v + 0.3*v + 0.4
	if got := EvaluateCubic(c, 0.5); math.Abs(got-want) > tolerance {
		t.Errorf("EvaluateCubic = %v, want %v", got, want)
	}
}

func TestVoltageToClampRegister(t *testing.T) {
	got, err := VoltageToClampRegister(2.0, 262)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 100 {
		t.Errorf("VoltageToClampRegister(2.0, 262) = %d, want 100", got)
	}

	if _, err := VoltageToClampRegister(1, 0); !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("zero period: got %v, want ErrInvalidPeriod", err)
	}
	if _, err := VoltageToClampRegister(math.NaN(), 262); !errors.Is(err, ErrInvalidVoltage) {
		t.Errorf("NaN voltage: got %v, want ErrInvalidVoltage", err)
	}
	// period 20 maps to 2031 Hz, beyond the formula's domain
	if _, err := VoltageToClampRegister(1, 20); !errors.Is(err, ErrInvalidVoltage) {
		t.Errorf("short period: got %v, want ErrInvalidVoltage", err)
	}
}

func TestVoltageToClampRegisterMonotonic(t *testing.T) {
	for _, period := range []uint32{200, 262, 300} {
		prev := -1
		for v := 0.1; v <= MaxVoltage; v += 0.1 {
			got, err := VoltageToClampRegister(v, period)
			if err != nil {
				t.Fatalf("period %d, v %v: %v", period, v, err)
			}
			if got <= prev {
				t.Fatalf("period %d: clamp %d at %v not above %d", period, got, v, prev)
			}
			prev = got
		}
	}
}

func TestResonantFrequency(t *testing.T) {
	if got := ResonantFrequency(262); got != 155 {
		t.Errorf("ResonantFrequency(262) = %d, want 155", got)
	}
	hz, err := ResonantFrequencyHz(262)
	if err != nil || math.Abs(hz-155.06) > 0.01 {
		t.Errorf("ResonantFrequencyHz(262) = %v, %v", hz, err)
	}
	if _, err := ResonantFrequencyHz(0); !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("zero period: got %v", err)
	}
}

func TestShiftedPeriod(t *testing.T) {
	got, err := ShiftedPeriod(262, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 280 {
		t.Errorf("ShiftedPeriod(262, 10) = %d, want 280", got)
	}
	if _, err := ShiftedPeriod(262, 155); err == nil {
		t.Error("shift equal to the resonant frequency should fail")
	}
	if _, err := ShiftedPeriod(0, 10); !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("zero period: got %v", err)
	}
}
