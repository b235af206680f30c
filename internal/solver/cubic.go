// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package solver

import (
	"fmt"
	"math"
)

// RootCase classifies a cubic by Shengjin's discriminants.
type RootCase int

const (
	NoRealRoot RootCase = iota
	TripleRoot
	OneRealRoot
	ThreeRealRoots
	DoubleRoot
)

func (r RootCase) String() string {
	switch r {
	case TripleRoot:
		return "triple"
	case OneRealRoot:
		return "one-real"
	case ThreeRealRoots:
		return "three-real"
	case DoubleRoot:
		return "double"
	default:
		return "none"
	}
}

// Discriminant holds the Shengjin quantities for a·v³ + b·v² + c·v + (d − g).
type Discriminant struct {
	A, B, C, Delta float64
	Case           RootCase
}

func (d Discriminant) String() string {
	return fmt.Sprintf("%s (A=%.4g B=%.4g C=%.4g Δ=%.4g)", d.Case, d.A, d.B, d.C, d.Delta)
}

// Classify computes the discriminants for solving f(v) = targetG.
func Classify(c Coefficients, targetG float64) Discriminant {
	a, b, cc, d := c[0], c[1], c[2], c[3]-targetG

	disc := Discriminant{
		A: b*b - 3*a*cc,
		B: b*cc - 9*a*d,
		C: cc*cc - 3*b*d,
	}
	disc.Delta = disc.B*disc.B - 4*disc.A*disc.C

	switch {
	case a == 0 || math.IsNaN(disc.Delta) || math.IsInf(disc.Delta, 0):
		disc.Case = NoRealRoot
	case math.Abs(disc.A) <= Epsilon && math.Abs(disc.B) <= Epsilon:
		disc.Case = TripleRoot
	case disc.Delta > Epsilon:
		disc.Case = OneRealRoot
	case disc.Delta < -Epsilon:
		disc.Case = ThreeRealRoots
	default:
		disc.Case = DoubleRoot
	}
	return disc
}

// Candidates returns the roots of the classified cubic in the order they
// must be tested.
func (d Discriminant) Candidates(c Coefficients) []float64 {
	a, b := c[0], c[1]

	switch d.Case {
	case TripleRoot:
		return []float64{-b / (3 * a)}

	case OneRealRoot:
		sq := math.Sqrt(d.Delta)
		y1 := d.A*b + 3*a*(-d.B+sq)/2
		y2 := d.A*b + 3*a*(-d.B-sq)/2
		return []float64{(-b - math.Cbrt(y1) - math.Cbrt(y2)) / (3 * a)}

	case ThreeRealRoots:
		sqrtA := math.Sqrt(d.A)
		t := (2*d.A*b - 3*a*d.B) / (2 * d.A * sqrtA)
		// rounding can push t just outside acos's domain
		t = math.Max(-1, math.Min(1, t))
		theta := math.Acos(t) / 3
		cosT := math.Cos(theta)
		sinT := math.Sqrt(3) * math.Sin(theta)
		return []float64{
			(-b - 2*sqrtA*cosT) / (3 * a),
			(-b + sqrtA*(cosT+sinT)) / (3 * a),
			(-b + sqrtA*(cosT-sinT)) / (3 * a),
		}

	case DoubleRoot:
		k := d.B / d.A
		return []float64{-b/a + k, -k / 2}
	}
	return nil
}

// CubicSolve inverts the cubic model for targetG. The first candidate root
// in (Epsilon, MaxVoltage] is returned, or 0 if there is none.
func CubicSolve(c Coefficients, targetG float64) float64 {
	for _, v := range Classify(c, targetG).Candidates(c) {
		if inRange(v) {
			return v
		}
	}
	return 0
}
