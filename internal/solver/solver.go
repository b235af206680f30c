// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package solver maps between LRA drive voltage and measured acceleration.
//
// A device's response is characterised by four coefficients {a, b, c, d}:
//
//	cubic:  f(v) = a·v³ + b·v² + c·v + d
//	linear: f(v) = a·v + b            (when c == 0 and d == 0)
//
// where v is the drive voltage in [0, MaxVoltage] and f(v) the peak
// acceleration in g. All functions are pure.
package solver

import (
	"errors"
	"math"
)

const (
	// MaxVoltage is the highest drive voltage a solver may return.
	MaxVoltage = 3.2
	// Epsilon guards comparisons against division noise.
	Epsilon = 1e-7

	// periodConstant converts the OL_LRA_PERIOD register to Hz.
	periodConstant = 24615
	// driveGain is the volts-per-LSB of the OD_CLAMP register.
	driveGain = 21.32 / 1000.0
)

var (
	// ErrInvalidPeriod is returned for an LRA period of zero.
	ErrInvalidPeriod = errors.New("solver: lra period must be non-zero")
	// ErrInvalidVoltage is returned when a voltage cannot be turned into a clamp value.
	ErrInvalidVoltage = errors.New("solver: voltage has no clamp representation")
)

// Coefficients holds {a, b, c, d} of the response polynomial.
type Coefficients [4]float64

// IsLinear reports whether the coefficients describe f(v) = a·v + b.
func (c Coefficients) IsLinear() bool {
	return c[2] == 0 && c[3] == 0
}

// inRange reports whether v is an acceptable drive voltage.
func inRange(v float64) bool {
	return v > Epsilon && v <= MaxVoltage
}

// LinearSolve inverts f(v) = a·v + b. It returns 0 when the solution falls
// outside (Epsilon, MaxVoltage].
func LinearSolve(c Coefficients, targetG float64) float64 {
	v := (targetG - c[1]) / c[0]
	if inRange(v) {
		return v
	}
	return 0
}

// EvaluateLinear returns a·v + b at fraction·MaxVoltage.
func EvaluateLinear(c Coefficients, fraction float64) float64 {
	return c[0]*fraction*MaxVoltage + c[1]
}

// EvaluateCubic returns f(fraction·MaxVoltage) for the cubic model.
func EvaluateCubic(c Coefficients, fraction float64) float64 {
	v := fraction * MaxVoltage
	return c[0]*v*v*v + c[1]*v*v + c[2]*v + c[3]
}

// Evaluate dispatches to EvaluateLinear or EvaluateCubic based on the
// coefficient form.
func Evaluate(c Coefficients, fraction float64) float64 {
	if c.IsLinear() {
		return EvaluateLinear(c, fraction)
	}
	return EvaluateCubic(c, fraction)
}

// Solve dispatches to LinearSolve or CubicSolve based on the coefficient form.
func Solve(c Coefficients, targetG float64) float64 {
	if c.IsLinear() {
		return LinearSolve(c, targetG)
	}
	return CubicSolve(c, targetG)
}

// ResonantFrequency converts an OL_LRA_PERIOD register value to Hz using the
// chip's integer formula. The period must be non-zero.
func ResonantFrequency(period uint32) uint32 {
	return uint32(1000000000 / (uint64(periodConstant) * uint64(period)))
}

// ResonantFrequencyHz is the floating point form of ResonantFrequency.
func ResonantFrequencyHz(period uint32) (float64, error) {
	if period == 0 {
		return 0, ErrInvalidPeriod
	}
	return 1e9 / (float64(periodConstant) * float64(period)), nil
}

// ShiftedPeriod lowers the resonant frequency of period by shiftHz and
// returns the matching period register value.
func ShiftedPeriod(period, shiftHz uint32) (uint32, error) {
	if period == 0 {
		return 0, ErrInvalidPeriod
	}
	freq := ResonantFrequency(period)
	if shiftHz >= freq {
		return 0, ErrInvalidPeriod
	}
	return ResonantFrequency(freq - shiftHz), nil
}

// VoltageToClampRegister converts a drive voltage to the OD_CLAMP register
// value for the given LRA period.
func VoltageToClampRegister(volts float64, period uint32) (int, error) {
	if period == 0 {
		return 0, ErrInvalidPeriod
	}
	if math.IsNaN(volts) || math.IsInf(volts, 0) {
		return 0, ErrInvalidVoltage
	}
	radicand := 1.0 - float64(ResonantFrequency(period))*8.0/10000.0
	if radicand <= 0 {
		return 0, ErrInvalidVoltage
	}
	return int(math.Round(volts / (driveGain * math.Sqrt(radicand)))), nil
}
