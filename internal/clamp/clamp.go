// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package clamp derives the drive clamp tables from device calibration.
//
// Build never fails. Whenever a row cannot be derived from the response
// model it falls back to the table's voltage ceiling, so a badly calibrated
// motor still vibrates.
package clamp

import (
	"fmt"
	"log"
	"strings"

	"github.com/relabs-tech/lra_haptics/internal/calibration"
	"github.com/relabs-tech/lra_haptics/internal/hwapi"
	"github.com/relabs-tech/lra_haptics/internal/solver"
)

const (
	EffectRows = 5
	SteadyRows = 3

	// BoostRow is the steady row used for a still device when hot.
	BoostRow = 2

	// DefaultColdFloor is the steady clamp used when cold (about 1.8 Vpeak).
	DefaultColdFloor uint32 = 90
)

// Interpolation anchors for the boost row, as fractions of MaxVoltage.
const (
	boostLow  = 0.2
	boostHigh = 0.6
)

var (
	// DefaultEffectTargetG is the acceleration each effect row aims for, in g.
	DefaultEffectTargetG = [EffectRows]float64{0.275, 0.55, 0.6, 0.9, 1.12}
	// DefaultSteadyTargetG is the acceleration of the reduced, nominal and
	// boost steady rows, in g.
	DefaultSteadyTargetG = [SteadyRows]float64{2.15, 1.145, 1.3}

	earlyEffectTargetG = [EffectRows]float64{0.15, 0.27, 0.35, 0.54, 0.65}
	earlySteadyTargetG = [SteadyRows]float64{1.2, 1.145, 0.4}
)

// EffectTable holds the clamp per discrete effect row.
type EffectTable struct {
	Clamps  [EffectRows]uint32  `json:"clamps"`
	TargetG [EffectRows]float64 `json:"target_g"`
	Period  uint32              `json:"period"`
	Shape   hwapi.WaveShape     `json:"shape"`
	Ceiling uint32              `json:"ceiling"`
}

// SteadyTable holds the clamp per steady row plus the pair used when the
// actuator is cold.
type SteadyTable struct {
	Clamps     [SteadyRows]uint32  `json:"clamps"`
	TargetG    [SteadyRows]float64 `json:"target_g"`
	Period     uint32              `json:"period"`
	Shape      hwapi.WaveShape     `json:"shape"`
	Ceiling    uint32              `json:"ceiling"`
	ColdClamp  uint32              `json:"cold_clamp"`
	ColdPeriod uint32              `json:"cold_period"`
}

// Tables is the output of Build.
type Tables struct {
	Effect   EffectTable `json:"effect"`
	Steady   SteadyTable `json:"steady"`
	Early    bool        `json:"early_build"`
	Degraded int         `json:"degraded"` // rows that fell back to the ceiling
}

// Option adjusts Build.
type Option func(*builder)

// WithColdFloor sets the steady clamp used when cold.
func WithColdFloor(v uint32) Option {
	return func(b *builder) { b.coldFloor = v }
}

type builder struct {
	store     calibration.Store
	period    uint32
	coldFloor uint32
	effectG   [EffectRows]float64
	steadyG   [SteadyRows]float64
	early     bool
	degraded  int
}

// Build derives both clamp tables from the store.
func Build(store calibration.Store, opts ...Option) *Tables {
	b := &builder{
		store:     store,
		coldFloor: DefaultColdFloor,
		effectG:   DefaultEffectTargetG,
		steadyG:   DefaultSteadyTargetG,
	}
	for _, o := range opts {
		o(b)
	}
	b.period, _ = store.LraPeriod()
	b.selectTargets()

	t := &Tables{
		Effect: b.effectTable(),
		Steady: b.steadyTable(),
		Early:  b.early,
	}
	t.Degraded = b.degraded
	if t.Degraded > 0 {
		log.Printf("clamp: calibration degraded, %d rows fell back to the voltage ceiling", t.Degraded)
	}
	return t
}

// IsEarlyBuild reports whether a hardware revision is an engineering build
// with a weaker actuator response.
func IsEarlyBuild(hwVersion string) bool {
	return strings.Contains(hwVersion, "EVT") || strings.Contains(hwVersion, "PROTO")
}

func (b *builder) selectTargets() {
	if ver, ok := b.store.DevHwVersion(); ok && IsEarlyBuild(ver) {
		b.effectG = earlyEffectTargetG
		b.steadyG = earlySteadyTargetG
		b.early = true
		log.Printf("clamp: hw version %q is an early build, using reduced target G", ver)
	}
	if g, ok := b.store.EffectTargetG(); ok {
		b.effectG = g
	}
	if g, ok := b.store.SteadyTargetG(); ok {
		b.steadyG = g
	}
}

// register converts a voltage to a clamp in (0, ceiling]. Anything that
// does not fit is replaced by the ceiling.
func (b *builder) register(volts float64, ceiling uint32, row string) uint32 {
	c, err := solver.VoltageToClampRegister(volts, b.period)
	switch {
	case err != nil:
		log.Printf("clamp: %s: %v, using ceiling %d", row, err, ceiling)
	case c <= 0 || c > int(ceiling):
		log.Printf("clamp: %s: %.3f V gives clamp %d outside (0, %d], using ceiling", row, volts, c, ceiling)
	default:
		return uint32(c)
	}
	b.degraded++
	return ceiling
}

// bound keeps an already computed clamp in (0, ceiling].
func (b *builder) bound(c, ceiling uint32, row string) uint32 {
	if c == 0 || c > ceiling {
		log.Printf("clamp: %s: clamp %d outside (0, %d], using ceiling", row, c, ceiling)
		b.degraded++
		return ceiling
	}
	return c
}

func (b *builder) effectTable() EffectTable {
	ceiling, _ := b.store.ShortVoltageMax()
	t := EffectTable{
		TargetG: b.effectG,
		Period:  b.period,
		Shape:   hwapi.ShapeSine,
		Ceiling: ceiling,
	}
	if s, ok := b.store.EffectShape(); ok {
		t.Shape = hwapi.WaveShape(s)
	}

	coeffs, ok := b.store.EffectCoeffs()
	for i := range t.Clamps {
		if !ok {
			t.Clamps[i] = ceiling
			continue
		}
		t.Clamps[i] = b.register(solver.Solve(coeffs, b.effectG[i]), ceiling, rowName("effect", i))
	}
	return t
}

func (b *builder) steadyTable() SteadyTable {
	ceiling, _ := b.store.LongVoltageMax()
	t := SteadyTable{
		TargetG:   b.steadyG,
		Period:    b.period,
		Shape:     hwapi.ShapeSquare,
		Ceiling:   ceiling,
		ColdClamp: b.coldFloor,
	}
	if s, ok := b.store.SteadyShape(); ok {
		t.Shape = hwapi.WaveShape(s)
	}

	coeffs, ok := b.store.SteadyCoeffs()
	if ok {
		for i := range t.Clamps {
			var v float64
			if i == BoostRow {
				v = InterpolateBoost(coeffs, b.steadyG[i])
			} else {
				v = solver.Solve(coeffs, b.steadyG[i])
			}
			t.Clamps[i] = b.register(v, ceiling, rowName("steady", i))
		}
	} else {
		ampMax, hasAmp := b.store.SteadyAmpMax()
		for i := range t.Clamps {
			switch {
			case i == 1 || !hasAmp:
				t.Clamps[i] = ceiling
			default:
				scaled := roundNonNegative(b.steadyG[i] / ampMax * float64(ceiling))
				t.Clamps[i] = b.bound(scaled, ceiling, rowName("steady", i))
			}
		}
	}

	shift, _ := b.store.LongFrequencyShift()
	t.ColdPeriod = b.period
	if p, err := solver.ShiftedPeriod(b.period, shift); err != nil {
		log.Printf("clamp: cold period for shift %d Hz: %v, keeping %d", shift, err, b.period)
	} else {
		t.ColdPeriod = p
	}
	return t
}

// InterpolateBoost returns the boost row voltage by linear interpolation
// between the modelled response at 20% and 60% of MaxVoltage. It returns 0
// when the two points coincide or the result is outside (Epsilon, MaxVoltage].
func InterpolateBoost(c solver.Coefficients, targetG float64) float64 {
	lo := solver.Evaluate(c, boostLow)
	hi := solver.Evaluate(c, boostHigh)
	if hi == lo {
		return 0
	}
	v := boostLow*solver.MaxVoltage + (targetG-lo)*(boostHigh-boostLow)*solver.MaxVoltage/(hi-lo)
	if !(v > solver.Epsilon && v <= solver.MaxVoltage) {
		return 0
	}
	return v
}

func roundNonNegative(v float64) uint32 {
	if !(v > 0) {
		return 0
	}
	if v >= float64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(v + 0.5)
}

func rowName(table string, i int) string {
	return fmt.Sprintf("%s row %d", table, i)
}
