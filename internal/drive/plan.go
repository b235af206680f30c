// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package drive

import (
	"fmt"
	"log"

	"github.com/relabs-tech/lra_haptics/internal/clamp"
	"github.com/relabs-tech/lra_haptics/internal/hwapi"
	"github.com/relabs-tech/lra_haptics/internal/motion"
)

// Thermal is the temperature band of the actuator.
type Thermal int

const (
	ThermalNormal Thermal = iota
	ThermalHot
	ThermalCold
)

func (t Thermal) String() string {
	switch t {
	case ThermalHot:
		return "hot"
	case ThermalCold:
		return "cold"
	}
	return "normal"
}

// MarshalText lets plans carry the band name in JSON.
func (t Thermal) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Thermal) UnmarshalText(b []byte) error {
	switch string(b) {
	case "hot":
		*t = ThermalHot
	case "cold":
		*t = ThermalCold
	case "normal":
		*t = ThermalNormal
	default:
		return fmt.Errorf("drive: unknown thermal band %q", b)
	}
	return nil
}

// Bounds are the thresholds used to adapt steady vibrations.
type Bounds struct {
	Upper int32 // m°C, above is hot
	Lower int32 // m°C, below is cold

	// MotionThresholdMs is the duration a hot vibration must exceed before
	// the motion classifier is consulted.
	MotionThresholdMs uint32
}

// DefaultBounds are 10°C / 5°C and 100 ms.
var DefaultBounds = Bounds{Upper: 10000, Lower: 5000, MotionThresholdMs: 100}

// Band classifies a temperature.
func (b Bounds) Band(milliC int32) Thermal {
	switch {
	case milliC > b.Upper:
		return ThermalHot
	case milliC < b.Lower:
		return ThermalCold
	}
	return ThermalNormal
}

// MotionSource reports whether the device is being held still.
// *motion.Classifier satisfies it.
type MotionSource interface {
	Classify() (motion.State, error)
}

// Plan is the register program for one vibration.
type Plan struct {
	Kind       string            `json:"kind"` // "steady" or "effect"
	Mode       string            `json:"mode"`
	Loop       hwapi.LoopControl `json:"loop"`
	DurationMs uint32            `json:"duration_ms"`

	// Configured is false when dynamic configuration is off and only the
	// chip defaults apply. Row, Clamp, Period and Shape are then unset.
	Configured bool            `json:"configured"`
	Row        int             `json:"row"`
	Clamp      uint32          `json:"clamp"`
	Period     uint32          `json:"period"`
	Shape      hwapi.WaveShape `json:"shape"`

	Thermal     Thermal `json:"thermal"`
	Temperature int32   `json:"temperature_mc"`
	Motion      string  `json:"motion,omitempty"`
	Effect      string  `json:"effect,omitempty"`
	Strength    string  `json:"strength,omitempty"`
}

// PlanSteady picks the steady row, clamp and period for a vibration of
// durationMs at temperature milliC. The table is not modified. ms is
// only consulted for a hot vibration longer than b.MotionThresholdMs.
func PlanSteady(t clamp.SteadyTable, b Bounds, durationMs uint32, milliC int32, ms MotionSource) Plan {
	p := Plan{
		Kind:        "steady",
		Mode:        hwapi.ModeRTP,
		DurationMs:  durationMs,
		Configured:  true,
		Row:         0,
		Clamp:       t.Clamps[0],
		Period:      t.Period,
		Shape:       t.Shape,
		Thermal:     b.Band(milliC),
		Temperature: milliC,
	}

	switch p.Thermal {
	case ThermalHot:
		if durationMs <= b.MotionThresholdMs || ms == nil {
			break
		}
		state, err := ms.Classify()
		if err != nil {
			log.Printf("drive: motion unavailable, using default row: %v", err)
			p.Motion = "unknown"
			break
		}
		p.Motion = state.String()
		if state == motion.Static {
			p.Row = clamp.BoostRow
			p.Clamp = t.Clamps[clamp.BoostRow]
		}
	case ThermalCold:
		p.Clamp = t.ColdClamp
		p.Period = t.ColdPeriod
	}
	return p
}

// loopFor returns closed loop only for RTP vibrations longer than the
// close-loop threshold.
func loopFor(mode string, durationMs, threshold uint32) hwapi.LoopControl {
	if mode == hwapi.ModeRTP && durationMs > threshold {
		return hwapi.LoopClosed
	}
	return hwapi.LoopOpen
}
