// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package calibration holds per-device haptic calibration values.
package calibration

import (
	"github.com/relabs-tech/lra_haptics/internal/solver"
)

// Store is read-only access to persisted calibration. Every getter reports
// whether the value was calibrated for this device.
type Store interface {
	Autocal() (string, bool)
	LraPeriod() (uint32, bool)
	CloseLoopThreshold() (uint32, bool)
	DynamicConfig() bool
	LongFrequencyShift() (uint32, bool)
	ShortVoltageMax() (uint32, bool)
	LongVoltageMax() (uint32, bool)
	DevHwVersion() (string, bool)
	EffectCoeffs() (solver.Coefficients, bool)
	SteadyCoeffs() (solver.Coefficients, bool)
	EffectTargetG() ([5]float64, bool)
	SteadyTargetG() ([3]float64, bool)
	SteadyAmpMax() (float64, bool)
	EffectShape() (uint32, bool)
	SteadyShape() (uint32, bool)
	ClickDuration() uint32
	TickDuration() uint32
	DoubleClickDuration() uint32
	HeavyClickDuration() uint32
	TriggerEffectSupport() uint32
}

// Default values used when a device has no calibration for a key.
const (
	DefaultLraPeriod            uint32 = 262
	DefaultCloseLoopThreshold   uint32 = 20
	DefaultLongFrequencyShift   uint32 = 10
	DefaultShortVoltageMax      uint32 = 125
	DefaultLongVoltageMax       uint32 = 125
	DefaultClickDuration        uint32 = 9
	DefaultTickDuration         uint32 = 5
	DefaultDoubleClickDuration  uint32 = 135
	DefaultHeavyClickDuration   uint32 = 12
	DefaultTriggerEffectSupport uint32 = 1
)
