// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package hwapi is the register-level interface to the LRA amplifier.
package hwapi

import (
	"errors"
	"fmt"
)

// WaveShape selects the LRA drive waveform.
type WaveShape uint32

const (
	ShapeSquare WaveShape = 0
	ShapeSine   WaveShape = 1
)

func (s WaveShape) String() string {
	switch s {
	case ShapeSquare:
		return "square"
	case ShapeSine:
		return "sine"
	default:
		return fmt.Sprintf("shape(%d)", uint32(s))
	}
}

// LoopControl selects closed or open loop drive.
type LoopControl uint32

const (
	LoopClosed LoopControl = 0
	LoopOpen   LoopControl = 1
)

func (l LoopControl) String() string {
	if l == LoopOpen {
		return "open"
	}
	return "closed"
}

// Playback modes.
const (
	ModeRTP      = "rtp"
	ModeWaveform = "waveform"
)

// ErrNoTemperature is returned by backends without a temperature source.
var ErrNoTemperature = errors.New("hwapi: no temperature source")

// HwAPI is the set of primitives the drive controller needs from the chip.
// Every setter either succeeds or reports an I/O failure.
type HwAPI interface {
	SetState(on bool) error
	SetAutocal(autocal string) error
	SetLpTriggerEffect(support uint32) error
	SetDuration(ms uint32) error
	SetMode(mode string) error
	SetCtrlLoop(loop LoopControl) error
	SetLraWaveShape(shape WaveShape) error
	SetOdClamp(clamp uint32) error
	SetOlLraPeriod(period uint32) error
	SetActivate(on bool) error
	SetSequencer(seq string) error
	SetRtpInput(value int8) error
	HasRtpInput() bool
	// GetTemperature returns the amplifier temperature in milli-degrees Celsius.
	GetTemperature() (int32, error)
	Close() error
}

// Operation names, shared by all backends for logging and by Mock.
const (
	OpState        = "state"
	OpAutocal      = "autocal"
	OpLpTrigger    = "lp_trigger_effect"
	OpDuration     = "duration"
	OpMode         = "mode"
	OpCtrlLoop     = "ctrl_loop"
	OpLraWaveShape = "lra_wave_shape"
	OpOdClamp      = "od_clamp"
	OpOlLraPeriod  = "ol_lra_period"
	OpActivate     = "activate"
	OpSequencer    = "set_sequencer"
	OpRtpInput     = "rtp_input"
	OpTemperature  = "temperature"
)

func boolValue(on bool) uint32 {
	if on {
		return 1
	}
	return 0
}
