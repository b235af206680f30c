// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package drive turns vibration requests into DRV2624 register programs.
//
// Steady vibrations adapt to the actuator temperature and, when hot, to
// whether the device is being held still. Discrete effects always use the
// effect clamp table at a strength-derived row.
package drive

import (
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/relabs-tech/lra_haptics/internal/calibration"
	"github.com/relabs-tech/lra_haptics/internal/clamp"
	"github.com/relabs-tech/lra_haptics/internal/hwapi"
	"github.com/relabs-tech/lra_haptics/internal/solver"
)

// maxRtpInput is the RTP_INPUT value for full amplitude.
const maxRtpInput = 127

// Callback is a completion notification. No backend supports them.
type Callback func()

// Capability is a bit set of optional features.
type Capability uint32

const (
	CapAmplitudeControl Capability = 1 << iota
	CapResonantFrequency
)

// Has reports whether c includes f.
func (c Capability) Has(f Capability) bool { return c&f != 0 }

// Durations are the discrete effect lengths in milliseconds.
type Durations struct {
	Click       uint32 `json:"click"`
	Tick        uint32 `json:"tick"`
	DoubleClick uint32 `json:"double_click"`
	HeavyClick  uint32 `json:"heavy_click"`
}

// Status is a snapshot of the controller for status reports.
type Status struct {
	Dynamic            bool          `json:"dynamic_config"`
	LraPeriod          uint32        `json:"lra_period"`
	CloseLoopThreshold uint32        `json:"close_loop_threshold"`
	Durations          Durations     `json:"durations"`
	Tables             *clamp.Tables `json:"tables,omitempty"`
	LastPlan           *Plan         `json:"last_plan,omitempty"`
	Capabilities       Capability    `json:"capabilities"`
	Bounds             Bounds        `json:"bounds"`
}

// Vibrator drives one LRA. Requests are serialised by an internal lock.
type Vibrator struct {
	mu sync.Mutex

	hw     hwapi.HwAPI
	store  calibration.Store
	motion MotionSource
	bounds Bounds

	tables             *clamp.Tables // nil when dynamic configuration is off
	lraPeriod          uint32
	closeLoopThreshold uint32
	durations          Durations
	last               *Plan
}

// New configures the amplifier from store. Initialisation failures are
// logged and do not prevent construction. motion may be nil, in which case
// hot vibrations never use the boost row.
func New(hw hwapi.HwAPI, store calibration.Store, motion MotionSource, bounds Bounds, opts ...clamp.Option) *Vibrator {
	v := &Vibrator{hw: hw, store: store, motion: motion, bounds: bounds}

	if err := hw.SetState(true); err != nil {
		log.Printf("drive: failed to set state: %v", err)
	}
	if autocal, ok := store.Autocal(); ok {
		if err := hw.SetAutocal(autocal); err != nil {
			log.Printf("drive: failed to restore autocal: %v", err)
		}
	}

	v.lraPeriod, _ = store.LraPeriod()
	v.closeLoopThreshold, _ = store.CloseLoopThreshold()

	if store.DynamicConfig() {
		v.tables = clamp.Build(store, opts...)
		log.Printf("drive: dynamic config on, effect clamps %v steady clamps %v",
			v.tables.Effect.Clamps, v.tables.Steady.Clamps)
	} else if err := hw.SetOlLraPeriod(v.lraPeriod); err != nil {
		log.Printf("drive: failed to set LRA period %d: %v", v.lraPeriod, err)
	}

	v.durations = Durations{
		Click:       store.ClickDuration(),
		Tick:        store.TickDuration(),
		DoubleClick: store.DoubleClickDuration(),
		HeavyClick:  store.HeavyClickDuration(),
	}

	if err := hw.SetLpTriggerEffect(store.TriggerEffectSupport()); err != nil {
		log.Printf("drive: failed to set LP trigger effect: %v", err)
	}
	return v
}

// Tables returns the clamp tables, or nil when dynamic configuration is off.
func (v *Vibrator) Tables() *clamp.Tables { return v.tables }

// On starts a steady vibration of durationMs.
func (v *Vibrator) On(durationMs int32, cb Callback) (Plan, error) {
	if cb != nil {
		return Plan{}, fmt.Errorf("%w: completion callback", ErrUnsupportedOperation)
	}
	if durationMs < 0 {
		return Plan{}, invalidArg("duration %d ms", durationMs)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	ms := uint32(durationMs)
	var p Plan
	if v.tables == nil {
		p = Plan{Kind: "steady", Mode: hwapi.ModeRTP, DurationMs: ms}
	} else {
		p = PlanSteady(v.tables.Steady, v.bounds, ms, v.temperature(), v.motion)
	}
	p.Loop = loopFor(p.Mode, ms, v.closeLoopThreshold)
	return p, v.apply(p)
}

// temperature reads the amplifier temperature. A failed read is treated
// as the normal band.
func (v *Vibrator) temperature() int32 {
	t, err := v.hw.GetTemperature()
	if err != nil {
		// Treated as NORMAL; a zero reading would have selected the cold pair.
		mid := v.bounds.Lower + (v.bounds.Upper-v.bounds.Lower)/2
		log.Printf("drive: temperature unavailable, assuming %d m°C: %v", mid, err)
		return mid
	}
	return t
}

// Perform plays a discrete effect and returns its duration in ms.
func (v *Vibrator) Perform(e Effect, s Strength, cb Callback) (uint32, error) {
	if cb != nil {
		return 0, fmt.Errorf("%w: completion callback", ErrUnsupportedOperation)
	}
	row, seq, err := effectRow(e, s)
	if err != nil {
		return 0, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	p := Plan{
		Kind:       "effect",
		Mode:       hwapi.ModeWaveform,
		DurationMs: v.effectDuration(e),
		Row:        row,
		Effect:     e.String(),
		Strength:   s.String(),
	}
	p.Loop = loopFor(p.Mode, p.DurationMs, v.closeLoopThreshold)
	if v.tables != nil {
		t := v.tables.Effect
		p.Configured = true
		p.Clamp = t.Clamps[row]
		p.Period = t.Period
		p.Shape = t.Shape
	}

	if err := writeErr(hwapi.OpSequencer, v.hw.SetSequencer(seq)); err != nil {
		return 0, err
	}
	if err := v.apply(p); err != nil {
		return 0, err
	}
	return p.DurationMs, nil
}

func (v *Vibrator) effectDuration(e Effect) uint32 {
	switch e {
	case EffectClick:
		return v.durations.Click
	case EffectDoubleClick:
		return v.durations.DoubleClick
	case EffectHeavyClick:
		return v.durations.HeavyClick
	}
	return v.durations.Tick
}

type step struct {
	op  string
	run func() error
}

// apply writes p to the chip. The first failing write aborts.
func (v *Vibrator) apply(p Plan) error {
	steps := []step{
		{hwapi.OpCtrlLoop, func() error { return v.hw.SetCtrlLoop(p.Loop) }},
		{hwapi.OpDuration, func() error { return v.hw.SetDuration(p.DurationMs) }},
		{hwapi.OpMode, func() error { return v.hw.SetMode(p.Mode) }},
	}
	if p.Configured {
		steps = append(steps,
			step{hwapi.OpLraWaveShape, func() error { return v.hw.SetLraWaveShape(p.Shape) }},
			step{hwapi.OpOdClamp, func() error { return v.hw.SetOdClamp(p.Clamp) }},
			step{hwapi.OpOlLraPeriod, func() error { return v.hw.SetOlLraPeriod(p.Period) }},
		)
	}
	steps = append(steps, step{hwapi.OpActivate, func() error { return v.hw.SetActivate(true) }})

	for _, s := range steps {
		if err := s.run(); err != nil {
			return writeErr(s.op, err)
		}
	}
	v.last = &p
	return nil
}

// Off stops any playback.
func (v *Vibrator) Off() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return writeErr(hwapi.OpActivate, v.hw.SetActivate(false))
}

// SetAmplitude scales RTP playback. a must be in (0, 1].
func (v *Vibrator) SetAmplitude(a float64) error {
	if !(a > 0 && a <= 1) {
		return invalidArg("amplitude %v outside (0, 1]", a)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return writeErr(hwapi.OpRtpInput, v.hw.SetRtpInput(int8(math.Round(a*maxRtpInput))))
}

// Capabilities reports the optional features of this amplifier.
func (v *Vibrator) Capabilities() Capability {
	c := CapResonantFrequency
	if v.hw.HasRtpInput() {
		c |= CapAmplitudeControl
	}
	return c
}

// ResonantFrequency returns the calibrated resonance in Hz.
func (v *Vibrator) ResonantFrequency() (float64, error) {
	p, ok := v.store.LraPeriod()
	if !ok {
		return 0, fmt.Errorf("%w: lra_period", ErrNotCalibrated)
	}
	return solver.ResonantFrequencyHz(p)
}

// SetExternalControl is not available on this amplifier.
func (v *Vibrator) SetExternalControl(bool) error {
	return fmt.Errorf("%w: external control", ErrUnsupportedOperation)
}

// AlwaysOnEnable is not available on this amplifier.
func (v *Vibrator) AlwaysOnEnable(id int32, e Effect, s Strength) error {
	return fmt.Errorf("%w: always-on effects", ErrUnsupportedOperation)
}

// AlwaysOnDisable is not available on this amplifier.
func (v *Vibrator) AlwaysOnDisable(id int32) error {
	return fmt.Errorf("%w: always-on effects", ErrUnsupportedOperation)
}

// Compose is not available on this amplifier.
func (v *Vibrator) Compose(effects []Effect, cb Callback) error {
	return fmt.Errorf("%w: composition", ErrUnsupportedOperation)
}

// QFactor is not available on this amplifier.
func (v *Vibrator) QFactor() (float64, error) {
	return 0, fmt.Errorf("%w: q factor", ErrUnsupportedOperation)
}

// Status returns a snapshot for status reports.
func (v *Vibrator) Status() Status {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := Status{
		Dynamic:            v.tables != nil,
		LraPeriod:          v.lraPeriod,
		CloseLoopThreshold: v.closeLoopThreshold,
		Durations:          v.durations,
		Tables:             v.tables,
		Capabilities:       v.Capabilities(),
		Bounds:             v.bounds,
	}
	if v.last != nil {
		p := *v.last
		s.LastPlan = &p
	}
	return s
}

// Close releases the backend.
func (v *Vibrator) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.hw.Close()
}
