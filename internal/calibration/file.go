// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/lra_haptics/internal/solver"
)

// Values is the on-disk calibration document. Absent keys stay nil and are
// reported as uncalibrated.
type Values struct {
	Autocal              *string     `yaml:"autocal,omitempty" json:"autocal,omitempty"`
	LraPeriod            *uint32     `yaml:"lra_period,omitempty" json:"lra_period,omitempty"`
	CloseLoopThreshold   *uint32     `yaml:"close_loop_threshold,omitempty" json:"close_loop_threshold,omitempty"`
	DynamicConfig        bool        `yaml:"dynamic_config" json:"dynamic_config"`
	LongFrequencyShift   *uint32     `yaml:"long_frequency_shift,omitempty" json:"long_frequency_shift,omitempty"`
	ShortVoltageMax      *uint32     `yaml:"short_voltage_max,omitempty" json:"short_voltage_max,omitempty"`
	LongVoltageMax       *uint32     `yaml:"long_voltage_max,omitempty" json:"long_voltage_max,omitempty"`
	DevHwVersion         *string     `yaml:"dev_hw_version,omitempty" json:"dev_hw_version,omitempty"`
	EffectCoeffs         []float64   `yaml:"effect_coeffs,omitempty" json:"effect_coeffs,omitempty"`
	SteadyCoeffs         []float64   `yaml:"steady_coeffs,omitempty" json:"steady_coeffs,omitempty"`
	EffectTargetG        []float64   `yaml:"effect_target_g,omitempty" json:"effect_target_g,omitempty"`
	SteadyTargetG        []float64   `yaml:"steady_target_g,omitempty" json:"steady_target_g,omitempty"`
	SteadyAmpMax         *float64    `yaml:"steady_amp_max,omitempty" json:"steady_amp_max,omitempty"`
	EffectShape          *uint32     `yaml:"effect_shape,omitempty" json:"effect_shape,omitempty"`
	SteadyShape          *uint32     `yaml:"steady_shape,omitempty" json:"steady_shape,omitempty"`
	Durations            DurationSet `yaml:"durations" json:"durations"`
	TriggerEffectSupport *uint32     `yaml:"trigger_effect_support,omitempty" json:"trigger_effect_support,omitempty"`
}

// DurationSet holds discrete effect durations in milliseconds.
type DurationSet struct {
	Click       *uint32 `yaml:"click,omitempty" json:"click,omitempty"`
	Tick        *uint32 `yaml:"tick,omitempty" json:"tick,omitempty"`
	DoubleClick *uint32 `yaml:"double_click,omitempty" json:"double_click,omitempty"`
	HeavyClick  *uint32 `yaml:"heavy_click,omitempty" json:"heavy_click,omitempty"`
}

// File is a Store backed by a YAML document.
type File struct {
	path string
	v    Values
}

// Load reads and validates a calibration file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calibration: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, err
	}
	f.path = path
	return f, nil
}

// Parse decodes a calibration document.
func Parse(data []byte) (*File, error) {
	var v Values
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse calibration: %w", err)
	}
	if err := v.validate(); err != nil {
		return nil, err
	}
	return &File{v: v}, nil
}

// FromValues wraps an in-memory document.
func FromValues(v Values) (*File, error) {
	if err := v.validate(); err != nil {
		return nil, err
	}
	return &File{v: v}, nil
}

// Path returns the file the values were loaded from, if any.
func (f *File) Path() string { return f.path }

// Values returns a copy of the document.
func (f *File) Values() Values { return f.v }

// Marshal encodes v as YAML.
func Marshal(v Values) ([]byte, error) {
	return yaml.Marshal(v)
}

func (v Values) validate() error {
	checks := []struct {
		key  string
		got  []float64
		want int
	}{
		{"effect_coeffs", v.EffectCoeffs, 4},
		{"steady_coeffs", v.SteadyCoeffs, 4},
		{"effect_target_g", v.EffectTargetG, 5},
		{"steady_target_g", v.SteadyTargetG, 3},
	}
	for _, c := range checks {
		if c.got != nil && len(c.got) != c.want {
			return fmt.Errorf("calibration: %s needs %d values, got %d", c.key, c.want, len(c.got))
		}
	}
	if v.LraPeriod != nil && *v.LraPeriod == 0 {
		return fmt.Errorf("calibration: lra_period must be non-zero")
	}
	if v.SteadyAmpMax != nil && *v.SteadyAmpMax <= 0 {
		return fmt.Errorf("calibration: steady_amp_max must be positive, got %v", *v.SteadyAmpMax)
	}
	return nil
}

func u32(p *uint32, def uint32) (uint32, bool) {
	if p == nil {
		return def, false
	}
	return *p, true
}

func (f *File) Autocal() (string, bool) {
	if f.v.Autocal == nil {
		return "", false
	}
	return *f.v.Autocal, true
}

func (f *File) LraPeriod() (uint32, bool) { return u32(f.v.LraPeriod, DefaultLraPeriod) }

func (f *File) CloseLoopThreshold() (uint32, bool) {
	return u32(f.v.CloseLoopThreshold, DefaultCloseLoopThreshold)
}

func (f *File) DynamicConfig() bool { return f.v.DynamicConfig }

func (f *File) LongFrequencyShift() (uint32, bool) {
	return u32(f.v.LongFrequencyShift, DefaultLongFrequencyShift)
}

func (f *File) ShortVoltageMax() (uint32, bool) {
	return u32(f.v.ShortVoltageMax, DefaultShortVoltageMax)
}

func (f *File) LongVoltageMax() (uint32, bool) {
	return u32(f.v.LongVoltageMax, DefaultLongVoltageMax)
}

func (f *File) DevHwVersion() (string, bool) {
	if f.v.DevHwVersion == nil {
		return "", false
	}
	return *f.v.DevHwVersion, true
}

func coeffs(in []float64) (solver.Coefficients, bool) {
	var c solver.Coefficients
	if len(in) != len(c) {
		return c, false
	}
	copy(c[:], in)
	return c, true
}

func (f *File) EffectCoeffs() (solver.Coefficients, bool) { return coeffs(f.v.EffectCoeffs) }

func (f *File) SteadyCoeffs() (solver.Coefficients, bool) { return coeffs(f.v.SteadyCoeffs) }

func (f *File) EffectTargetG() ([5]float64, bool) {
	var g [5]float64
	if len(f.v.EffectTargetG) != len(g) {
		return g, false
	}
	copy(g[:], f.v.EffectTargetG)
	return g, true
}

func (f *File) SteadyTargetG() ([3]float64, bool) {
	var g [3]float64
	if len(f.v.SteadyTargetG) != len(g) {
		return g, false
	}
	copy(g[:], f.v.SteadyTargetG)
	return g, true
}

func (f *File) SteadyAmpMax() (float64, bool) {
	if f.v.SteadyAmpMax == nil {
		return 0, false
	}
	return *f.v.SteadyAmpMax, true
}

func (f *File) EffectShape() (uint32, bool) { return u32(f.v.EffectShape, 0) }

func (f *File) SteadyShape() (uint32, bool) { return u32(f.v.SteadyShape, 0) }

func (f *File) ClickDuration() uint32 {
	d, _ := u32(f.v.Durations.Click, DefaultClickDuration)
	return d
}

func (f *File) TickDuration() uint32 {
	d, _ := u32(f.v.Durations.Tick, DefaultTickDuration)
	return d
}

func (f *File) DoubleClickDuration() uint32 {
	d, _ := u32(f.v.Durations.DoubleClick, DefaultDoubleClickDuration)
	return d
}

func (f *File) HeavyClickDuration() uint32 {
	d, _ := u32(f.v.Durations.HeavyClick, DefaultHeavyClickDuration)
	return d
}

func (f *File) TriggerEffectSupport() uint32 {
	d, _ := u32(f.v.TriggerEffectSupport, DefaultTriggerEffectSupport)
	return d
}
