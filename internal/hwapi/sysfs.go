// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package hwapi

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Sysfs drives the amplifier through the kernel driver's attribute files,
// e.g. /sys/class/leds/vibrator/device.
type Sysfs struct {
	mu       sync.Mutex
	dir      string
	tempPath string
}

// NewSysfs checks that dir exists. tempPath points at a file holding the
// amplifier temperature in milli-degrees; empty disables temperature reads.
func NewSysfs(dir, tempPath string) (*Sysfs, error) {
	st, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("hwapi: sysfs dir: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("hwapi: sysfs path %q is not a directory", dir)
	}
	return &Sysfs{dir: dir, tempPath: tempPath}, nil
}

func (s *Sysfs) write(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return fmt.Errorf("hwapi: open %s: %w", name, err)
	}
	if _, err := f.WriteString(value + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("hwapi: write %s=%q: %w", name, value, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("hwapi: close %s: %w", name, err)
	}
	return nil
}

func (s *Sysfs) writeUint(name string, v uint32) error {
	return s.write(name, strconv.FormatUint(uint64(v), 10))
}

func (s *Sysfs) SetState(on bool) error { return s.writeUint(OpState, boolValue(on)) }
func (s *Sysfs) SetAutocal(autocal string) error { return s.write(OpAutocal, autocal) }
func (s *Sysfs) SetLpTriggerEffect(support uint32) error { return s.writeUint(OpLpTrigger, support) }
func (s *Sysfs) SetDuration(ms uint32) error { return s.writeUint(OpDuration, ms) }
func (s *Sysfs) SetMode(mode string) error { return s.write(OpMode, mode) }
func (s *Sysfs) SetCtrlLoop(loop LoopControl) error { return s.writeUint(OpCtrlLoop, uint32(loop)) }
func (s *Sysfs) SetLraWaveShape(shape WaveShape) error { return s.writeUint(OpLraWaveShape, uint32(shape)) }
func (s *Sysfs) SetOdClamp(clamp uint32) error { return s.writeUint(OpOdClamp, clamp) }
func (s *Sysfs) SetOlLraPeriod(period uint32) error { return s.writeUint(OpOlLraPeriod, period) }
func (s *Sysfs) SetActivate(on bool) error { return s.writeUint(OpActivate, boolValue(on)) }
func (s *Sysfs) SetSequencer(seq string) error { return s.write(OpSequencer, seq) }

func (s *Sysfs) SetRtpInput(value int8) error {
	return s.write(OpRtpInput, strconv.Itoa(int(value)))
}

// HasRtpInput reports whether the driver exposes real-time playback.
func (s *Sysfs) HasRtpInput() bool {
	_, err := os.Stat(filepath.Join(s.dir, OpRtpInput))
	return err == nil
}

func (s *Sysfs) GetTemperature() (int32, error) {
	if s.tempPath == "" {
		return 0, ErrNoTemperature
	}
	data, err := os.ReadFile(s.tempPath)
	if err != nil {
		return 0, fmt.Errorf("hwapi: read temperature: %w", err)
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("hwapi: parse temperature %q: %w", strings.TrimSpace(string(data)), err)
	}
	return int32(v), nil
}

func (s *Sysfs) Close() error { return nil }
