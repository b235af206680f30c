// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package hwapi

import (
	"fmt"
	"sync"
)

// Write is one recorded register operation.
type Write struct {
	Op    string
	Value string
}

func (w Write) String() string { return w.Op + "=" + w.Value }

// Mock records register writes instead of touching hardware. It is used
// for bench runs without an amplifier and by tests.
type Mock struct {
	mu          sync.Mutex
	writes      []Write
	fail        map[string]error
	temperature int32
	tempErr     error
	rtpInput    bool
}

// NewMock returns a mock at 25°C with RTP input support.
func NewMock() *Mock {
	return &Mock{
		fail:        map[string]error{},
		temperature: 25000,
		rtpInput:    true,
	}
}

// SetTemperature sets the value returned by GetTemperature (m°C).
func (m *Mock) SetTemperature(milliC int32) {
	m.mu.Lock()
	m.temperature = milliC
	m.tempErr = nil
	m.mu.Unlock()
}

// SetTemperatureError makes GetTemperature fail.
func (m *Mock) SetTemperatureError(err error) {
	m.mu.Lock()
	m.tempErr = err
	m.mu.Unlock()
}

// FailOn makes every write of op return err. A nil err clears it.
func (m *Mock) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, op)
		return
	}
	m.fail[op] = err
}

// SetRtpSupport toggles HasRtpInput.
func (m *Mock) SetRtpSupport(ok bool) {
	m.mu.Lock()
	m.rtpInput = ok
	m.mu.Unlock()
}

// Writes returns a copy of every successful write so far.
func (m *Mock) Writes() []Write {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Write(nil), m.writes...)
}

// Last returns the most recent value written for op.
func (m *Mock) Last(op string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.writes) - 1; i >= 0; i-- {
		if m.writes[i].Op == op {
			return m.writes[i].Value, true
		}
	}
	return "", false
}

// Reset forgets recorded writes.
func (m *Mock) Reset() {
	m.mu.Lock()
	m.writes = nil
	m.mu.Unlock()
}

func (m *Mock) record(op string, v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail[op]; err != nil {
		return fmt.Errorf("hwapi: mock %s: %w", op, err)
	}
	m.writes = append(m.writes, Write{Op: op, Value: fmt.Sprint(v)})
	return nil
}

func (m *Mock) SetState(on bool) error { return m.record(OpState, boolValue(on)) }
func (m *Mock) SetAutocal(autocal string) error { return m.record(OpAutocal, autocal) }
func (m *Mock) SetLpTriggerEffect(support uint32) error { return m.record(OpLpTrigger, support) }
func (m *Mock) SetDuration(ms uint32) error { return m.record(OpDuration, ms) }
func (m *Mock) SetMode(mode string) error { return m.record(OpMode, mode) }
func (m *Mock) SetCtrlLoop(loop LoopControl) error { return m.record(OpCtrlLoop, uint32(loop)) }
func (m *Mock) SetLraWaveShape(shape WaveShape) error { return m.record(OpLraWaveShape, uint32(shape)) }
func (m *Mock) SetOdClamp(clamp uint32) error { return m.record(OpOdClamp, clamp) }
func (m *Mock) SetOlLraPeriod(period uint32) error { return m.record(OpOlLraPeriod, period) }
func (m *Mock) SetActivate(on bool) error { return m.record(OpActivate, boolValue(on)) }
func (m *Mock) SetSequencer(seq string) error { return m.record(OpSequencer, seq) }
func (m *Mock) SetRtpInput(value int8) error { return m.record(OpRtpInput, value) }

func (m *Mock) HasRtpInput() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rtpInput
}

func (m *Mock) GetTemperature() (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tempErr != nil {
		return 0, m.tempErr
	}
	return m.temperature, nil
}

func (m *Mock) Close() error { return nil }
