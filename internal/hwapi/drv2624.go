// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package hwapi

import (
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// DefaultDRV2624Addr is the 7-bit I2C address of the DRV2624.
const DefaultDRV2624Addr uint16 = 0x5A

// DRV2624 register addresses.
const (
	RegID          byte = 0x00
	RegStatus      byte = 0x01
	RegMode        byte = 0x07
	RegControl1    byte = 0x08
	RegGo          byte = 0x0C
	RegControl2    byte = 0x0D
	RegRtpInput    byte = 0x0E
	RegSequencer1  byte = 0x0F
	RegMainLoop    byte = 0x19
	RegRatedVolt   byte = 0x1F
	RegOdClamp     byte = 0x20
	RegCalComp     byte = 0x21
	RegCalBemf     byte = 0x22
	RegLoopControl byte = 0x23
	RegLraShape    byte = 0x2C
	RegOlPeriodH   byte = 0x2E
	RegOlPeriodL   byte = 0x2F
)

const (
	modeMask       byte = 0x03
	modeRTP        byte = 0x00
	modeWaveform   byte = 0x01
	trigMask       byte = 0x0C
	trigLevel      byte = 0x04
	loopMask       byte = 0x40
	shapeMask      byte = 0x01
	bemfGainMask   byte = 0x03
	sequencerSlots      = 8
	maxOlPeriod         = 0x3FF
)

// TemperatureSource supplies the amplifier temperature in milli-degrees.
type TemperatureSource interface {
	MilliCelsius() (int32, error)
}

// DRV2624 talks to the amplifier's registers directly over I2C. The chip
// has no playback timer, so durations are enforced by clearing GO.
type DRV2624 struct {
	mu       sync.Mutex
	dev      *i2c.Dev
	bus      io.Closer
	temp     TemperatureSource
	duration time.Duration
	stop     *time.Timer
	stopGen  uint64 // bumped on every GO write; a timer only stops its own playback
	chipID   byte
}

// OpenDRV2624 initialises the periph host and opens the named I2C bus.
func OpenDRV2624(busName string, addr uint16, temp TemperatureSource) (*DRV2624, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("drv2624: periph host init: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("drv2624: i2c open %q: %w", busName, err)
	}
	d, err := NewDRV2624(bus, addr, temp)
	if err != nil {
		bus.Close()
		return nil, err
	}
	d.bus = bus
	return d, nil
}

// NewDRV2624 probes the chip ID on an already opened bus.
func NewDRV2624(bus i2c.Bus, addr uint16, temp TemperatureSource) (*DRV2624, error) {
	d := &DRV2624{
		dev:  &i2c.Dev{Bus: bus, Addr: addr},
		temp: temp,
	}
	id, err := d.readReg(RegID)
	if err != nil {
		return nil, fmt.Errorf("drv2624: probe 0x%02X: %w", addr, err)
	}
	d.chipID = id
	log.Printf("drv2624: found chip id 0x%02X at 0x%02X", id, addr)
	return d, nil
}

// ChipID returns the value of the ID register read at probe time.
func (d *DRV2624) ChipID() byte { return d.chipID }

func (d *DRV2624) readReg(reg byte) (byte, error) {
	var r [1]byte
	if err := d.dev.Tx([]byte{reg}, r[:]); err != nil {
		return 0, err
	}
	return r[0], nil
}

func (d *DRV2624) writeReg(reg, value byte) error {
	return d.dev.Tx([]byte{reg, value}, nil)
}

func (d *DRV2624) updateBits(reg, mask, value byte) error {
	cur, err := d.readReg(reg)
	if err != nil {
		return err
	}
	return d.writeReg(reg, (cur&^mask)|(value&mask))
}

// ReadRegister reads one register, for register debugging.
func (d *DRV2624) ReadRegister(reg byte) (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, err := d.readReg(reg)
	if err != nil {
		return 0, fmt.Errorf("drv2624: read 0x%02X: %w", reg, err)
	}
	return v, nil
}

// WriteRegister writes one register, for register debugging.
func (d *DRV2624) WriteRegister(reg, value byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.writeReg(reg, value); err != nil {
		return fmt.Errorf("drv2624: write 0x%02X: %w", reg, err)
	}
	return nil
}

// ReadRegisters reads every listed register; the first failure aborts.
func (d *DRV2624) ReadRegisters(regs []byte) (map[byte]byte, error) {
	out := make(map[byte]byte, len(regs))
	for _, r := range regs {
		v, err := d.ReadRegister(r)
		if err != nil {
			return out, err
		}
		out[r] = v
	}
	return out, nil
}

func (d *DRV2624) locked(op string, fn func() error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := fn(); err != nil {
		return fmt.Errorf("drv2624: %s: %w", op, err)
	}
	return nil
}

// SetState parks the playback engine; the DRV2624 has no separate
// standby control reachable from the host.
func (d *DRV2624) SetState(on bool) error {
	return d.locked(OpState, func() error {
		return d.writeReg(RegGo, 0)
	})
}

// SetAutocal restores "comp bemf gain" results of a previous auto-calibration.
func (d *DRV2624) SetAutocal(autocal string) error {
	fields := strings.Fields(autocal)
	if len(fields) != 3 {
		return fmt.Errorf("drv2624: autocal needs 3 fields, got %q", autocal)
	}
	var vals [3]byte
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 0, 8)
		if err != nil {
			return fmt.Errorf("drv2624: autocal field %q: %w", f, err)
		}
		vals[i] = byte(v)
	}
	return d.locked(OpAutocal, func() error {
		if err := d.writeReg(RegCalComp, vals[0]); err != nil {
			return err
		}
		if err := d.writeReg(RegCalBemf, vals[1]); err != nil {
			return err
		}
		return d.updateBits(RegLoopControl, bemfGainMask, vals[2])
	})
}

// SetLpTriggerEffect lets the external trigger pin start sequence #1.
func (d *DRV2624) SetLpTriggerEffect(support uint32) error {
	v := byte(0)
	if support != 0 {
		v = trigLevel
	}
	return d.locked(OpLpTrigger, func() error {
		return d.updateBits(RegMode, trigMask, v)
	})
}

func (d *DRV2624) SetDuration(ms uint32) error {
	d.mu.Lock()
	d.duration = time.Duration(ms) * time.Millisecond
	d.mu.Unlock()
	return nil
}

func (d *DRV2624) SetMode(mode string) error {
	var v byte
	switch mode {
	case ModeRTP:
		v = modeRTP
	case ModeWaveform:
		v = modeWaveform
	default:
		return fmt.Errorf("drv2624: unknown mode %q", mode)
	}
	return d.locked(OpMode, func() error {
		return d.updateBits(RegMode, modeMask, v)
	})
}

func (d *DRV2624) SetCtrlLoop(loop LoopControl) error {
	v := byte(0)
	if loop == LoopOpen {
		v = loopMask
	}
	return d.locked(OpCtrlLoop, func() error {
		return d.updateBits(RegControl1, loopMask, v)
	})
}

func (d *DRV2624) SetLraWaveShape(shape WaveShape) error {
	return d.locked(OpLraWaveShape, func() error {
		return d.updateBits(RegLraShape, shapeMask, byte(shape))
	})
}

func (d *DRV2624) SetOdClamp(clamp uint32) error {
	if clamp > 0xFF {
		return fmt.Errorf("drv2624: od clamp %d exceeds 8 bits", clamp)
	}
	return d.locked(OpOdClamp, func() error {
		return d.writeReg(RegOdClamp, byte(clamp))
	})
}

func (d *DRV2624) SetOlLraPeriod(period uint32) error {
	if period > maxOlPeriod {
		return fmt.Errorf("drv2624: lra period %d exceeds 10 bits", period)
	}
	return d.locked(OpOlLraPeriod, func() error {
		if err := d.writeReg(RegOlPeriodH, byte(period>>8)&0x03); err != nil {
			return err
		}
		return d.writeReg(RegOlPeriodL, byte(period))
	})
}

// SetActivate sets GO. When activating with a non-zero duration, GO is
// cleared again once the duration elapses.
func (d *DRV2624) SetActivate(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stop != nil {
		d.stop.Stop()
		d.stop = nil
	}
	d.stopGen++
	gen := d.stopGen
	if err := d.writeReg(RegGo, byte(boolValue(on))); err != nil {
		return fmt.Errorf("drv2624: %s: %w", OpActivate, err)
	}
	if on && d.duration > 0 {
		d.stop = time.AfterFunc(d.duration, func() { d.expire(gen) })
	}
	return nil
}

// expire clears GO for playback gen. A timer that fired while a newer
// playback was being started finds a different generation and does nothing.
func (d *DRV2624) expire(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.stopGen {
		return
	}
	d.stop = nil
	if err := d.writeReg(RegGo, 0); err != nil {
		log.Printf("drv2624: stop after duration: %v", err)
	}
}

// SetSequencer loads space separated effect ids into the sequencer slots.
// A trailing 0 terminates the sequence.
func (d *DRV2624) SetSequencer(seq string) error {
	fields := strings.Fields(seq)
	if len(fields) == 0 || len(fields) > sequencerSlots {
		return fmt.Errorf("drv2624: sequence %q needs 1-%d entries", seq, sequencerSlots)
	}
	ids := make([]byte, 0, sequencerSlots)
	for _, f := range fields {
		v, err := strconv.ParseUint(f, 10, 7)
		if err != nil {
			return fmt.Errorf("drv2624: sequence entry %q: %w", f, err)
		}
		ids = append(ids, byte(v))
	}
	if ids[len(ids)-1] != 0 && len(ids) < sequencerSlots {
		ids = append(ids, 0)
	}
	return d.locked(OpSequencer, func() error {
		for i, id := range ids {
			if err := d.writeReg(RegSequencer1+byte(i), id); err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *DRV2624) SetRtpInput(value int8) error {
	return d.locked(OpRtpInput, func() error {
		return d.writeReg(RegRtpInput, byte(value))
	})
}

func (d *DRV2624) HasRtpInput() bool { return true }

func (d *DRV2624) GetTemperature() (int32, error) {
	if d.temp == nil {
		return 0, ErrNoTemperature
	}
	return d.temp.MilliCelsius()
}

// Close stops playback and releases the bus and temperature source.
func (d *DRV2624) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stop != nil {
		d.stop.Stop()
		d.stop = nil
	}
	d.stopGen++
	err := d.writeReg(RegGo, 0)
	if d.bus != nil {
		err = multierr.Append(err, d.bus.Close())
	}
	if c, ok := d.temp.(io.Closer); ok {
		err = multierr.Append(err, c.Close())
	}
	return err
}
