package hwapi

import (
	"errors"
	"strings"
	"testing"
	"time"

	"periph.io/x/conn/v3/i2c/i2ctest"
)

type fixedTemp struct {
	v   int32
	err error
}

func (f fixedTemp) MilliCelsius() (int32, error) { return f.v, f.err }

func probeOp() i2ctest.IO {
	return i2ctest.IO{Addr: DefaultDRV2624Addr, W: []byte{RegID}, R: []byte{0x03}}
}

func newPlaybackDRV(t *testing.T, ops ...i2ctest.IO) (*DRV2624, *i2ctest.Playback) {
	t.Helper()
	bus := &i2ctest.Playback{
		Ops:       append([]i2ctest.IO{probeOp()}, ops...),
		DontPanic: true,
	}
	d, err := NewDRV2624(bus, DefaultDRV2624Addr, fixedTemp{v: 31000})
	if err != nil {
		t.Fatalf("NewDRV2624: %v", err)
	}
	return d, bus
}

func TestDRV2624Probe(t *testing.T) {
	d, bus := newPlaybackDRV(t)
	if d.ChipID() != 0x03 {
		t.Errorf("ChipID = 0x%02X", d.ChipID())
	}
	if err := bus.Close(); err != nil {
		t.Error(err)
	}
}

func TestDRV2624ProbeFailure(t *testing.T) {
	bus := &i2ctest.Playback{DontPanic: true}
	if _, err := NewDRV2624(bus, DefaultDRV2624Addr, nil); err == nil {
		t.Fatal("probe on an empty bus should fail")
	}
}

func TestDRV2624SetModeKeepsTriggerBits(t *testing.T) {
	d, bus := newPlaybackDRV(t,
		i2ctest.IO{Addr: DefaultDRV2624Addr, W: []byte{RegMode}, R: []byte{0x04}},
		i2ctest.IO{Addr: DefaultDRV2624Addr, W: []byte{RegMode, 0x05}},
	)
	if err := d.SetMode(ModeWaveform); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Error(err)
	}
	if err := d.SetMode("bogus"); err == nil {
		t.Error("unknown mode should fail")
	}
}

func TestDRV2624OpenLoopBit(t *testing.T) {
	d, bus := newPlaybackDRV(t,
		i2ctest.IO{Addr: DefaultDRV2624Addr, W: []byte{RegControl1}, R: []byte{0x88}},
		i2ctest.IO{Addr: DefaultDRV2624Addr, W: []byte{RegControl1, 0xC8}},
	)
	if err := d.SetCtrlLoop(LoopOpen); err != nil {
		t.Fatalf("SetCtrlLoop: %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Error(err)
	}
}

func TestDRV2624Period(t *testing.T) {
	d, bus := newPlaybackDRV(t,
		i2ctest.IO{Addr: DefaultDRV2624Addr, W: []byte{RegOlPeriodH, 0x01}},
		i2ctest.IO{Addr: DefaultDRV2624Addr, W: []byte{RegOlPeriodL, 0x06}},
	)
	if err := d.SetOlLraPeriod(262); err != nil {
		t.Fatalf("SetOlLraPeriod: %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Error(err)
	}
	if err := d.SetOlLraPeriod(0x400); err == nil {
		t.Error("period above 10 bits should fail")
	}
}

func TestDRV2624ClampRange(t *testing.T) {
	d, bus := newPlaybackDRV(t,
		i2ctest.IO{Addr: DefaultDRV2624Addr, W: []byte{RegOdClamp, 100}},
	)
	if err := d.SetOdClamp(100); err != nil {
		t.Fatalf("SetOdClamp: %v", err)
	}
	if err := d.SetOdClamp(256); err == nil {
		t.Error("clamp above 8 bits should fail")
	}
	if err := bus.Close(); err != nil {
		t.Error(err)
	}
}

func TestDRV2624Sequencer(t *testing.T) {
	d, bus := newPlaybackDRV(t,
		i2ctest.IO{Addr: DefaultDRV2624Addr, W: []byte{RegSequencer1, 3}},
		i2ctest.IO{Addr: DefaultDRV2624Addr, W: []byte{RegSequencer1 + 1, 0}},
	)
	if err := d.SetSequencer("3 0"); err != nil {
		t.Fatalf("SetSequencer: %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Error(err)
	}
	if err := d.SetSequencer(""); err == nil {
		t.Error("empty sequence should fail")
	}
	if err := d.SetSequencer("1 x"); err == nil {
		t.Error("non-numeric sequence should fail")
	}
}

func TestDRV2624Autocal(t *testing.T) {
	d, bus := newPlaybackDRV(t,
		i2ctest.IO{Addr: DefaultDRV2624Addr, W: []byte{RegCalComp, 0x0C}},
		i2ctest.IO{Addr: DefaultDRV2624Addr, W: []byte{RegCalBemf, 0x8A}},
		i2ctest.IO{Addr: DefaultDRV2624Addr, W: []byte{RegLoopControl}, R: []byte{0xF0}},
		i2ctest.IO{Addr: DefaultDRV2624Addr, W: []byte{RegLoopControl, 0xF2}},
	)
	if err := d.SetAutocal("0x0C 0x8A 0x02"); err != nil {
		t.Fatalf("SetAutocal: %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Error(err)
	}
	if err := d.SetAutocal("12"); err == nil {
		t.Error("short autocal should fail")
	}
}

func TestDRV2624WriteFailureWrapsOp(t *testing.T) {
	// No queued op for the RTP write, so the playback bus rejects it.
	d, _ := newPlaybackDRV(t)
	err := d.SetRtpInput(64)
	if err == nil {
		t.Fatal("expected write failure")
	}
	if !strings.HasPrefix(err.Error(), "drv2624: rtp_input") {
		t.Errorf("error %q should name the operation", err)
	}
}

func TestDRV2624Temperature(t *testing.T) {
	d, _ := newPlaybackDRV(t)
	v, err := d.GetTemperature()
	if err != nil || v != 31000 {
		t.Errorf("GetTemperature = %d, %v", v, err)
	}

	d.temp = nil
	if _, err := d.GetTemperature(); !errors.Is(err, ErrNoTemperature) {
		t.Errorf("err = %v, want ErrNoTemperature", err)
	}
}

func TestDRV2624ActivateWithoutDuration(t *testing.T) {
	d, bus := newPlaybackDRV(t,
		i2ctest.IO{Addr: DefaultDRV2624Addr, W: []byte{RegGo, 1}},
		i2ctest.IO{Addr: DefaultDRV2624Addr, W: []byte{RegGo, 0}},
	)
	if err := d.SetDuration(0); err != nil {
		t.Fatal(err)
	}
	if err := d.SetActivate(true); err != nil {
		t.Fatalf("SetActivate: %v", err)
	}
	if d.stop != nil {
		t.Error("no stop timer expected for a zero duration")
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Error(err)
	}
}

func TestDRV2624StopsAfterDuration(t *testing.T) {
	d, bus := newPlaybackDRV(t,
		i2ctest.IO{Addr: DefaultDRV2624Addr, W: []byte{RegGo, 1}},
		i2ctest.IO{Addr: DefaultDRV2624Addr, W: []byte{RegGo, 0}},
	)
	if err := d.SetDuration(1); err != nil {
		t.Fatal(err)
	}
	if err := d.SetActivate(true); err != nil {
		t.Fatalf("SetActivate: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for {
		d.mu.Lock()
		done := d.stop == nil
		d.mu.Unlock()
		if done {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("GO was not cleared after the duration")
		}
		time.Sleep(time.Millisecond)
	}
	if err := bus.Close(); err != nil {
		t.Error(err)
	}
}

func TestDRV2624StaleTimerKeepsNewPlayback(t *testing.T) {
	// Close is the only GO=0 write expected.
	d, bus := newPlaybackDRV(t,
		i2ctest.IO{Addr: DefaultDRV2624Addr, W: []byte{RegGo, 1}},
		i2ctest.IO{Addr: DefaultDRV2624Addr, W: []byte{RegGo, 1}},
		i2ctest.IO{Addr: DefaultDRV2624Addr, W: []byte{RegGo, 0}},
	)
	if err := d.SetDuration(3_600_000); err != nil {
		t.Fatal(err)
	}
	if err := d.SetActivate(true); err != nil {
		t.Fatalf("first SetActivate: %v", err)
	}
	d.mu.Lock()
	first := d.stopGen
	d.mu.Unlock()

	if err := d.SetActivate(true); err != nil {
		t.Fatalf("second SetActivate: %v", err)
	}
	// The first timer fired while the second playback was being started.
	d.expire(first)

	d.mu.Lock()
	armed := d.stop != nil
	d.mu.Unlock()
	if !armed {
		t.Error("stale expiry dropped the new stop timer")
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Error(err)
	}
}
