package sensors

import (
	"errors"
	"math"
	"testing"
	"time"

	"periph.io/x/conn/v3/physic"
)

type fakeAccel struct {
	x, y  []int16
	i     int
	failY bool
}

func (f *fakeAccel) GetAccelerationX() (int16, error) {
	return f.x[f.i%len(f.x)], nil
}

func (f *fakeAccel) GetAccelerationY() (int16, error) {
	if f.failY {
		return 0, errors.New("spi timeout")
	}
	v := f.y[f.i%len(f.y)]
	f.i++
	return v, nil
}

func TestCountsToMS2(t *testing.T) {
	tests := []struct {
		raw  int16
		rng  byte
		want float64
	}{
		{16384, 0, StandardGravity},
		{-16384, 0, -StandardGravity},
		{8192, 1, StandardGravity},
		{2048, 3, StandardGravity},
		{0, 2, 0},
	}
	for _, tt := range tests {
		if got := countsToMS2(tt.raw, tt.rng); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("countsToMS2(%d, %d) = %v, want %v", tt.raw, tt.rng, got, tt.want)
		}
	}
}

func TestGravityCollect(t *testing.T) {
	acc := &fakeAccel{x: []int16{0, 1638}, y: []int16{-1638, 0}}
	g := newGravity(acc, 0, 5*time.Millisecond)
	var slept []time.Duration
	g.sleep = func(d time.Duration) { slept = append(slept, d) }

	samples, err := g.Collect(4)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(samples) != 4 {
		t.Fatalf("got %d samples", len(samples))
	}
	if len(slept) != 3 {
		t.Errorf("slept %d times, want 3", len(slept))
	}
	if math.Abs(samples[1].X-0.980665) > 1e-3 || math.Abs(samples[0].Y+0.980665) > 1e-3 {
		t.Errorf("samples = %+v", samples)
	}
}

func TestGravityCollectAbortsOnError(t *testing.T) {
	g := newGravity(&fakeAccel{x: []int16{0}, y: []int16{0}, failY: true}, 0, 0)
	if _, err := g.Collect(3); err == nil {
		t.Fatal("expected error")
	}
}

func TestToMilliCelsius(t *testing.T) {
	temp := physic.ZeroCelsius + 23500*physic.MilliKelvin
	if got := toMilliCelsius(temp); got != 23500 {
		t.Errorf("toMilliCelsius = %d", got)
	}
}

func TestDRV2624Addresses(t *testing.T) {
	addrs := DRV2624Addresses()
	regs := DRV2624RegisterMap()
	if len(addrs) != len(regs) {
		t.Fatalf("len = %d, want %d", len(addrs), len(regs))
	}
	seen := map[byte]bool{}
	for i, a := range addrs {
		if seen[a] {
			t.Errorf("duplicate address 0x%02X", a)
		}
		seen[a] = true
		if i > 0 && a <= addrs[i-1] {
			t.Errorf("addresses not ascending at %s", regs[i].Name)
		}
	}
	if addrs[0] != 0x00 || addrs[len(addrs)-1] != 0x2F {
		t.Errorf("first/last = 0x%02X/0x%02X", addrs[0], addrs[len(addrs)-1])
	}
}
