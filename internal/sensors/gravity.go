// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"time"

	"github.com/relabs-tech/lra_haptics/internal/motion"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"
)

// StandardGravity in m/s².
const StandardGravity = 9.80665

// accelReader is the part of the MPU9250 driver the gravity sampler uses.
type accelReader interface {
	GetAccelerationX() (int16, error)
	GetAccelerationY() (int16, error)
}

// Gravity samples the in-plane gravity components from an MPU9250 and
// implements motion.Sampler.
type Gravity struct {
	imu        accelReader
	accelRange byte
	interval   time.Duration
	sleep      func(time.Duration)
}

// NewGravity initializes the MPU9250 over SPI with the given accelerometer
// range (0=±2g .. 3=±16g). interval is the pause between reads in a window.
func NewGravity(spiDev, csPin string, accelRange byte, interval time.Duration) (*Gravity, error) {
	if accelRange > 3 {
		return nil, fmt.Errorf("gravity: accel range %d out of 0-3", accelRange)
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("gravity: periph host init: %w", err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("gravity: CS pin %q not found", csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("gravity: SPI transport (%s): %w", spiDev, err)
	}

	imu, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("gravity: device creation: %w", err)
	}
	if err := imu.Init(); err != nil {
		return nil, fmt.Errorf("gravity: initialization: %w", err)
	}
	if err := imu.SetAccelRange(accelRange); err != nil {
		return nil, fmt.Errorf("gravity: set accel range: %w", err)
	}
	log.Printf("gravity: accelerometer range set to %d (±%dg)", accelRange, []int{2, 4, 8, 16}[accelRange])

	if err := imu.Calibrate(); err != nil {
		log.Printf("gravity: warning: calibration failed: %v", err)
	}

	return newGravity(imu, accelRange, interval), nil
}

func newGravity(r accelReader, accelRange byte, interval time.Duration) *Gravity {
	return &Gravity{imu: r, accelRange: accelRange, interval: interval, sleep: time.Sleep}
}

// countsToMS2 converts a raw accelerometer reading to m/s².
func countsToMS2(raw int16, accelRange byte) float64 {
	lsbPerG := float64(int(16384) >> accelRange)
	return float64(raw) / lsbPerG * StandardGravity
}

// Read returns one gravity sample.
func (g *Gravity) Read() (motion.Sample, error) {
	ax, err := g.imu.GetAccelerationX()
	if err != nil {
		return motion.Sample{}, fmt.Errorf("gravity: accel X: %w", err)
	}
	ay, err := g.imu.GetAccelerationY()
	if err != nil {
		return motion.Sample{}, fmt.Errorf("gravity: accel Y: %w", err)
	}
	return motion.Sample{X: countsToMS2(ax, g.accelRange), Y: countsToMS2(ay, g.accelRange)}, nil
}

// Collect reads n samples, one every interval. The first failed read aborts
// the window.
func (g *Gravity) Collect(n int) ([]motion.Sample, error) {
	out := make([]motion.Sample, 0, n)
	for i := 0; i < n; i++ {
		if i > 0 && g.interval > 0 {
			g.sleep(g.interval)
		}
		s, err := g.Read()
		if err != nil {
			return nil, fmt.Errorf("sample %d/%d: %w", i+1, n, err)
		}
		out = append(out, s)
	}
	return out, nil
}
