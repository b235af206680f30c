package app

import (
	"fmt"
	"log"
	"math"

	"github.com/relabs-tech/lra_haptics/internal/hwapi"
	"github.com/relabs-tech/lra_haptics/internal/motion"
	"github.com/relabs-tech/lra_haptics/internal/sensors"
	"github.com/relabs-tech/lra_haptics/internal/solver"
)

// SweepPoint is the measured response at one drive voltage.
type SweepPoint struct {
	Volts   float64 `json:"volts"`
	Clamp   uint32  `json:"clamp"`
	PeakG   float64 `json:"peak_g"`
	Samples int     `json:"samples"`
}

// SweepResult is a fitted response curve.
type SweepResult struct {
	Points []SweepPoint        `json:"points"`
	Cubic  solver.Coefficients `json:"cubic"`
	Linear solver.Coefficients `json:"linear"`
	R2     float64             `json:"r2"` // of the cubic fit
}

// SweepConfig controls a response sweep.
type SweepConfig struct {
	Period  uint32    // OL_LRA_PERIOD to drive at
	Volts   []float64 // drive levels, in volts
	BurstMs uint32    // vibration length per level
	Samples int       // accelerometer samples per level
}

// DefaultSweepVolts covers the drive range in 0.4 V steps.
var DefaultSweepVolts = []float64{0.4, 0.8, 1.2, 1.6, 2.0, 2.4, 2.8, 3.2}

// Sweep drives the actuator open loop at each level, measures the peak
// in-plane acceleration and fits the response model.
func Sweep(hw hwapi.HwAPI, src motion.Sampler, sc SweepConfig) (*SweepResult, error) {
	res := &SweepResult{}
	for _, v := range sc.Volts {
		c, err := solver.VoltageToClampRegister(v, sc.Period)
		if err != nil {
			return nil, fmt.Errorf("sweep %.2f V: %w", v, err)
		}
		p := SweepPoint{Volts: v, Clamp: uint32(c)}

		steps := []struct {
			op string
			do func() error
		}{
			{hwapi.OpCtrlLoop, func() error { return hw.SetCtrlLoop(hwapi.LoopOpen) }},
			{hwapi.OpMode, func() error { return hw.SetMode(hwapi.ModeRTP) }},
			{hwapi.OpLraWaveShape, func() error { return hw.SetLraWaveShape(hwapi.ShapeSine) }},
			{hwapi.OpOdClamp, func() error { return hw.SetOdClamp(p.Clamp) }},
			{hwapi.OpOlLraPeriod, func() error { return hw.SetOlLraPeriod(sc.Period) }},
			{hwapi.OpDuration, func() error { return hw.SetDuration(sc.BurstMs) }},
			{hwapi.OpActivate, func() error { return hw.SetActivate(true) }},
		}
		for _, s := range steps {
			if err := s.do(); err != nil {
				return nil, fmt.Errorf("sweep %.2f V: %s: %w", v, s.op, err)
			}
		}

		samples, err := src.Collect(sc.Samples)
		if stopErr := hw.SetActivate(false); stopErr != nil {
			log.Printf("sweep: stop after %.2f V: %v", v, stopErr)
		}
		if err != nil {
			return nil, fmt.Errorf("sweep %.2f V: %w", v, err)
		}
		p.Samples = len(samples)
		p.PeakG = peakG(samples)
		log.Printf("sweep: %.2f V (clamp %d) -> %.3f g", v, p.Clamp, p.PeakG)
		res.Points = append(res.Points, p)
	}

	volts := make([]float64, len(res.Points))
	g := make([]float64, len(res.Points))
	for i, p := range res.Points {
		volts[i], g[i] = p.Volts, p.PeakG
	}
	var err error
	if res.Linear, err = solver.FitLinear(volts, g); err != nil {
		return nil, err
	}
	if res.Cubic, err = solver.FitCubic(volts, g); err != nil {
		return nil, err
	}
	res.R2 = rSquared(res.Cubic, volts, g)
	return res, nil
}

// peakG is the largest in-plane deviation from the window mean, in g.
func peakG(samples []motion.Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	var mx, my float64
	for _, s := range samples {
		mx += s.X
		my += s.Y
	}
	mx /= float64(len(samples))
	my /= float64(len(samples))

	var peak float64
	for _, s := range samples {
		peak = math.Max(peak, math.Hypot(s.X-mx, s.Y-my))
	}
	return peak / sensors.StandardGravity
}

func rSquared(c solver.Coefficients, volts, g []float64) float64 {
	var mean float64
	for _, v := range g {
		mean += v
	}
	mean /= float64(len(g))

	var ssRes, ssTot float64
	for i, v := range volts {
		d := g[i] - solver.EvaluateCubic(c, v/solver.MaxVoltage)
		ssRes += d * d
		ssTot += (g[i] - mean) * (g[i] - mean)
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}
