// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"time"

	"github.com/relabs-tech/lra_haptics/internal/calibration"
	"github.com/relabs-tech/lra_haptics/internal/command"
	"github.com/relabs-tech/lra_haptics/internal/drive"
	"github.com/relabs-tech/lra_haptics/internal/hwapi"
	"github.com/relabs-tech/lra_haptics/internal/motion"
)

// benchStep is one scripted request of the mock console.
type benchStep struct {
	milliC int32
	tilt   motion.Sample
	cmd    command.Command
}

var benchScript = []benchStep{
	{25000, motion.Sample{}, command.Command{Action: command.ActionOn, DurationMs: 500}},
	{25000, motion.Sample{}, command.Command{Action: command.ActionPerform, Effect: "click", Strength: "medium"}},
	{2000, motion.Sample{}, command.Command{Action: command.ActionOn, DurationMs: 500}},
	{7000, motion.Sample{}, command.Command{Action: command.ActionOn, DurationMs: 500}},
	{45000, motion.Sample{}, command.Command{Action: command.ActionOn, DurationMs: 500}},
	{45000, motion.Sample{X: 2.5, Y: 0.1}, command.Command{Action: command.ActionOn, DurationMs: 500}},
	{45000, motion.Sample{}, command.Command{Action: command.ActionOn, DurationMs: 50}},
	{25000, motion.Sample{}, command.Command{Action: command.ActionAmplitude, Amplitude: 0.5}},
	{25000, motion.Sample{}, command.Command{Action: command.ActionOff}},
}

// RunMockConsole replays a fixed request script against the mock amplifier
// and prints every result and the register writes it caused. calPath may
// be empty to use built-in calibration.
func RunMockConsole(calPath string, interval time.Duration) error {
	store, err := benchStore(calPath)
	if err != nil {
		return err
	}

	hw := hwapi.NewMock()
	sampler := motion.NewMockSampler(motion.Sample{}, 0.05)
	// A tiny period forces a fresh window on every request.
	classifier := motion.NewClassifier(sampler, motion.Params{Period: time.Nanosecond})
	vib := drive.New(hw, store, classifier, drive.DefaultBounds)
	defer vib.Close()

	fmt.Println(formatStatus(vib.Status()))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i, step := range benchScript {
		if i > 0 {
			<-ticker.C
		}
		hw.Reset()
		hw.SetTemperature(step.milliC)
		sampler.SetCenter(step.tilt)
		step.cmd.ID = fmt.Sprintf("bench-%d", i+1)

		res := command.Handle(vib, step.cmd)
		fmt.Println(formatResult(res))
		fmt.Printf("       writes: %v\n", hw.Writes())
	}
	return nil
}

func benchStore(path string) (calibration.Store, error) {
	if path != "" {
		return calibration.Load(path)
	}
	period := calibration.DefaultLraPeriod
	return calibration.FromValues(calibration.Values{
		DynamicConfig: true,
		LraPeriod:     &period,
		EffectCoeffs:  []float64{0.5, 0, 0, 0},
		SteadyCoeffs:  []float64{-0.08, 0.22, 0.55, 0.05},
	})
}
