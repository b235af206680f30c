// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// ./cmd/calibration/main.go
//
// Bench tool for the LRA calibration file.
//
// Commands:
//  1. tables:   load the calibration file and print the derived clamp tables (default)
//  2. template: write a calibration file with every key present
//  3. sweep:    drive the actuator open loop at rising voltages, measure the
//     peak acceleration with the IMU and fit the response coefficients
//
// Run:
//
//	go run ./cmd/calibration [-config haptics_config.txt] [tables|template|sweep]
//
// Notes / assumptions:
//   - The sweep uses HW_BACKEND and MOTION_SOURCE from the config file.
//   - The device must rest on a soft, level surface during the sweep. Holding
//     it damps the actuator and the fit will under-read.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/relabs-tech/lra_haptics/internal/app"
	"github.com/relabs-tech/lra_haptics/internal/calibration"
	"github.com/relabs-tech/lra_haptics/internal/clamp"
	"github.com/relabs-tech/lra_haptics/internal/config"
	"github.com/relabs-tech/lra_haptics/internal/motion"
	"github.com/relabs-tech/lra_haptics/internal/solver"
)

const (
	sweepBurst   = 400 * time.Millisecond
	sweepSamples = 30
	sweepSettle  = 300 * time.Millisecond

	// Below this R² the cubic is not worth storing.
	fitGood = 0.95
)

func main() {
	configPath := flag.String("config", "haptics_config.txt", "Path to configuration file")
	out := flag.String("out", "", "Output file (template, sweep); defaults to a timestamped name")
	target := flag.String("target", "effect", "Coefficients the sweep fills: effect or steady")
	volts := flag.String("volts", "", "Comma separated sweep voltages (default 0.4 to 3.2 in 0.4 V steps)")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to load config from %s: %v\n", *configPath, err)
		os.Exit(1)
	}
	cfg := config.Get()

	cmd := "tables"
	if flag.NArg() > 0 {
		cmd = flag.Arg(0)
	}

	var err error
	switch cmd {
	case "tables":
		err = printTables(cfg)
	case "template":
		err = writeTemplate(*out)
	case "sweep":
		err = runSweep(cfg, *out, *target, *volts)
	default:
		err = fmt.Errorf("unknown command %q (want tables, template or sweep)", cmd)
	}
	if err != nil {
		fatal(err)
	}
}

func printTables(cfg *config.Config) error {
	f, err := calibration.Load(cfg.CalibrationFile)
	if err != nil {
		return err
	}
	t := clamp.Build(f, clamp.WithColdFloor(cfg.SteadyVoltageFloor))

	fmt.Printf("=== Clamp tables from %s ===\n\n", f.Path())
	if !f.DynamicConfig() {
		fmt.Println("dynamic_config is off: the vibrator will not use these tables.")
	}
	if t.Early {
		fmt.Println("Early hardware build: reduced target G.")
	}

	fmt.Printf("Effect  period=%d shape=%s ceiling=%d\n", t.Effect.Period, t.Effect.Shape, t.Effect.Ceiling)
	for i, c := range t.Effect.Clamps {
		fmt.Printf("  row %d  %.3f g  clamp=%3d\n", i, t.Effect.TargetG[i], c)
	}
	fmt.Printf("Steady  period=%d shape=%s ceiling=%d\n", t.Steady.Period, t.Steady.Shape, t.Steady.Ceiling)
	for i, c := range t.Steady.Clamps {
		fmt.Printf("  row %d  %.3f g  clamp=%3d\n", i, t.Steady.TargetG[i], c)
	}
	fmt.Printf("Cold    clamp=%d period=%d\n", t.Steady.ColdClamp, t.Steady.ColdPeriod)

	if t.Degraded > 0 {
		fmt.Printf("\nWARNING: %d rows fell back to the voltage ceiling.\n", t.Degraded)
	}
	return nil
}

func writeTemplate(out string) error {
	ptr32 := func(v uint32) *uint32 { return &v }
	autocal := "0 0 0"
	v := calibration.Values{
		Autocal:            &autocal,
		LraPeriod:          ptr32(calibration.DefaultLraPeriod),
		CloseLoopThreshold: ptr32(calibration.DefaultCloseLoopThreshold),
		DynamicConfig:      true,
		LongFrequencyShift: ptr32(calibration.DefaultLongFrequencyShift),
		ShortVoltageMax:    ptr32(calibration.DefaultShortVoltageMax),
		LongVoltageMax:     ptr32(calibration.DefaultLongVoltageMax),
		EffectCoeffs:       []float64{0, 0, 0, 0},
		SteadyCoeffs:       []float64{0, 0, 0, 0},
		EffectTargetG:      clamp.DefaultEffectTargetG[:],
		SteadyTargetG:      clamp.DefaultSteadyTargetG[:],
	}
	b, err := calibration.Marshal(v)
	if err != nil {
		return err
	}
	if out == "" {
		out = "haptics_cal.template.yaml"
	}
	if err := os.WriteFile(out, b, 0o644); err != nil {
		return err
	}
	fmt.Printf("Wrote: %s\n", out)
	return nil
}

type sweepReport struct {
	CalibrationAt string             `json:"calibration_at"`
	Target        string             `json:"target"`
	Period        uint32             `json:"period"`
	Result        *app.SweepResult   `json:"result"`
	Suggested     calibration.Values `json:"suggested"`
}

func runSweep(cfg *config.Config, out, target, voltList string) error {
	if target != "effect" && target != "steady" {
		return fmt.Errorf("target must be effect or steady, got %q", target)
	}
	levels, err := parseVolts(voltList)
	if err != nil {
		return err
	}

	period := calibration.DefaultLraPeriod
	if f, err := calibration.Load(cfg.CalibrationFile); err == nil {
		if p, ok := f.LraPeriod(); ok {
			period = p
		}
	} else {
		fmt.Printf("No usable calibration file (%v), sweeping at period %d.\n", err, period)
	}

	hw, err := app.OpenBackend(cfg)
	if err != nil {
		return err
	}
	src, err := app.OpenSampler(cfg)
	if err != nil {
		return err
	}

	in := bufio.NewReader(os.Stdin)
	fmt.Println("=== Guided response sweep ===")
	fmt.Printf("%d levels from %.2f V to %.2f V at period %d (%d Hz), %s each.\n",
		len(levels), levels[0], levels[len(levels)-1], period, solver.ResonantFrequency(period), sweepBurst)
	fmt.Println("Place the device on a soft, level surface and do not touch it.")
	waitEnter(in, "Press ENTER to start...")

	res, err := app.Sweep(hw, pacedSampler{src}, app.SweepConfig{
		Period:  period,
		Volts:   levels,
		BurstMs: uint32(sweepBurst / time.Millisecond),
		Samples: sweepSamples,
	})
	if err != nil {
		return err
	}

	fmt.Println()
	for _, p := range res.Points {
		fmt.Printf("  %.2f V  clamp=%3d  %.3f g\n", p.Volts, p.Clamp, p.PeakG)
	}
	fmt.Printf("\nCubic:  %v  (R²=%.4f)\n", [4]float64(res.Cubic), res.R2)
	fmt.Printf("Linear: %v\n", [4]float64(res.Linear))

	coeffs := res.Cubic
	if res.R2 < fitGood {
		fmt.Printf("Cubic fit is poor (R² < %.2f), suggesting the linear model.\n", fitGood)
		coeffs = res.Linear
	}

	rep := sweepReport{
		CalibrationAt: time.Now().Format(time.RFC3339),
		Target:        target,
		Period:        period,
		Result:        res,
	}
	if target == "effect" {
		rep.Suggested.EffectCoeffs = coeffs[:]
	} else {
		rep.Suggested.SteadyCoeffs = coeffs[:]
	}
	return writeReport(rep, out)
}

// pacedSampler lets the actuator settle before each window.
type pacedSampler struct {
	motion.Sampler
}

func (p pacedSampler) Collect(n int) ([]motion.Sample, error) {
	time.Sleep(sweepSettle)
	return p.Sampler.Collect(n)
}

func parseVolts(s string) ([]float64, error) {
	if s == "" {
		return app.DefaultSweepVolts, nil
	}
	var out []float64
	for _, f := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("bad voltage %q: %w", f, err)
		}
		if v <= 0 || v > solver.MaxVoltage {
			return nil, fmt.Errorf("voltage %.2f outside (0, %.1f]", v, solver.MaxVoltage)
		}
		out = append(out, v)
	}
	return out, nil
}

func writeReport(rep sweepReport, name string) error {
	if name == "" {
		ts := time.Now().Format("2006-01-02T15-04-05Z07-00")
		name = fmt.Sprintf("%s_%s_sweep.json", rep.Target, ts)
	}
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(name, b, 0o644); err != nil {
		return err
	}
	fmt.Printf("\nWrote: %s\n", name)
	return nil
}

func waitEnter(in *bufio.Reader, prompt string) {
	fmt.Print(prompt)
	_, _ = in.ReadString('\n')
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
	os.Exit(1)
}
