// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"
	"time"

	"github.com/relabs-tech/lra_haptics/internal/app"
	"github.com/relabs-tech/lra_haptics/internal/config"
)

func main() {
	log.Println("starting lra-haptics (mock console)")

	calPath := flag.String("cal", "", "Calibration file (built-in bench values when empty)")
	flag.Parse()

	interval := time.Second
	if err := config.InitGlobal("haptics_config.txt"); err != nil {
		log.Printf("no config, stepping every %s: %v", interval, err)
	} else {
		interval = time.Duration(config.Get().ConsoleLogInterval) * time.Millisecond
	}

	if err := app.RunMockConsole(*calPath, interval); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
