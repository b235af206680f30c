// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"log"
	"net/http"

	"github.com/relabs-tech/lra_haptics/internal/app"
	"github.com/relabs-tech/lra_haptics/internal/config"
	"github.com/relabs-tech/lra_haptics/internal/hwapi"
)

func main() {
	log.Println("starting DRV2624 register debug tool (standalone)")

	if err := config.InitGlobal("haptics_config.txt"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	ranges, err := config.ParseRegisterRanges(cfg.RegisterDebugAllowedRanges)
	if err != nil {
		log.Fatalf("REGISTER_DEBUG_ALLOWED_RANGES: %v", err)
	}
	if len(ranges) == 0 {
		log.Println("Warning: no writable ranges configured, the tool is read-only")
	}

	log.Printf("Opening DRV2624 on %s at 0x%02X...", cfg.DRVI2CBus, cfg.DRVI2CAddr)
	drv, err := hwapi.OpenDRV2624(cfg.DRVI2CBus, cfg.DRVI2CAddr, nil)
	if err != nil {
		log.Fatalf("DRV2624 init failed: %v", err)
	}
	defer drv.Close()
	log.Printf("DRV2624 chip ID 0x%X", drv.ChipID())

	dbg := app.NewRegisterDebugger(drv, ranges)
	http.HandleFunc("/ws", dbg.HandleWS)
	http.HandleFunc("/api/registers", dbg.HandleRegisters)

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "web/register_debug.html")
	})

	addr := ":8081"
	log.Printf("Register debug tool listening on %s", addr)
	log.Printf("Open http://localhost:8081 in your browser")
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
