// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/lra_haptics/internal/config"
	"github.com/relabs-tech/lra_haptics/internal/sensors"
)

// RegisterDevice is raw register access to the amplifier.
// *hwapi.DRV2624 satisfies it.
type RegisterDevice interface {
	ReadRegister(reg byte) (byte, error)
	WriteRegister(reg, value byte) error
	ReadRegisters(regs []byte) (map[byte]byte, error)
}

// RegisterDebugger serves DRV2624 register reads and writes over a websocket.
type RegisterDebugger struct {
	dev      RegisterDevice
	writable []config.RegisterRange
}

// NewRegisterDebugger limits writes to the given ranges. No ranges means
// the device is read-only.
func NewRegisterDebugger(dev RegisterDevice, writable []config.RegisterRange) *RegisterDebugger {
	return &RegisterDebugger{dev: dev, writable: writable}
}

// Response types
type RegisterResponse struct {
	Type        string                 `json:"type"` // "register_data", "register_map", "export_config", "error"
	Device      string                 `json:"device,omitempty"`
	Address     string                 `json:"addr,omitempty"`
	Value       string                 `json:"value,omitempty"`
	Registers   map[string]string      `json:"registers,omitempty"` // for bulk read
	Timestamp   string                 `json:"timestamp,omitempty"`
	Message     string                 `json:"message,omitempty"`
	RegisterMap []sensors.RegisterInfo `json:"register_map,omitempty"`
	Config      string                 `json:"config,omitempty"`
	Filename    string                 `json:"filename,omitempty"`
}

// RegisterConfigFile is the exported register snapshot.
type RegisterConfigFile struct {
	Version   int               `json:"version"`
	Device    string            `json:"device"`
	Timestamp string            `json:"timestamp"`
	Registers map[string]string `json:"registers"` // hex address -> hex value
}

const debugDevice = "drv2624"

// HandleWS handles the WebSocket connection for register debugging
func (d *RegisterDebugger) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("register_debug: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	// Send register map on connection
	if err := conn.WriteJSON(d.registerMap()); err != nil {
		log.Printf("register_debug: error sending register map: %v", err)
		return
	}

	for {
		var msg map[string]interface{}
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("register_debug: websocket error: %v", err)
			}
			return
		}
		if err := conn.WriteJSON(d.dispatch(msg)); err != nil {
			log.Printf("register_debug: write error: %v", err)
			return
		}
	}
}

// HandleRegisters serves every mapped register as JSON.
func (d *RegisterDebugger) HandleRegisters(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	resp := d.readAll()
	if resp.Type == "error" {
		w.WriteHeader(http.StatusInternalServerError)
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("register_debug: json encode error: %v", err)
	}
}

func (d *RegisterDebugger) dispatch(msg map[string]interface{}) RegisterResponse {
	action, ok := msg["action"].(string)
	if !ok {
		return errorResponse("missing or invalid action field")
	}

	switch action {
	case "get_map":
		return d.registerMap()
	case "read":
		return d.read(msg)
	case "read_all":
		return d.readAll()
	case "write":
		return d.write(msg)
	case "export_config":
		return d.export()
	}
	return errorResponse(fmt.Sprintf("unknown action: %s", action))
}

func parseHexByte(s string) (byte, error) {
	var b byte
	if _, err := fmt.Sscanf(s, "0x%X", &b); err != nil {
		return 0, fmt.Errorf("invalid hex byte %q", s)
	}
	return b, nil
}

func (d *RegisterDebugger) read(msg map[string]interface{}) RegisterResponse {
	addr, _ := msg["addr"].(string)
	if addr == "" {
		return errorResponse("missing addr field")
	}
	reg, err := parseHexByte(addr)
	if err != nil {
		return errorResponse(err.Error())
	}
	value, err := d.dev.ReadRegister(reg)
	if err != nil {
		return errorResponse(fmt.Sprintf("read error: %v", err))
	}
	return RegisterResponse{
		Type:      "register_data",
		Device:    debugDevice,
		Address:   fmt.Sprintf("0x%02X", reg),
		Value:     fmt.Sprintf("0x%02X", value),
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func (d *RegisterDebugger) readAll() RegisterResponse {
	registers, err := d.dev.ReadRegisters(sensors.DRV2624Addresses())
	if err != nil {
		return errorResponse(fmt.Sprintf("read all error: %v", err))
	}
	return RegisterResponse{
		Type:      "register_data",
		Device:    debugDevice,
		Registers: hexMap(registers),
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func (d *RegisterDebugger) write(msg map[string]interface{}) RegisterResponse {
	addr, _ := msg["addr"].(string)
	valueStr, _ := msg["value"].(string)
	if addr == "" || valueStr == "" {
		return errorResponse("missing addr or value field")
	}
	reg, err := parseHexByte(addr)
	if err != nil {
		return errorResponse(err.Error())
	}
	value, err := parseHexByte(valueStr)
	if err != nil {
		return errorResponse(err.Error())
	}
	if !isRegisterWritable(reg, d.writable) {
		return errorResponse(fmt.Sprintf("register 0x%02X not in allowed write ranges", reg))
	}
	if err := d.dev.WriteRegister(reg, value); err != nil {
		return errorResponse(fmt.Sprintf("write error: %v", err))
	}
	log.Printf("register_debug: wrote 0x%02X = 0x%02X", reg, value)
	return RegisterResponse{
		Type:      "register_data",
		Device:    debugDevice,
		Address:   fmt.Sprintf("0x%02X", reg),
		Value:     fmt.Sprintf("0x%02X", value),
		Timestamp: time.Now().Format(time.RFC3339),
		Message:   "write successful",
	}
}

func (d *RegisterDebugger) export() RegisterResponse {
	registers, err := d.dev.ReadRegisters(sensors.DRV2624Addresses())
	if err != nil {
		return errorResponse(fmt.Sprintf("export error: %v", err))
	}
	now := time.Now()
	configJSON, err := json.MarshalIndent(RegisterConfigFile{
		Version:   1,
		Device:    debugDevice,
		Timestamp: now.Format(time.RFC3339),
		Registers: hexMap(registers),
	}, "", "  ")
	if err != nil {
		return errorResponse(fmt.Sprintf("export error: %v", err))
	}
	return RegisterResponse{
		Type:     "export_config",
		Device:   debugDevice,
		Message:  "config exported",
		Config:   string(configJSON),
		Filename: fmt.Sprintf("%s_%s_registers.json", debugDevice, now.Format("20060102_150405")),
	}
}

func (d *RegisterDebugger) registerMap() RegisterResponse {
	return RegisterResponse{
		Type:        "register_map",
		Device:      debugDevice,
		RegisterMap: sensors.DRV2624RegisterMap(),
	}
}

func errorResponse(message string) RegisterResponse {
	return RegisterResponse{Type: "error", Message: message}
}

func hexMap(registers map[byte]byte) map[string]string {
	out := make(map[string]string, len(registers))
	for addr, value := range registers {
		out[fmt.Sprintf("0x%02X", addr)] = fmt.Sprintf("0x%02X", value)
	}
	return out
}

// isRegisterWritable checks if a register address is in the allowed write ranges
func isRegisterWritable(addr byte, ranges []config.RegisterRange) bool {
	for _, r := range ranges {
		if addr >= r.From && addr <= r.To {
			return true
		}
	}
	return false
}
