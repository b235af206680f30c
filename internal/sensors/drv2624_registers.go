// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensors holds the peripherals around the haptic amplifier: the
// gravity sampler, the temperature source and register metadata.
package sensors

import "strconv"

// RegisterInfo describes one chip register for the register debugger.
type RegisterInfo struct {
	Address     string     `json:"address"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Access      string     `json:"access"` // "R", "W", "RW"
	Default     string     `json:"default,omitempty"`
	BitFields   []BitField `json:"bit_fields,omitempty"`
}

// BitField describes a field within a register.
type BitField struct {
	Bits        string `json:"bits"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Values      string `json:"values,omitempty"`
}

// DRV2624RegisterMap returns metadata for the DRV2624 registers the
// drive controller touches.
func DRV2624RegisterMap() []RegisterInfo {
	return []RegisterInfo{
		// Identification and status
		{Address: "0x00", Name: "ID", Description: "Chip and revision ID", Access: "R", Default: "0x03",
			BitFields: []BitField{
				{Bits: "7:4", Name: "CHIPID", Description: "Chip ID", Values: "0=DRV2624, 2=DRV2625"},
				{Bits: "3:0", Name: "REV", Description: "Revision"},
			}},
		{Address: "0x01", Name: "STATUS", Description: "Diagnostic and fault status", Access: "R", Default: "0x00",
			BitFields: []BitField{
				{Bits: "7", Name: "DIAG_RESULT", Description: "Diagnostic or calibration result", Values: "0=Pass, 1=Fail"},
				{Bits: "4", Name: "PRG_ERROR", Description: "Program error in waveform memory"},
				{Bits: "3", Name: "PROCESS_DONE", Description: "Playback or calibration finished"},
				{Bits: "2", Name: "UVLO", Description: "Supply under-voltage"},
				{Bits: "1", Name: "OVER_TEMP", Description: "Over-temperature fault"},
				{Bits: "0", Name: "OC_DETECT", Description: "Over-current fault"},
			}},

		// Mode and control
		{Address: "0x07", Name: "MODE", Description: "Trigger and playback mode", Access: "RW", Default: "0x44",
			BitFields: []BitField{
				{Bits: "3:2", Name: "TRIG_PIN_FUNC", Description: "External trigger function", Values: "0=Pulse, 1=Level, 2=Interrupt"},
				{Bits: "1:0", Name: "MODE", Description: "Playback mode", Values: "0=RTP, 1=Waveform sequencer, 2=Diagnostics, 3=Auto-calibration"},
			}},
		{Address: "0x08", Name: "CONTROL1", Description: "Loop and drive control", Access: "RW", Default: "0x88",
			BitFields: []BitField{
				{Bits: "7", Name: "LRA_ERM", Description: "Actuator type", Values: "0=ERM, 1=LRA"},
				{Bits: "6", Name: "LOOP", Description: "Loop mode", Values: "0=Closed loop, 1=Open loop"},
				{Bits: "3", Name: "AUTO_BRK_OL", Description: "Auto braking in open loop"},
			}},
		{Address: "0x0C", Name: "GO", Description: "Start or stop playback", Access: "RW", Default: "0x00",
			BitFields: []BitField{
				{Bits: "0", Name: "GO", Description: "Playback trigger", Values: "0=Stop, 1=Go"},
			}},
		{Address: "0x0D", Name: "CONTROL2", Description: "Library and interval", Access: "RW", Default: "0x0C"},
		{Address: "0x0E", Name: "RTP_INPUT", Description: "Real-time playback amplitude", Access: "RW", Default: "0x7F",
			BitFields: []BitField{
				{Bits: "7:0", Name: "RTP_INPUT", Description: "Signed amplitude", Values: "-128..127"},
			}},

		// Waveform sequencer
		{Address: "0x0F", Name: "WAV_SEQ1", Description: "Sequencer slot 1", Access: "RW", Default: "0x01"},
		{Address: "0x10", Name: "WAV_SEQ2", Description: "Sequencer slot 2", Access: "RW", Default: "0x00"},
		{Address: "0x11", Name: "WAV_SEQ3", Description: "Sequencer slot 3", Access: "RW", Default: "0x00"},
		{Address: "0x12", Name: "WAV_SEQ4", Description: "Sequencer slot 4", Access: "RW", Default: "0x00"},
		{Address: "0x13", Name: "WAV_SEQ5", Description: "Sequencer slot 5", Access: "RW", Default: "0x00"},
		{Address: "0x14", Name: "WAV_SEQ6", Description: "Sequencer slot 6", Access: "RW", Default: "0x00"},
		{Address: "0x15", Name: "WAV_SEQ7", Description: "Sequencer slot 7", Access: "RW", Default: "0x00"},
		{Address: "0x16", Name: "WAV_SEQ8", Description: "Sequencer slot 8", Access: "RW", Default: "0x00"},
		{Address: "0x19", Name: "MAIN_LOOP", Description: "Main loop repeat count", Access: "RW", Default: "0x00"},

		// Drive levels
		{Address: "0x1F", Name: "RATED_VOLTAGE", Description: "Rated voltage for closed loop", Access: "RW", Default: "0x3F"},
		{Address: "0x20", Name: "OD_CLAMP", Description: "Overdrive clamp voltage", Access: "RW", Default: "0x89",
			BitFields: []BitField{
				{Bits: "7:0", Name: "OD_CLAMP", Description: "Peak drive clamp", Values: "V = OD_CLAMP × 21.32 mV × sqrt(1 − f·0.0008)"},
			}},
		{Address: "0x21", Name: "CAL_COMP", Description: "Auto-calibration compensation", Access: "RW", Default: "0x0D"},
		{Address: "0x22", Name: "CAL_BEMF", Description: "Auto-calibration back-EMF", Access: "RW", Default: "0x6D"},
		{Address: "0x23", Name: "LOOP_CONTROL", Description: "Feedback and back-EMF gain", Access: "RW", Default: "0x1A",
			BitFields: []BitField{
				{Bits: "1:0", Name: "BEMF_GAIN", Description: "Back-EMF gain from auto-calibration"},
			}},

		// Resonance
		{Address: "0x2C", Name: "LRA_SHAPE", Description: "Open loop drive shape", Access: "RW", Default: "0x00",
			BitFields: []BitField{
				{Bits: "0", Name: "LRA_WAVE_SHAPE", Description: "Drive waveform", Values: "0=Square, 1=Sine"},
			}},
		{Address: "0x2E", Name: "OL_LRA_PERIOD_H", Description: "Open loop LRA period high bits", Access: "RW", Default: "0x00",
			BitFields: []BitField{
				{Bits: "1:0", Name: "OL_LRA_PERIOD[9:8]", Description: "Period high bits"},
			}},
		{Address: "0x2F", Name: "OL_LRA_PERIOD_L", Description: "Open loop LRA period low byte", Access: "RW", Default: "0xC6",
			BitFields: []BitField{
				{Bits: "7:0", Name: "OL_LRA_PERIOD[7:0]", Description: "Period low byte", Values: "f = 1e9 / (24615 × period) Hz"},
			}},
	}
}

// DRV2624Addresses returns the register addresses of DRV2624RegisterMap in
// map order.
func DRV2624Addresses() []byte {
	regs := DRV2624RegisterMap()
	out := make([]byte, 0, len(regs))
	for _, r := range regs {
		v, err := strconv.ParseUint(r.Address, 0, 8)
		if err != nil {
			panic("sensors: bad register address " + r.Address)
		}
		out = append(out, byte(v))
	}
	return out
}
