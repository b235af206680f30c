// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/lra_haptics/internal/calibration"
	"github.com/relabs-tech/lra_haptics/internal/clamp"
	"github.com/relabs-tech/lra_haptics/internal/solver"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// maxCalibrationBody bounds uploaded calibration documents.
const maxCalibrationBody = 64 << 10

// CalibrationPreview is the clamp tables a calibration document produces.
type CalibrationPreview struct {
	File   string             `json:"file,omitempty"`
	Values calibration.Values `json:"values"`
	Tables *clamp.Tables      `json:"tables"`
}

// SolveRequest asks for one solver evaluation.
type SolveRequest struct {
	Action  string     `json:"action"` // "solve" or "preview"
	Coeffs  [4]float64 `json:"coeffs"`
	TargetG float64    `json:"target_g"`
	Period  uint32     `json:"period"`
	YAML    string     `json:"yaml,omitempty"` // for "preview"
}

// SolveResponse is the solver result for a SolveRequest.
type SolveResponse struct {
	Type    string              `json:"type"` // "solve", "preview" or "error"
	Linear  bool                `json:"linear,omitempty"`
	Case    string              `json:"case,omitempty"`
	Roots   []float64           `json:"roots,omitempty"`
	Voltage float64             `json:"voltage,omitempty"`
	Clamp   int                 `json:"clamp,omitempty"`
	Preview *CalibrationPreview `json:"preview,omitempty"`
	Message string              `json:"message,omitempty"`
}

func previewFor(f *calibration.File, opts ...clamp.Option) *CalibrationPreview {
	return &CalibrationPreview{File: f.Path(), Values: f.Values(), Tables: clamp.Build(f, opts...)}
}

// CalibrationHandler serves the tables of the calibration file on GET and
// previews an uploaded YAML document on POST without touching the amplifier.
func CalibrationHandler(path string, opts ...clamp.Option) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			f   *calibration.File
			err error
		)
		switch r.Method {
		case http.MethodGet:
			f, err = calibration.Load(path)
		case http.MethodPost:
			var body []byte
			body, err = io.ReadAll(io.LimitReader(r.Body, maxCalibrationBody))
			if err == nil {
				f, err = calibration.Parse(body)
			}
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(previewFor(f, opts...)); err != nil {
			log.Printf("calibration: json encode error: %v", err)
		}
	}
}

// HandleCalibrationWS lets the web page explore the solver interactively.
func HandleCalibrationWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("calibration: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	for {
		var req SolveRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("calibration: websocket error: %v", err)
			}
			return
		}
		if err := conn.WriteJSON(handleSolve(req)); err != nil {
			log.Printf("calibration: write error: %v", err)
			return
		}
	}
}

func handleSolve(req SolveRequest) SolveResponse {
	switch req.Action {
	case "preview":
		f, err := calibration.Parse([]byte(req.YAML))
		if err != nil {
			return SolveResponse{Type: "error", Message: err.Error()}
		}
		return SolveResponse{Type: "preview", Preview: previewFor(f)}

	case "solve":
		c := solver.Coefficients(req.Coeffs)
		resp := SolveResponse{Type: "solve", Linear: c.IsLinear()}
		if !resp.Linear {
			d := solver.Classify(c, req.TargetG)
			resp.Case = d.Case.String()
			for _, v := range d.Candidates(c) {
				if !math.IsNaN(v) && !math.IsInf(v, 0) {
					resp.Roots = append(resp.Roots, v)
				}
			}
		}
		resp.Voltage = solver.Solve(c, req.TargetG)
		clampReg, err := solver.VoltageToClampRegister(resp.Voltage, req.Period)
		if err != nil {
			resp.Message = err.Error()
		}
		resp.Clamp = clampReg
		return resp
	}
	return SolveResponse{Type: "error", Message: fmt.Sprintf("unknown action: %s", req.Action)}
}
