// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package motion decides whether the device is lying still or being moved,
// from a short window of gravity readings.
package motion

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// State is the classified motion state.
type State int

const (
	Static State = iota
	Moving
)

func (s State) String() string {
	if s == Static {
		return "static"
	}
	return "moving"
}

// Sample is one gravity reading on the two in-plane axes (m/s²).
type Sample struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sampler collects n readings, blocking for a bounded time.
type Sampler interface {
	Collect(n int) ([]Sample, error)
}

// ErrEmptyWindow is returned when no samples are available to classify.
var ErrEmptyWindow = errors.New("motion: empty sample window")

// Params controls the sensing window and the static region.
type Params struct {
	Period time.Duration // how long a window stays valid
	Window int           // samples per window
	XLimit float64       // |mean x| must stay below this to be static
	YLimit float64       // |mean y| must stay below this to be static
}

// DefaultParams returns a 2 s, 20 sample window with the x∈(-1.3,1.3),
// y∈(-0.8,0.8) static region.
func DefaultParams() Params {
	return Params{
		Period: 2 * time.Second,
		Window: 20,
		XLimit: 1.3,
		YLimit: 0.8,
	}
}

// Classifier caches a sample window and re-collects it once it is older
// than Params.Period.
type Classifier struct {
	mu       sync.Mutex
	src      Sampler
	p        Params
	window   []Sample
	closedAt time.Time
	now      func() time.Time
}

// NewClassifier wraps src. Zero fields of p fall back to DefaultParams.
func NewClassifier(src Sampler, p Params) *Classifier {
	def := DefaultParams()
	if p.Window <= 0 {
		p.Window = def.Window
	}
	if p.Period <= 0 {
		p.Period = def.Period
	}
	if p.XLimit <= 0 || p.YLimit <= 0 {
		p.XLimit, p.YLimit = def.XLimit, def.YLimit
	}
	return &Classifier{src: src, p: p, now: time.Now}
}

// Classify refreshes the window if it has expired and reports the state.
// A failed collection leaves the window empty until the next period.
func (c *Classifier) Classify() (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closedAt.IsZero() || c.now().Sub(c.closedAt) > c.p.Period {
		c.window = c.window[:0]
		samples, err := c.src.Collect(c.p.Window)
		// The period runs from the last sample, not from the request.
		c.closedAt = c.now()
		if err != nil {
			log.Printf("motion: collect failed: %v", err)
			return Moving, fmt.Errorf("motion: collect: %w", err)
		}
		c.window = append(c.window, samples...)
	}
	return classify(c.window, c.p)
}

// Mean returns the per-axis mean of the cached window.
func (c *Classifier) Mean() (Sample, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return mean(c.window)
}

func mean(w []Sample) (Sample, error) {
	if len(w) == 0 {
		return Sample{}, ErrEmptyWindow
	}
	var sx, sy float64
	for _, s := range w {
		sx += s.X
		sy += s.Y
	}
	n := float64(len(w))
	return Sample{X: sx / n, Y: sy / n}, nil
}

func classify(w []Sample, p Params) (State, error) {
	m, err := mean(w)
	if err != nil {
		return Moving, err
	}
	if m.X > -p.XLimit && m.X < p.XLimit && m.Y > -p.YLimit && m.Y < p.YLimit {
		return Static, nil
	}
	return Moving, nil
}
