// Package engine provides the tick-based simulation loop and the
// per-agent decision cycle.
package engine

import (
	"log/slog"
	"time"
)

// Engine drives the simulation forward in real time.
type Engine struct {
	Tick     uint64        // current tick counter (monotonic, never resets)
	Speed    float64       // multiplier: 1.0 = real-time, 0 = paused
	Interval time.Duration // base tick interval
	Running  bool

	OnTick func(tick uint64)
}

// NewEngine creates an engine ticking at the given rate per real second.
func NewEngine(tickRate int) *Engine {
	if tickRate <= 0 {
		tickRate = 10
	}
	return &Engine{
		Speed:    1.0,
		Interval: time.Second / time.Duration(tickRate),
	}
}

// Run starts the loop. Blocks until Stop is called.
func (e *Engine) Run() {
	e.Running = true
	slog.Info("simulation engine started", "tick", e.Tick, "speed", e.Speed)

	for e.Running {
		if e.Speed <= 0 {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()
		e.Tick++
		if e.OnTick != nil {
			e.OnTick(e.Tick)
		}

		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / e.Speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	slog.Info("simulation engine stopped", "tick", e.Tick)
}

// Stop halts the loop after the current tick.
func (e *Engine) Stop() {
	e.Running = false
}
