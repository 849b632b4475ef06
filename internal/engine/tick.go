// Package engine provides the tick loop and the Simulation that wires the
// motion, task, script and rules layers together.
package engine

import (
	"log/slog"
	"sync"
	"time"
)

// Engine drives a simulation forward at a fixed tick interval scaled by
// Speed.
type Engine struct {
	Interval time.Duration // Base tick interval

	// SaveEvery is the number of ticks between OnSave calls; 0 disables
	// autosave.
	SaveEvery uint64

	OnTick func(tick uint64) // Every tick
	OnSave func(tick uint64) // Every SaveEvery ticks

	mu      sync.Mutex
	tick    uint64
	speed   float64
	running bool
	stop    chan struct{}
}

// NewEngine creates an engine starting after tick.
func NewEngine(tick uint64, interval time.Duration) *Engine {
	return &Engine{
		Interval: interval,
		tick:     tick,
		speed:    1.0,
	}
}

// Tick returns the last tick run.
func (e *Engine) Tick() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick
}

// Speed returns the current multiplier. 0 is paused.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed changes the multiplier; negative values pause.
func (e *Engine) SetSpeed(v float64) {
	e.mu.Lock()
	e.speed = max(v, 0)
	e.mu.Unlock()
	slog.Info("simulation speed changed", "speed", v)
}

// Running reports whether Run is looping.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Run starts the simulation loop. Blocks until Stop is called.
func (e *Engine) Run() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.stop = make(chan struct{})
	stop := e.stop
	e.mu.Unlock()

	slog.Info("simulation engine started", "tick", e.Tick(), "speed", e.Speed())
	for {
		speed := e.Speed()
		if speed <= 0 {
			select {
			case <-stop:
				slog.Info("simulation engine stopped", "tick", e.Tick())
				return
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}

		start := time.Now()
		e.Step()

		wait := time.Duration(float64(e.Interval)/speed) - time.Since(start)
		select {
		case <-stop:
			slog.Info("simulation engine stopped", "tick", e.Tick())
			return
		case <-time.After(max(wait, 0)):
		}
	}
}

// Stop halts the loop after the current tick.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		e.running = false
		close(e.stop)
	}
}

// Step advances the simulation by one tick.
func (e *Engine) Step() {
	e.mu.Lock()
	e.tick++
	tick := e.tick
	e.mu.Unlock()

	if e.OnTick != nil {
		e.OnTick(tick)
	}
	if e.SaveEvery > 0 && tick%e.SaveEvery == 0 && e.OnSave != nil {
		e.OnSave(tick)
	}
}

// TicksIn converts a wall-clock duration at speed 1 into ticks.
func TicksIn(d, interval time.Duration) uint64 {
	if d <= 0 || interval <= 0 {
		return 0
	}
	return uint64(max(d/interval, 1))
}
