package render

import (
	"sync"

	"github.com/coreman2200/artnetfx/internal/dmx"
)

// Engine renders frames from the active variant and the shared knob state.
// Setters and Render may be called from different goroutines.
type Engine struct {
	mu     sync.RWMutex
	state  State
	effect Variant
}

// NewEngine returns an engine rendering Static at level 0.
func NewEngine(leds int) *Engine {
	return &Engine{state: DefaultState(leds), effect: Static}
}

// Render produces the frame at t seconds since session start. The result
// depends only on t, the active variant and the current state.
func (e *Engine) Render(t float64) dmx.Frame {
	e.mu.RLock()
	s, v := e.state, e.effect
	e.mu.RUnlock()

	if fn, ok := renderers[v]; ok {
		return fn(t, s)
	}
	return dmx.PackRGBW(s.Leds, 0, 0, 0, 0)
}

// State returns a copy of the current knobs.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

func (e *Engine) Effect() Variant {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.effect
}

func (e *Engine) SetEffect(v Variant) {
	e.mu.Lock()
	e.effect = v
	e.mu.Unlock()
}

func (e *Engine) Leds() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Leds
}

// SetLeds clamps n to at least one LED.
func (e *Engine) SetLeds(n int) {
	e.mu.Lock()
	e.state.Leds = clampLeds(n)
	e.mu.Unlock()
}

// SetStaticLevel clamps v to [0,255].
func (e *Engine) SetStaticLevel(v int) {
	e.mu.Lock()
	e.state.StaticLevel = clampLevel(v)
	e.mu.Unlock()
}

func (e *Engine) SetBouncyFreq(hz float64) {
	e.mu.Lock()
	e.state.BouncyFreq = clampFreq(hz)
	e.mu.Unlock()
}

func (e *Engine) SetGradientSpeed(hz float64) {
	e.mu.Lock()
	e.state.GradientSpeed = clampFreq(hz)
	e.mu.Unlock()
}

func (e *Engine) SetChaseFreq(hz float64) {
	e.mu.Lock()
	e.state.ChaseFreq = clampFreq(hz)
	e.mu.Unlock()
}
