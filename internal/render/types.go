package render

import (
	"fmt"
	"strings"
)

// Variant selects which effect the engine renders.
type Variant int

const (
	Unknown Variant = iota
	Static
	Bouncy
	Gradient
	Chase
)

var variantNames = map[Variant]string{
	Static:   "static",
	Bouncy:   "bouncy",
	Gradient: "gradient",
	Chase:    "chase",
}

func (v Variant) String() string {
	if s, ok := variantNames[v]; ok {
		return s
	}
	return "unknown"
}

// ParseVariant maps a case-insensitive name back to its Variant.
func ParseVariant(s string) (Variant, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for v, name := range variantNames {
		if name == s {
			return v, nil
		}
	}
	return Unknown, fmt.Errorf("unknown effect: %q", s)
}

// Lower bounds applied by the setters.
const (
	MinLeds = 1
	MinFreq = 0.01
)

// State holds the numeric knobs every variant reads from.
type State struct {
	Leds          int
	StaticLevel   int
	BouncyFreq    float64 // Hz
	GradientSpeed float64 // Hz
	ChaseFreq     float64 // Hz, steps per second
}

// DefaultState returns the knob set used at engine construction.
func DefaultState(leds int) State {
	return State{
		Leds:          clampLeds(leds),
		StaticLevel:   0,
		BouncyFreq:    1.0,
		GradientSpeed: 1.0,
		ChaseFreq:     1.0,
	}
}

func clampLeds(n int) int {
	if n < MinLeds {
		return MinLeds
	}
	return n
}

func clampLevel(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

func clampFreq(hz float64) float64 {
	// NaN fails every comparison, so test for the valid range instead.
	if !(hz >= MinFreq) {
		return MinFreq
	}
	return hz
}
