package render

import (
	"math"

	"github.com/coreman2200/artnetfx/internal/dmx"
)

type renderFunc func(t float64, s State) dmx.Frame

// renderers holds one implementation per variant. Variants missing here
// render black.
var renderers = map[Variant]renderFunc{
	Static:   renderStatic,
	Bouncy:   renderBouncy,
	Gradient: renderGradient,
	Chase:    renderChase,
}

func renderStatic(_ float64, s State) dmx.Frame {
	v := byte(s.StaticLevel)
	return dmx.PackRGBW(s.Leds, v, v, v, 0)
}

func renderBouncy(t float64, s State) dmx.Frame {
	v := sineByte(2 * math.Pi * s.BouncyFreq * t)
	return dmx.PackRGBW(s.Leds, v, v, v, 0)
}

// renderGradient sweeps blue to red along the chain with red held at full.
func renderGradient(t float64, s State) dmx.Frame {
	f := make(dmx.Frame, dmx.Width(s.Leds))
	phase := 2 * math.Pi * s.GradientSpeed * t
	span := float64(max(1, s.Leds-1))
	for i := 0; i < s.Leds; i++ {
		x := float64(i) / span * 2 * math.Pi
		val := sineByte(x + phase)
		f.Set(i, 255, val, 255-val, 0)
	}
	return f
}

func renderChase(t float64, s State) dmx.Frame {
	f := make(dmx.Frame, dmx.Width(s.Leds))
	idx := ChaseIndex(t, s.ChaseFreq, s.Leds)
	c := ChaseColor(idx)
	f.Set(idx, c[0], c[1], c[2], c[3])
	return f
}

// ChaseIndex is the lit LED at time t: floor(t*hz) mod leds.
func ChaseIndex(t, hz float64, leds int) int {
	if leds < 1 {
		return 0
	}
	step := int64(math.Floor(t * hz))
	n := int64(leds)
	return int(((step % n) + n) % n)
}

// sineByte maps sin(rad) from [-1,1] onto [0,255], rounding to nearest.
func sineByte(rad float64) byte {
	return byte(math.Round(255 * (0.5 + 0.5*math.Sin(rad))))
}
