package dmx

// ChannelsPerLED is the RGBW width of one LED in a frame.
const ChannelsPerLED = 4

// UniverseSize is the number of DMX slots in one universe.
const UniverseSize = 512

// Frame is one update worth of channel values, laid out R,G,B,W per LED.
type Frame []byte

// Width returns the channel width for n LEDs.
func Width(leds int) int { return leds * ChannelsPerLED }

// Leds returns how many whole LEDs the frame carries.
func (f Frame) Leds() int { return len(f) / ChannelsPerLED }

// Set writes one LED. Out-of-range indexes are ignored.
func (f Frame) Set(i int, r, g, b, w byte) {
	off := i * ChannelsPerLED
	if i < 0 || off+ChannelsPerLED > len(f) {
		return
	}
	f[off+0], f[off+1], f[off+2], f[off+3] = r, g, b, w
}

// At returns the RGBW values of LED i.
func (f Frame) At(i int) (r, g, b, w byte) {
	off := i * ChannelsPerLED
	if i < 0 || off+ChannelsPerLED > len(f) {
		return 0, 0, 0, 0
	}
	return f[off], f[off+1], f[off+2], f[off+3]
}

// PackRGBW builds a frame with every LED set to the same color.
func PackRGBW(leds int, r, g, b, w byte) Frame {
	if leds < 0 {
		leds = 0
	}
	f := make(Frame, Width(leds))
	for i := 0; i < leds; i++ {
		f.Set(i, r, g, b, w)
	}
	return f
}
