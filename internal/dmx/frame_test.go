package dmx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPackRGBW(t *testing.T) {
	f := PackRGBW(3, 10, 20, 30, 40)
	assert.Len(t, f, 12)
	assert.Equal(t, 3, f.Leds())
	for i := 0; i < 3; i++ {
		r, g, b, w := f.At(i)
		assert.Equal(t, []byte{10, 20, 30, 40}, []byte{r, g, b, w}, "led %d", i)
	}
}

func TestPackRGBWNegative(t *testing.T) {
	assert.Empty(t, PackRGBW(-2, 1, 1, 1, 1))
}

func TestSetOutOfRange(t *testing.T) {
	f := PackRGBW(1, 0, 0, 0, 0)
	f.Set(1, 255, 255, 255, 255)
	f.Set(-1, 255, 255, 255, 255)
	assert.Equal(t, Frame{0, 0, 0, 0}, f)

	r, g, b, w := f.At(5)
	assert.Zero(t, int(r)+int(g)+int(b)+int(w))
}
