package artnet

import (
	"fmt"
	"math"
	"time"

	"github.com/coreman2200/artnetfx/internal/dmx"
)

// FadeStep is the interval between packets during a timed fade (40 Hz).
const FadeStep = 25 * time.Millisecond

// sendFunc delivers one encoded ArtDmx packet.
type sendFunc func(packet []byte) error

// node is shared by the UDP and simulated transports; only the packet sink
// differs.
type node struct {
	name      string
	send      sendFunc
	closeFn   func() error
	step      time.Duration
	sleep     func(time.Duration)
	universes map[int]*universe
	closed    bool
}

func newNode(name string, send sendFunc, closeFn func() error) *node {
	return &node{
		name:      name,
		send:      send,
		closeFn:   closeFn,
		step:      FadeStep,
		sleep:     time.Sleep,
		universes: map[int]*universe{},
	}
}

func (n *node) AddUniverse(id int) (Universe, error) {
	if n.closed {
		return nil, ErrClosed
	}
	if id < 0 || id > MaxUniverse {
		return nil, fmt.Errorf("%w: %d", ErrBadUniverse, id)
	}
	if u, ok := n.universes[id]; ok {
		return u, nil
	}
	u := &universe{node: n, id: id}
	n.universes[id] = u
	return u, nil
}

func (n *node) Close() error {
	if n.closed {
		return nil
	}
	n.closed = true
	n.universes = nil
	if n.closeFn != nil {
		return n.closeFn()
	}
	return nil
}

type universe struct {
	node *node
	id   int
	seq  uint8
	used int // highest slot any channel covers
	data [dmx.UniverseSize]byte
}

func (u *universe) AddChannel(start, width int) (Channel, error) {
	if u.node.closed {
		return nil, ErrClosed
	}
	if width < 1 || start < 1 || start+width-1 > dmx.UniverseSize {
		return nil, fmt.Errorf("%w: start %d width %d", ErrBadChannel, start, width)
	}
	if end := start + width - 1; end > u.used {
		u.used = end
	}
	return &channel{u: u, start: start, width: width}, nil
}

// flush sends the universe up to the highest used slot.
func (u *universe) flush() error {
	u.seq++
	if u.seq == 0 {
		u.seq = 1 // 0 disables sequencing on the receiver
	}
	return u.node.send(BuildDMX(u.seq, uint16(u.id), u.data[:u.used]))
}

type channel struct {
	u     *universe
	start int
	width int
}

func (c *channel) Fade(values []byte, d time.Duration) error {
	n := c.u.node
	if n.closed {
		return ErrClosed
	}
	if len(values) != c.width {
		return fmt.Errorf("%w: got %d, want %d", ErrWidthMismatch, len(values), c.width)
	}
	slots := c.u.data[c.start-1 : c.start-1+c.width]

	if d <= 0 {
		copy(slots, values)
		return c.u.flush()
	}

	from := make([]byte, len(slots))
	copy(from, slots)
	steps := int(d / n.step)
	if steps < 1 {
		steps = 1
	}
	for k := 1; k <= steps; k++ {
		frac := float64(k) / float64(steps)
		for i := range slots {
			a, b := float64(from[i]), float64(values[i])
			slots[i] = byte(math.Round(a + (b-a)*frac))
		}
		if err := c.u.flush(); err != nil {
			return err
		}
		if k < steps {
			n.sleep(n.step)
		}
	}
	return nil
}
