package artnet

import (
	"net"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"
)

// Sim is a transport with no network output. It decodes every packet it
// would have sent, logs a compact summary and keeps the last payload per
// universe, which makes it useful headless and in tests.
type Sim struct {
	mu      sync.Mutex
	packets int
	nodes   int
	last    map[uint16][]byte
}

func NewSim() *Sim {
	return &Sim{last: map[uint16][]byte{}}
}

func (s *Sim) NewNode(host string, port int) (Node, error) {
	if port == 0 {
		port = Port
	}
	name := net.JoinHostPort(host, strconv.Itoa(port))
	s.mu.Lock()
	s.nodes++
	s.mu.Unlock()
	return newNode(name, func(packet []byte) error { return s.record(name, packet) }, nil), nil
}

func (s *Sim) record(name string, packet []byte) error {
	p, err := ParseDMX(packet)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.packets++
	s.last[p.Universe] = p.Data
	count := s.packets
	s.mu.Unlock()

	var sum int
	for _, v := range p.Data {
		sum += int(v)
	}
	avg := 0.0
	if len(p.Data) > 0 {
		avg = float64(sum) / float64(len(p.Data))
	}
	log.Debug().
		Str("node", name).
		Int("packet", count).
		Uint16("universe", p.Universe).
		Uint8("seq", p.Sequence).
		Int("len", len(p.Data)).
		Float64("avg", avg).
		Msg("sim frame")
	return nil
}

// Packets returns how many ArtDmx packets were emitted.
func (s *Sim) Packets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.packets
}

// Nodes returns how many nodes were created.
func (s *Sim) Nodes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nodes
}

// Last returns a copy of the last payload sent to universe.
func (s *Sim) Last(universe uint16) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.last[universe]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), b...), true
}
