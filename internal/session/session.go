// Package session drives one fixture: it owns the effect engine, runs the
// fixed-rate render worker and routes every transport call through a
// bridge goroutine.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/artnetfx/internal/artnet"
	"github.com/coreman2200/artnetfx/internal/bridge"
	"github.com/coreman2200/artnetfx/internal/dmx"
	"github.com/coreman2200/artnetfx/internal/render"
)

var (
	ErrTransportUnavailable = errors.New("session: no frame transport available")
	ErrInvalidAddress       = errors.New("session: address config out of range")
)

// State is the lifecycle position of a Session.
type State int32

const (
	Stopped State = iota
	Starting
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	}
	return "invalid"
}

// AddressConfig places the LED chain in the DMX channel space.
type AddressConfig struct {
	Universe int `json:"universe" yaml:"universe"`
	Address  int `json:"address" yaml:"address"`
}

// Validate checks Universe against the 15-bit port-address and Address
// against the slots of one universe.
func (c AddressConfig) Validate() error {
	if c.Universe < 0 || c.Universe > artnet.MaxUniverse {
		return fmt.Errorf("%w: universe %d", ErrInvalidAddress, c.Universe)
	}
	if c.Address < 1 || c.Address > dmx.UniverseSize {
		return fmt.Errorf("%w: address %d", ErrInvalidAddress, c.Address)
	}
	return nil
}

// DefaultAddress is universe 0, first slot.
var DefaultAddress = AddressConfig{Universe: 0, Address: 1}

const (
	DefaultRate        = 30 * physic.Hertz
	DefaultJoinTimeout = 1500 * time.Millisecond
)

type Options struct {
	Host string
	Port int // 0 means artnet.Port

	// Rate is fixed for the life of the session.
	Rate physic.Frequency

	// JoinTimeout bounds how long Stop waits for the render worker.
	JoinTimeout time.Duration
	// BridgeTimeout bounds each round trip to the transport goroutine.
	BridgeTimeout time.Duration

	// OnStatus is told about lifecycle changes.
	OnStatus func(state State, msg string)
	// OnFrame is handed each frame that was delivered. It runs on the
	// render worker and must not block.
	OnFrame func(f dmx.Frame)
}

type handles struct {
	node    artnet.Node
	channel artnet.Channel
}

// Session is safe for concurrent use. Lifecycle calls are serialized: one
// arriving mid-transition waits until the transition is done.
type Session struct {
	host        string
	port        int
	rate        physic.Frequency
	period      time.Duration
	joinTimeout time.Duration
	onStatus    func(State, string)
	onFrame     func(dmx.Frame)

	transport artnet.Transport
	engine    *render.Engine
	bridge    *bridge.Bridge
	t0        time.Time

	mu     sync.Mutex // lifecycle
	state  atomic.Int32
	cancel context.CancelFunc
	quit   chan struct{}
	done   chan struct{}

	cfgMu sync.RWMutex
	addr  AddressConfig

	// written only from closures running on the bridge
	handles atomic.Pointer[handles]

	statsMu sync.Mutex
	stats   Stats
}

// New builds a stopped session with one LED. A nil transport is allowed;
// Start then fails with ErrTransportUnavailable.
func New(tr artnet.Transport, opts Options) *Session {
	if opts.Port == 0 {
		opts.Port = artnet.Port
	}
	if opts.Rate <= 0 {
		opts.Rate = DefaultRate
	}
	if opts.JoinTimeout <= 0 {
		opts.JoinTimeout = DefaultJoinTimeout
	}
	return &Session{
		host:        opts.Host,
		port:        opts.Port,
		rate:        opts.Rate,
		period:      opts.Rate.Period(),
		joinTimeout: opts.JoinTimeout,
		onStatus:    opts.OnStatus,
		onFrame:     opts.OnFrame,
		transport:   tr,
		engine:      render.NewEngine(1),
		bridge:      bridge.New("artnet", opts.BridgeTimeout),
		t0:          time.Now(),
		addr:        DefaultAddress,
	}
}

func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) Running() bool { return s.State() == Running }

func (s *Session) setState(st State) { s.state.Store(int32(st)) }

func (s *Session) AddressConfig() AddressConfig {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.addr
}

func (s *Session) Leds() int { return s.engine.Leds() }

// Rate is the fixed frame rate.
func (s *Session) Rate() physic.Frequency { return s.rate }

// Uptime is the time elapsed since the session was built; it is the t the
// engine renders at.
func (s *Session) Uptime() time.Duration { return time.Since(s.t0) }

func (s *Session) Effect() render.Variant { return s.engine.Effect() }

func (s *Session) EffectState() render.State { return s.engine.State() }

func (s *Session) SetEffect(v render.Variant) { s.engine.SetEffect(v) }

func (s *Session) SetStaticLevel(v int) { s.engine.SetStaticLevel(v) }

func (s *Session) SetBouncyFreq(hz float64) { s.engine.SetBouncyFreq(hz) }

func (s *Session) SetGradientSpeed(hz float64) { s.engine.SetGradientSpeed(hz) }

func (s *Session) SetChaseFreq(hz float64) { s.engine.SetChaseFreq(hz) }

func (s *Session) status(msg string) {
	if s.onStatus != nil {
		s.onStatus(s.State(), msg)
	}
}
