package session

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/artnetfx/internal/dmx"
	"github.com/coreman2200/artnetfx/internal/render"
)

// Start builds the node, universe and channel on the bridge and launches
// the render worker. It is a no-op when already running.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.start(ctx)
}

// Stop ends the render worker, then tears the transport down. It is a
// no-op when already stopped.
func (s *Session) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stop(ctx)
}

// Close stops the session and the bridge goroutine.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stop(ctx)
	s.bridge.Stop()
}

// RestartForLeds changes the LED count. The channel width depends on it, so
// a running session goes through a full stop and start.
func (s *Session) RestartForLeds(ctx context.Context, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n = max(render.MinLeds, n)
	running := s.Running()
	if n == s.engine.Leds() && running {
		return nil
	}
	if running {
		s.stop(ctx)
	}
	s.engine.SetLeds(n)
	if running {
		return s.start(ctx)
	}
	return nil
}

// SetAddressConfig stores cfg. A running session is rebuilt against it
// before the next frame goes out; a stopped one picks it up on Start. An
// out-of-range cfg is rejected with ErrInvalidAddress and changes nothing.
func (s *Session) SetAddressConfig(ctx context.Context, cfg AddressConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfgMu.Lock()
	s.addr = cfg
	s.cfgMu.Unlock()

	if !s.Running() {
		return nil
	}
	s.stop(ctx)
	return s.start(ctx)
}

const (
	buildPending int32 = iota
	buildCommitted
	buildAbandoned
)

func (s *Session) start(ctx context.Context) error {
	if s.Running() {
		return nil
	}
	if s.transport == nil {
		return ErrTransportUnavailable
	}
	s.setState(Starting)
	s.bridge.Start()

	cfg := s.AddressConfig()
	width := dmx.Width(s.engine.Leds())
	log.Info().
		Str("host", s.host).
		Int("universe", cfg.Universe).
		Int("address", cfg.Address).
		Int("width", width).
		Msg("creating channel")

	// attempt decides who owns the node when the caller gives up waiting:
	// the closure commits it, or the caller abandons it and the closure
	// closes the node itself.
	var attempt atomic.Int32
	err := s.bridge.Do(ctx, func() error {
		node, err := s.transport.NewNode(s.host, s.port)
		if err != nil {
			return err
		}
		uni, err := node.AddUniverse(cfg.Universe)
		if err != nil {
			_ = node.Close()
			return err
		}
		ch, err := uni.AddChannel(cfg.Address, width)
		if err != nil {
			_ = node.Close()
			return err
		}
		if !attempt.CompareAndSwap(buildPending, buildCommitted) {
			log.Debug().Str("host", s.host).Msg("closing node from abandoned start")
			return node.Close()
		}
		s.handles.Store(&handles{node: node, channel: ch})
		return nil
	})
	if err != nil && !attempt.CompareAndSwap(buildPending, buildAbandoned) {
		// the build landed after Do gave up waiting
		err = nil
	}
	if err != nil {
		s.setState(Stopped)
		return fmt.Errorf("start session: %w", err)
	}

	s.resetStats()
	wctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.quit = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(wctx, s.quit, s.done)

	s.setState(Running)
	s.status("session started")
	return nil
}

func (s *Session) stop(ctx context.Context) {
	if !s.Running() {
		return
	}
	s.setState(Stopping)

	close(s.quit)
	s.cancel()
	timer := time.NewTimer(s.joinTimeout)
	select {
	case <-s.done:
	case <-timer.C:
		log.Warn().Dur("timeout", s.joinTimeout).Msg("render worker did not exit in time")
	}
	timer.Stop()
	s.quit, s.done, s.cancel = nil, nil, nil

	if err := s.bridge.Do(context.WithoutCancel(ctx), s.teardown); err != nil {
		log.Debug().Err(err).Msg("transport teardown skipped")
	}

	s.setState(Stopped)
	s.status("session stopped")
}

// teardown runs on the bridge.
func (s *Session) teardown() error {
	h := s.handles.Swap(nil)
	if h == nil {
		return nil
	}
	return h.node.Close()
}
