// Package bridge runs closures on one dedicated goroutine.
//
// Objects that must only be touched from a single calling context (the
// Art-Net node and its universes and channels) are created, used and
// destroyed inside closures posted through a Bridge. Callers block until the
// closure has run and receive its error.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	ErrNotRunning = errors.New("bridge not running")
	ErrTimeout    = errors.New("bridge call timed out")
)

// DefaultTimeout bounds a round trip when New is given zero.
const DefaultTimeout = 2 * time.Second

type call struct {
	fn   func() error
	done chan error
}

// Bridge owns a worker goroutine. The zero value is not usable; use New.
type Bridge struct {
	name    string
	timeout time.Duration

	mu     sync.Mutex
	calls  chan call
	quit   chan struct{}
	exited chan struct{}
}

// New returns a stopped bridge. timeout bounds each Do round trip; a
// negative timeout disables the bound.
func New(name string, timeout time.Duration) *Bridge {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Bridge{name: name, timeout: timeout}
}

// Start launches the worker if it is not running.
func (b *Bridge) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.quit != nil {
		return
	}
	b.calls = make(chan call)
	b.quit = make(chan struct{})
	b.exited = make(chan struct{})
	go b.loop(b.calls, b.quit, b.exited)
	log.Debug().Str("bridge", b.name).Msg("bridge started")
}

// Stop ends the worker and waits for it to exit. A closure already accepted
// by the worker runs to completion first. Stop must not be called from
// inside a closure running on this bridge.
func (b *Bridge) Stop() {
	b.mu.Lock()
	if b.quit == nil {
		b.mu.Unlock()
		return
	}
	close(b.quit)
	exited := b.exited
	b.calls, b.quit, b.exited = nil, nil, nil
	b.mu.Unlock()

	<-exited
	log.Debug().Str("bridge", b.name).Msg("bridge stopped")
}

func (b *Bridge) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.quit != nil
}

func (b *Bridge) loop(calls <-chan call, quit <-chan struct{}, exited chan<- struct{}) {
	defer close(exited)
	for {
		select {
		case <-quit:
			return
		case c := <-calls:
			c.done <- run(c.fn)
		}
	}
}

func run(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("bridge: panic: %v", r)
		}
	}()
	return fn()
}

// Do runs fn on the worker and returns its error. It fails with
// ErrNotRunning when the worker is stopped and with ErrTimeout when the
// round trip exceeds the bridge timeout or ctx's deadline. A closure that
// was accepted before a timeout still runs; its result is discarded.
func (b *Bridge) Do(ctx context.Context, fn func() error) error {
	b.mu.Lock()
	calls, quit := b.calls, b.quit
	b.mu.Unlock()
	if quit == nil {
		return ErrNotRunning
	}

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	c := call{fn: fn, done: make(chan error, 1)}
	select {
	case calls <- c:
	case <-quit:
		return ErrNotRunning
	case <-ctx.Done():
		return ctxErr(ctx)
	}

	select {
	case err := <-c.done:
		return err
	case <-ctx.Done():
		return ctxErr(ctx)
	}
}

func ctxErr(ctx context.Context) error {
	err := ctx.Err()
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}
