// Package artnet is the frame transport: Art-Net nodes, universes and
// channels that carry DMX values to a fixture.
//
// Transport objects are not safe for concurrent use. Callers confine each
// node, and everything created from it, to a single goroutine.
package artnet

import (
	"errors"
	"time"
)

// Transport creates nodes.
type Transport interface {
	NewNode(host string, port int) (Node, error)
}

// Node is one fixture endpoint.
type Node interface {
	AddUniverse(id int) (Universe, error)
	Close() error
}

// Universe is one 512-slot segment of a node's channel space.
type Universe interface {
	AddChannel(start, width int) (Channel, error)
}

// Channel is a contiguous run of slots in a universe.
type Channel interface {
	// Fade moves the channel to values over d and returns once the
	// transition is complete. d == 0 writes immediately.
	Fade(values []byte, d time.Duration) error
}

var (
	ErrClosed        = errors.New("artnet: node closed")
	ErrBadUniverse   = errors.New("artnet: universe out of range")
	ErrBadChannel    = errors.New("artnet: channel out of range")
	ErrWidthMismatch = errors.New("artnet: value count does not match channel width")
)
