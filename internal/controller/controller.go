// Package controller maps a coarse player selector and raw parameters onto
// session configuration.
package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/artnetfx/internal/dmx"
	"github.com/coreman2200/artnetfx/internal/render"
	"github.com/coreman2200/artnetfx/internal/session"
)

// Model is the part of a session the controller drives.
type Model interface {
	SetAddressConfig(ctx context.Context, cfg session.AddressConfig) error
	RestartForLeds(ctx context.Context, n int) error
	SetEffect(v render.Variant)
	SetStaticLevel(v int)
	SetBouncyFreq(hz float64)
	SetGradientSpeed(hz float64)
	SetChaseFreq(hz float64)
	Running() bool
	Start(ctx context.Context) error
}

// Player is one entry of the selector table.
type Player struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
	apply func(m Model, freq float64)
}

var players = map[int]Player{
	1: {ID: 1, Label: "SNAP_ON", apply: func(m Model, _ float64) {
		m.SetEffect(render.Static)
		m.SetStaticLevel(255)
	}},
	2: {ID: 2, Label: "SNAP_OFF", apply: func(m Model, _ float64) {
		m.SetEffect(render.Static)
		m.SetStaticLevel(0)
	}},
	3: {ID: 3, Label: "BOUNCY", apply: func(m Model, freq float64) {
		m.SetEffect(render.Bouncy)
		m.SetBouncyFreq(freq)
	}},
	4: {ID: 4, Label: "GRADIENT", apply: func(m Model, freq float64) {
		m.SetEffect(render.Gradient)
		m.SetGradientSpeed(freq)
	}},
	5: {ID: 5, Label: "CHASE", apply: func(m Model, freq float64) {
		m.SetEffect(render.Chase)
		m.SetChaseFreq(freq)
	}},
}

// Players returns the selector table ordered by id.
func Players() []Player {
	out := make([]Player, 0, len(players))
	for _, p := range players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func allowedIDs() []int {
	ids := make([]int, 0, len(players))
	for id := range players {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

type Request struct {
	PlayerID int     `json:"player_id"`
	Leds     int     `json:"leds"`
	Freq     float64 `json:"freq"`
	Address  int     `json:"address"`
	Universe int     `json:"universe"`
}

type DMX struct {
	Address  int `json:"address"`
	Universe int `json:"universe"`
	Channels int `json:"channels"`
}

type Result struct {
	Player      string  `json:"player"`
	Leds        int     `json:"leds"`
	DMX         DMX     `json:"dmx"`
	FrequencyHz float64 `json:"frequency_hz"`
}

// UnknownPlayerError is returned for ids outside the selector table.
type UnknownPlayerError struct {
	ID      int
	Allowed []int
}

func (e *UnknownPlayerError) Error() string {
	return fmt.Sprintf("unknown player_id %d", e.ID)
}

func (e *UnknownPlayerError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Error   string `json:"error"`
		Allowed []int  `json:"allowed"`
	}{e.Error(), e.Allowed})
}

// Controller holds no state of its own; every Apply is independent.
type Controller struct {
	model Model
}

func New(m Model) *Controller {
	return &Controller{model: m}
}

// Apply configures addressing and LED count, then, when the player id is
// known, selects its effect and starts the session if needed. Addressing
// and LED count are applied even for unknown ids.
func (c *Controller) Apply(ctx context.Context, req Request) (Result, error) {
	cfg := session.AddressConfig{Universe: req.Universe, Address: req.Address}
	if err := c.model.SetAddressConfig(ctx, cfg); err != nil {
		return Result{}, fmt.Errorf("apply address: %w", err)
	}
	if err := c.model.RestartForLeds(ctx, req.Leds); err != nil {
		return Result{}, fmt.Errorf("apply leds: %w", err)
	}

	p, ok := players[req.PlayerID]
	if !ok {
		return Result{}, &UnknownPlayerError{ID: req.PlayerID, Allowed: allowedIDs()}
	}

	log.Info().Str("player", p.Label).Float64("freq", req.Freq).Msg("setting effect")
	p.apply(c.model, req.Freq)

	if !c.model.Running() {
		if err := c.model.Start(ctx); err != nil {
			return Result{}, err
		}
	}

	return Result{
		Player: p.Label,
		Leds:   req.Leds,
		DMX: DMX{
			Address:  req.Address,
			Universe: req.Universe,
			Channels: dmx.Width(req.Leds),
		},
		FrequencyHz: math.Round(req.Freq*1e4) / 1e4,
	}, nil
}
