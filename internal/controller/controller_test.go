package controller

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/artnetfx/internal/artnet"
	"github.com/coreman2200/artnetfx/internal/render"
	"github.com/coreman2200/artnetfx/internal/session"
)

type fakeModel struct {
	calls    []string
	cfg      session.AddressConfig
	leds     int
	effect   render.Variant
	level    int
	freq     float64
	running  bool
	startErr error
}

func (m *fakeModel) SetAddressConfig(_ context.Context, cfg session.AddressConfig) error {
	m.calls = append(m.calls, "address")
	m.cfg = cfg
	return nil
}

func (m *fakeModel) RestartForLeds(_ context.Context, n int) error {
	m.calls = append(m.calls, "leds")
	m.leds = n
	return nil
}

func (m *fakeModel) SetEffect(v render.Variant) { m.effect = v }

func (m *fakeModel) SetStaticLevel(v int) {
	m.calls = append(m.calls, "level")
	m.level = v
}

func (m *fakeModel) SetBouncyFreq(hz float64) {
	m.calls = append(m.calls, "bouncy")
	m.freq = hz
}

func (m *fakeModel) SetGradientSpeed(hz float64) {
	m.calls = append(m.calls, "gradient")
	m.freq = hz
}

func (m *fakeModel) SetChaseFreq(hz float64) {
	m.calls = append(m.calls, "chase")
	m.freq = hz
}

func (m *fakeModel) Running() bool { return m.running }

func (m *fakeModel) Start(context.Context) error {
	m.calls = append(m.calls, "start")
	if m.startErr != nil {
		return m.startErr
	}
	m.running = true
	return nil
}

func TestApplyPlayers(t *testing.T) {
	tests := []struct {
		id     int
		label  string
		effect render.Variant
		param  string
		level  int
	}{
		{1, "SNAP_ON", render.Static, "level", 255},
		{2, "SNAP_OFF", render.Static, "level", 0},
		{3, "BOUNCY", render.Bouncy, "bouncy", 0},
		{4, "GRADIENT", render.Gradient, "gradient", 0},
		{5, "CHASE", render.Chase, "chase", 0},
	}
	for _, tc := range tests {
		t.Run(tc.label, func(t *testing.T) {
			m := &fakeModel{}
			res, err := New(m).Apply(context.Background(), Request{
				PlayerID: tc.id, Leds: 4, Freq: 1.23456, Address: 9, Universe: 3,
			})
			require.NoError(t, err)
			assert.Equal(t, tc.label, res.Player)
			assert.Equal(t, tc.effect, m.effect)
			assert.Equal(t, []string{"address", "leds", tc.param, "start"}, m.calls)
			if tc.param == "level" {
				assert.Equal(t, tc.level, m.level)
			} else {
				assert.Equal(t, 1.23456, m.freq)
			}
			assert.Equal(t, 1.2346, res.FrequencyHz)
			assert.Equal(t, DMX{Address: 9, Universe: 3, Channels: 16}, res.DMX)
		})
	}
}

func TestApplyDoesNotRestartRunningModel(t *testing.T) {
	m := &fakeModel{running: true}
	_, err := New(m).Apply(context.Background(), Request{PlayerID: 3, Leds: 1, Freq: 1, Address: 1})
	require.NoError(t, err)
	assert.NotContains(t, m.calls, "start")
}

func TestApplyUnknownPlayer(t *testing.T) {
	m := &fakeModel{effect: render.Gradient}
	_, err := New(m).Apply(context.Background(), Request{PlayerID: 99, Leds: 2, Freq: 1, Address: 1, Universe: 0})

	var unknown *UnknownPlayerError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, 99, unknown.ID)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, unknown.Allowed)

	// addressing still applied, effect untouched, nothing started
	assert.Equal(t, []string{"address", "leds"}, m.calls)
	assert.Equal(t, 2, m.leds)
	assert.Equal(t, session.AddressConfig{Universe: 0, Address: 1}, m.cfg)
	assert.Equal(t, render.Gradient, m.effect)

	b, err := json.Marshal(unknown)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"unknown player_id 99","allowed":[1,2,3,4,5]}`, string(b))
}

func TestApplyStartError(t *testing.T) {
	m := &fakeModel{startErr: session.ErrTransportUnavailable}
	_, err := New(m).Apply(context.Background(), Request{PlayerID: 1, Leds: 1, Address: 1})
	assert.ErrorIs(t, err, session.ErrTransportUnavailable)
}

func TestPlayers(t *testing.T) {
	ps := Players()
	require.Len(t, ps, 5)
	for i, p := range ps {
		assert.Equal(t, i+1, p.ID)
	}
	assert.Equal(t, "CHASE", ps[4].Label)
}

func TestApplyEndToEnd(t *testing.T) {
	sim := artnet.NewSim()
	s := session.New(sim, session.Options{Host: "127.0.0.1", Rate: 100 * physic.Hertz})
	ctx := context.Background()
	defer s.Close(ctx)
	c := New(s)

	res, err := c.Apply(ctx, Request{PlayerID: 1, Leds: 3, Freq: 2.0, Address: 5, Universe: 1})
	require.NoError(t, err)

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"player":"SNAP_ON","leds":3,"dmx":{"address":5,"universe":1,"channels":12},"frequency_hz":2.0}`, string(b))
	assert.True(t, s.Running())
	assert.Equal(t, render.Static, s.Effect())
	assert.Equal(t, 255, s.EffectState().StaticLevel)
	assert.Equal(t, 3, s.Leds())

	_, err = c.Apply(ctx, Request{PlayerID: 99, Leds: 2, Freq: 1.0, Address: 1, Universe: 0})
	var unknown *UnknownPlayerError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, unknown.Allowed)
	assert.Equal(t, 2, s.Leds())
	assert.Equal(t, session.AddressConfig{Universe: 0, Address: 1}, s.AddressConfig())
	assert.Equal(t, render.Static, s.Effect())
	assert.Equal(t, 255, s.EffectState().StaticLevel)
	assert.True(t, s.Running())
}
