package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0644))
	return p
}

func TestLoadOverlaysDefaults(t *testing.T) {
	p := writeFile(t, "driver: sim\nleds: 12\naddress: 9\nbridge_timeout: 500ms\n")

	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "sim", c.Driver)
	assert.Equal(t, 12, c.Leds)
	assert.Equal(t, 9, c.Address)
	assert.Equal(t, 500*time.Millisecond, c.BridgeTimeout)

	// untouched keys keep defaults
	assert.Equal(t, 6454, c.Port)
	assert.Equal(t, 1500*time.Millisecond, c.JoinTimeout)
	assert.Equal(t, 30*physic.Hertz, c.Rate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadBadYAML(t *testing.T) {
	_, err := Load(writeFile(t, "leds: [1, 2\n"))
	assert.Error(t, err)
}

func TestApplyEnvOverridesFile(t *testing.T) {
	c, err := Load(writeFile(t, "universe: 2\nhost: 10.0.0.5\n"))
	require.NoError(t, err)

	t.Setenv("ARTNETFX_UNIVERSE", "7")
	t.Setenv("ARTNETFX_FPS", "44")
	t.Setenv("ARTNETFX_STARTUP_PLAYER", "5")
	require.NoError(t, ApplyEnv(c))

	assert.Equal(t, 7, c.Universe)
	assert.Equal(t, "10.0.0.5", c.Host, "unset variables leave the value alone")
	assert.Equal(t, 44*physic.Hertz, c.Rate())
	assert.Equal(t, 5, c.Startup.Player)
}

func TestApplyEnvBadValue(t *testing.T) {
	c := Defaults()
	t.Setenv("ARTNETFX_LEDS", "many")
	assert.Error(t, ApplyEnv(&c))
}

func TestSaveRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out.yaml")
	c := Defaults()
	c.Leds, c.Universe, c.Address = 24, 3, 101
	require.NoError(t, Save(p, &c))

	got, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, c, *got)
}

func TestRateNonPositive(t *testing.T) {
	c := Defaults()
	c.FPS = 0
	assert.Zero(t, c.Rate())
}
