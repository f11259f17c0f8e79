package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"
)

// Startup selects a player to apply once the daemon is up. Player 0 means
// the session stays idle until a control message arrives.
type Startup struct {
	Player int     `yaml:"player" env:"ARTNETFX_STARTUP_PLAYER"`
	Freq   float64 `yaml:"freq" env:"ARTNETFX_STARTUP_FREQ"`
}

type Config struct {
	Driver string  `yaml:"driver" env:"ARTNETFX_DRIVER"` // "artnet" | "sim"
	Host   string  `yaml:"host" env:"ARTNETFX_HOST"`
	Port   int     `yaml:"port" env:"ARTNETFX_PORT"`
	FPS    float64 `yaml:"fps" env:"ARTNETFX_FPS"`

	Leds     int `yaml:"leds" env:"ARTNETFX_LEDS"`
	Universe int `yaml:"universe" env:"ARTNETFX_UNIVERSE"`
	Address  int `yaml:"address" env:"ARTNETFX_ADDRESS"`

	HTTPAddr string `yaml:"http_addr" env:"ARTNETFX_HTTP_ADDR"`
	LogLevel string `yaml:"log_level" env:"ARTNETFX_LOG_LEVEL"`

	BridgeTimeout time.Duration `yaml:"bridge_timeout" env:"ARTNETFX_BRIDGE_TIMEOUT"`
	JoinTimeout   time.Duration `yaml:"join_timeout" env:"ARTNETFX_JOIN_TIMEOUT"`

	Startup Startup `yaml:"startup,omitempty"`
}

func Defaults() Config {
	return Config{
		Driver:        "artnet",
		Host:          "192.168.178.99",
		Port:          6454,
		FPS:           30,
		Leds:          1,
		Universe:      0,
		Address:       1,
		HTTPAddr:      ":8080",
		LogLevel:      "info",
		BridgeTimeout: 2 * time.Second,
		JoinTimeout:   1500 * time.Millisecond,
	}
}

// Load reads a YAML file over Defaults. Keys missing from the file keep
// their default.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Defaults()
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// ApplyEnv overrides fields whose ARTNETFX_* variable is set.
func ApplyEnv(c *Config) error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Rate is FPS as a frequency; non-positive values yield 0.
func (c *Config) Rate() physic.Frequency {
	if c.FPS <= 0 {
		return 0
	}
	return physic.Frequency(c.FPS * float64(physic.Hertz))
}
