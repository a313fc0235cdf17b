// Package config loads blofeldctl settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"blofeldctl/internal/session"
)

// EnvPath overrides the config file location.
const EnvPath = "BLOFELDCTL_CONFIG"

type MIDI struct {
	// PortHint is matched against port names when In or Out are empty.
	PortHint string `yaml:"port_hint"`
	In       string `yaml:"in_port,omitempty"`
	Out      string `yaml:"out_port,omitempty"`
	// Channel is the 0-based channel used for notes and CCs.
	Channel uint8 `yaml:"channel"`
	// DeviceID pins the SysEx address; 127 lets the session discover it.
	DeviceID uint8 `yaml:"device_id"`
}

type Log struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type Config struct {
	MIDI   MIDI           `yaml:"midi"`
	Timing session.Timing `yaml:"timing"`
	Log    Log            `yaml:"log"`
}

func Default() *Config {
	return &Config{
		MIDI: MIDI{
			PortHint: "blofeld",
			// Blofeld listens on channel 5 by default.
			Channel:  4,
			DeviceID: 0x7F,
		},
		Timing: session.DefaultTiming(),
		Log:    Log{Level: "info"},
	}
}

// DefaultPath returns $BLOFELDCTL_CONFIG or the per-user config file.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvPath); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "blofeldctl", "config.yaml"), nil
}

// Load reads path, returning defaults if the file does not exist. Keys absent
// from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Timing = cfg.Timing.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.MIDI.Channel > 15 {
		return fmt.Errorf("midi.channel %d out of range 0-15", c.MIDI.Channel)
	}
	if c.MIDI.DeviceID > 0x7F {
		return fmt.Errorf("midi.device_id %d out of range 0-127", c.MIDI.DeviceID)
	}
	if c.MIDI.PortHint == "" && (c.MIDI.In == "" || c.MIDI.Out == "") {
		return errors.New("midi.port_hint is required unless in_port and out_port are both set")
	}
	return nil
}

// Save writes c to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
