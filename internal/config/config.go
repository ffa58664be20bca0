// Package config loads padcomposer settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/icco/padcomposer/internal/audio"
	"github.com/icco/padcomposer/internal/theory"
	"github.com/icco/padcomposer/internal/timeline"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Defaults for a new composition.
type Defaults struct {
	Tempo      int    `yaml:"tempo"`
	Scale      string `yaml:"scale"`
	Octave     int    `yaml:"octave"`
	Instrument string `yaml:"instrument"`
	Metronome  bool   `yaml:"metronome"`
}

// Config is the main configuration structure
type Config struct {
	LibraryPath string        `yaml:"library_path"`
	ExportDir   string        `yaml:"export_dir"`
	Audio       audio.Backend `yaml:"audio"`
	MIDIPort    string        `yaml:"midi_port,omitempty"`
	ListenAddr  string        `yaml:"listen_addr"`
	LogLevel    string        `yaml:"log_level"`
	LogFile     string        `yaml:"log_file,omitempty"`
	Defaults    Defaults      `yaml:"defaults"`
}

// Dir returns the config directory path
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "padcomposer"), nil
}

// Path returns the full path to config.yaml
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	library := "compositions.json"
	if dir, err := Dir(); err == nil {
		library = filepath.Join(dir, "compositions.json")
	}
	return &Config{
		LibraryPath: library,
		ExportDir:   ".",
		Audio:       audio.BackendSynth,
		ListenAddr:  "localhost:8080",
		LogLevel:    "info",
		Defaults: Defaults{
			Tempo:      timeline.DefaultTempo,
			Scale:      string(theory.Chromatic),
			Octave:     timeline.DefaultOctave,
			Instrument: string(timeline.Synth),
		},
	}
}

// Load reads the config at path, or returns defaults if the file does not
// exist. An empty path means the default location. Fields missing from the
// file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		p, err := Path()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	data, err := os.ReadFile(path) //nolint:gosec // user config file
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to path, or the default location when path is
// empty.
func (c *Config) Save(path string) error {
	if path == "" {
		p, err := Path()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Validate checks enumerated fields and clamps numeric defaults into range.
func (c *Config) Validate() error {
	if _, err := audio.ParseBackend(string(c.Audio)); err != nil {
		return err
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if _, err := theory.ParseScale(c.Defaults.Scale); err != nil {
		return fmt.Errorf("defaults.scale: %w", err)
	}
	if _, err := timeline.ParseInstrument(c.Defaults.Instrument); err != nil {
		return fmt.Errorf("defaults.instrument: %w", err)
	}
	if c.LibraryPath == "" {
		return errors.New("library_path must not be empty")
	}
	c.Defaults.Tempo = timeline.ClampTempo(c.Defaults.Tempo)
	c.Defaults.Octave = timeline.ClampOctave(c.Defaults.Octave)
	return nil
}
