package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/icco/padcomposer/internal/audio"
	"github.com/icco/padcomposer/internal/theory"
)

func TestLoadMissingReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	def := DefaultConfig()
	if cfg.Audio != def.Audio || cfg.ListenAddr != def.ListenAddr || cfg.Defaults != def.Defaults {
		t.Errorf("cfg = %+v, want %+v", cfg, def)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
audio: silent
listen_addr: ":9000"
defaults:
  scale: dorian
  tempo: 500
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Audio != audio.BackendSilent {
		t.Errorf("audio = %q", cfg.Audio)
	}
	if cfg.ListenAddr != ":9000" {
		t.Errorf("listen_addr = %q", cfg.ListenAddr)
	}
	if cfg.Defaults.Scale != string(theory.Dorian) {
		t.Errorf("scale = %q", cfg.Defaults.Scale)
	}
	if cfg.Defaults.Tempo != 240 {
		t.Errorf("tempo = %d, want clamped 240", cfg.Defaults.Tempo)
	}
	if cfg.Defaults.Octave != 4 || cfg.LogLevel != "info" {
		t.Errorf("unset fields lost their defaults: %+v", cfg)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"backend", "audio: speakers\n", audio.ErrUnknownBackend},
		{"scale", "defaults:\n  scale: blues\n", theory.ErrUnknownScale},
		{"level", "log_level: loud\n", nil},
		{"yaml", "audio: [\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.data), 0o600); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.MIDIPort = "IAC Driver Bus 1"
	cfg.Defaults.Metronome = true
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if *got != *cfg {
		t.Errorf("got %+v, want %+v", got, cfg)
	}
}
