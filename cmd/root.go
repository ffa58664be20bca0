package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/icco/padcomposer/internal/audio"
	"github.com/icco/padcomposer/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
	backend  string
	midiPort string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "padcomposer",
	Short: "A pad-based melody composer",
	Long: `padcomposer is a melody composer built around a grid of pads.

Tap pads to play and record notes, generate random melodies in a scale, manage
named compositions and play them back or export them as JSON note lists and
MIDI files. It runs as a terminal UI or as an HTTP API for a browser client.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if cmd.Flags().Changed("audio") {
			cfg.Audio = audio.Backend(backend)
		}
		if cmd.Flags().Changed("midi-port") {
			cfg.MIDIPort = midiPort
		}
		return cfg.Validate()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.config/padcomposer/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&backend, "audio", "synth", "audio output: synth, midi or silent")
	rootCmd.PersistentFlags().StringVar(&midiPort, "midi-port", "", "MIDI output port name for --audio midi (default first port)")
}

// setupLogging applies the configured level. Interactive commands own the
// terminal, so their logs go to the configured file, or a file next to the
// config when none is set.
func setupLogging(interactive bool) (io.Closer, error) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	path := cfg.LogFile
	if path == "" && interactive {
		dir, err := config.Dir()
		if err != nil {
			logrus.SetOutput(io.Discard)
			return io.NopCloser(nil), nil
		}
		path = filepath.Join(dir, "padcomposer.log")
	}
	if path == "" {
		logrus.SetOutput(os.Stderr)
		return io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec // configured log path
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	logrus.SetOutput(f)
	return f, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
