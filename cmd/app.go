package cmd

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/icco/padcomposer/internal/audio"
	"github.com/icco/padcomposer/internal/composer"
	"github.com/icco/padcomposer/internal/library"
	"github.com/icco/padcomposer/internal/store"
	"github.com/icco/padcomposer/internal/timeline"
	"github.com/icco/padcomposer/internal/transport"
	"github.com/sirupsen/logrus"
)

// app is a running composer: engine, clock and controller.
type app struct {
	ctrl   *composer.Controller
	engine audio.Engine
	lib    *library.Library
	cancel context.CancelFunc
	done   chan error
}

type appOptions struct {
	backend   audio.Backend
	exportDir string
	seed      int64
}

// newApp wires a controller from the loaded config. The transport clock runs
// on the engine clock so scheduled notes land on engine time.
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	log := logrus.StandardLogger()

	backend := opts.backend
	if backend == "" {
		backend = cfg.Audio
	}
	engine, err := audio.Open(audio.Options{Backend: backend, MIDIPort: cfg.MIDIPort, Log: log})
	if err != nil {
		return nil, err
	}

	lib := libraryFromConfig()
	st := store.New(lib.Load(), time.Now, log)
	st.SetTempo(cfg.Defaults.Tempo)
	st.SetOctave(cfg.Defaults.Octave)
	if err := st.SetScale(cfg.Defaults.Scale); err != nil {
		closeQuietly(engine, "audio engine", log)
		return nil, err
	}
	if _, err := st.SetInstrument(cfg.Defaults.Instrument); err != nil {
		closeQuietly(engine, "audio engine", log)
		return nil, err
	}
	if cfg.Defaults.Metronome {
		st.ToggleMetronome()
	}

	clock := transport.NewClock(engine.Now, log)

	exportDir := opts.exportDir
	if exportDir == "" {
		exportDir = cfg.ExportDir
	}
	seed := opts.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	ctrl := composer.New(composer.Options{
		Store:     st,
		Library:   lib,
		Engine:    engine,
		Transport: clock,
		ExportDir: exportDir,
		Rand:      rand.New(rand.NewSource(seed)), //nolint:gosec // melodies need no crypto randomness
		Log:       log,
	})

	ctx, cancel := context.WithCancel(ctx)
	a := &app{ctrl: ctrl, engine: engine, lib: lib, cancel: cancel, done: make(chan error, 1)}
	go func() { a.done <- clock.Run(ctx) }()
	return a, nil
}

// closeQuietly closes c on an error path, logging a failure instead of
// returning it.
func closeQuietly(c io.Closer, what string, log logrus.FieldLogger) {
	if err := c.Close(); err != nil {
		log.WithError(err).WithField("resource", what).Warn("close failed")
	}
}

func libraryFromConfig() *library.Library {
	return library.New(cfg.LibraryPath, logrus.StandardLogger())
}

// close stops playback, the clock and the engine.
func (a *app) close() error {
	a.ctrl.Close()
	a.cancel()
	<-a.done
	if err := a.engine.Close(); err != nil {
		return fmt.Errorf("closing audio: %w", err)
	}
	return nil
}

// findComposition resolves a saved composition by id, or by name ignoring
// case.
func findComposition(list []timeline.Composition, ref string) (timeline.Composition, error) {
	if i := store.FindByID(list, ref); i >= 0 {
		return list[i], nil
	}
	for _, c := range list {
		if strings.EqualFold(c.Name, ref) {
			return c, nil
		}
	}
	return timeline.Composition{}, fmt.Errorf("no saved composition %q", ref)
}

// waitForPlayback blocks until playback ends or ctx is done.
func waitForPlayback(ctx context.Context, ctrl *composer.Controller) {
	ended := make(chan struct{})
	var once sync.Once
	unsub := ctrl.Store().Subscribe(func(st store.State) {
		if !st.Playing {
			once.Do(func() { close(ended) })
		}
	})
	defer unsub()

	// Playback may already be over.
	if !ctrl.Playing() {
		return
	}
	select {
	case <-ended:
	case <-ctx.Done():
		ctrl.Stop()
	}
}
