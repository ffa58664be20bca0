package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/icco/padcomposer/internal/composer"
	"github.com/icco/padcomposer/internal/export"
	"github.com/icco/padcomposer/internal/timeline"
	"github.com/spf13/cobra"
)

var playMetronome bool

var playCmd = &cobra.Command{
	Use:   "play <name|id|file.json|file.mid>",
	Short: "Play a composition to the end",
	Long: `Play a saved composition, an exported JSON note list or a MIDI file through the
configured audio output, then exit.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlay,
}

func init() {
	playCmd.Flags().BoolVarP(&playMetronome, "metronome", "m", false, "click on every beat")
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	logs, err := setupLogging(false)
	if err != nil {
		return err
	}
	defer logs.Close() //nolint:errcheck // log file

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.close() //nolint:errcheck // best effort on exit

	if err := openForPlayback(a.ctrl, args[0]); err != nil {
		return err
	}
	if playMetronome != a.ctrl.State().Metronome {
		a.ctrl.ToggleMetronome()
	}

	comp := *a.ctrl.State().Current
	fmt.Fprintf(cmd.OutOrStdout(), "Playing %s (%d notes, %.1fs)\n", comp.Name, len(comp.Notes), comp.EndTime())
	if !a.ctrl.Play() {
		return fmt.Errorf("nothing to play")
	}
	waitForPlayback(ctx, a.ctrl)
	return nil
}

// openForPlayback makes ref the current composition. Files are imported into
// a new unsaved composition named after the file.
func openForPlayback(ctrl *composer.Controller, ref string) error {
	var (
		notes []timeline.Note
		tempo int
		err   error
	)
	switch strings.ToLower(filepath.Ext(ref)) {
	case ".json":
		notes, err = export.ImportFile(ref)
	case ".mid", ".midi":
		var f *os.File
		f, err = os.Open(ref) //nolint:gosec // user supplied path
		if err != nil {
			return fmt.Errorf("opening %s: %w", ref, err)
		}
		defer f.Close() //nolint:errcheck // read only
		notes, tempo, err = export.ImportMIDI(f)
	default:
		c, err := findComposition(ctrl.State().Compositions, ref)
		if err != nil {
			return err
		}
		ctrl.Load(c.ID)
		return nil
	}
	if err != nil {
		return err
	}

	ctrl.NewComposition()
	ctrl.Rename(strings.TrimSuffix(filepath.Base(ref), filepath.Ext(ref)))
	if tempo != 0 {
		ctrl.SetTempo(tempo)
	}
	ctrl.Store().AppendNotes(notes)
	return nil
}
