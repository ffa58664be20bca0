package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/icco/padcomposer/internal/tui"
	"github.com/spf13/cobra"
)

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Start the interactive pad composer",
	Long: `Start the pad composer with an interactive TUI interface.

Pads sound notes in the current scale and octave. Turn recording on to capture
taps as notes, then play, edit, save and export the composition.`,
	RunE: runCompose,
}

func init() {
	rootCmd.AddCommand(composeCmd)
}

func runCompose(cmd *cobra.Command, args []string) error {
	logs, err := setupLogging(true)
	if err != nil {
		return err
	}
	defer logs.Close() //nolint:errcheck // log file

	a, err := newApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.close() //nolint:errcheck // best effort on exit

	p := tea.NewProgram(tui.New(a.ctrl), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}
