package cmd

import (
	"fmt"

	"github.com/icco/padcomposer/internal/audio"
	"github.com/spf13/cobra"
)

var (
	exportMIDI bool
	exportOut  string
)

var exportCmd = &cobra.Command{
	Use:   "export <name|id>",
	Short: "Export a saved composition",
	Long: `Export a saved composition as a JSON note list of pitch, time and duration,
and optionally as a Standard MIDI File.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().BoolVar(&exportMIDI, "midi", false, "also write a .mid file")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output directory (default from config)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	logs, err := setupLogging(false)
	if err != nil {
		return err
	}
	defer logs.Close() //nolint:errcheck // log file

	a, err := newApp(cmd.Context(), appOptions{backend: audio.BackendSilent, exportDir: exportOut})
	if err != nil {
		return err
	}
	defer a.close() //nolint:errcheck // best effort on exit

	c, err := findComposition(a.ctrl.State().Compositions, args[0])
	if err != nil {
		return err
	}
	a.ctrl.Load(c.ID)

	paths, n := a.ctrl.Export(exportMIDI)
	if n.Failed() {
		return fmt.Errorf("%s", n.Message)
	}
	for _, p := range paths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}
