package cmd

import (
	"fmt"
	"os"

	"github.com/icco/padcomposer/internal/audio"
	"github.com/icco/padcomposer/internal/export"
	"github.com/spf13/cobra"
)

var (
	genScale  string
	genOctave int
	genTempo  int
	genName   string
	genSave   bool
	genSeed   int64
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a random melody",
	Long: `Generate a random eight note melody in a scale and print it as a JSON note list.

Example:
  padcomposer generate --scale dorian --octave 3 --tempo 90 --save --name "Riff"
`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&genScale, "scale", "s", "", "scale (default from config)")
	generateCmd.Flags().IntVarP(&genOctave, "octave", "o", 0, "octave 2-6 (default from config)")
	generateCmd.Flags().IntVarP(&genTempo, "tempo", "t", 0, "tempo 40-240 (default from config)")
	generateCmd.Flags().StringVarP(&genName, "name", "n", "", "name for the saved composition")
	generateCmd.Flags().BoolVar(&genSave, "save", false, "save the melody to the library")
	generateCmd.Flags().Int64Var(&genSeed, "seed", 0, "random seed (default time based)")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	logs, err := setupLogging(false)
	if err != nil {
		return err
	}
	defer logs.Close() //nolint:errcheck // log file

	a, err := newApp(cmd.Context(), appOptions{backend: audio.BackendSilent, seed: genSeed})
	if err != nil {
		return err
	}
	defer a.close() //nolint:errcheck // best effort on exit

	ctrl := a.ctrl
	if genScale != "" {
		if err := ctrl.SetScale(genScale); err != nil {
			return err
		}
	}
	if genOctave != 0 {
		ctrl.SetOctave(genOctave)
	}
	if genTempo != 0 {
		ctrl.SetTempo(genTempo)
	}
	if genName != "" && !genSave {
		ctrl.Rename(genName)
	}
	if notes := ctrl.Generate(); notes == nil {
		return fmt.Errorf("no composition to generate into")
	}

	if genSave {
		// A first save names the composition after the time, so the
		// requested name is applied to the saved copy.
		n := ctrl.Save()
		if genName != "" && !n.Failed() {
			ctrl.Rename(genName)
			n = ctrl.Save()
		}
		if n.Failed() {
			return fmt.Errorf("%s", n.Message)
		}
		fmt.Fprintln(os.Stderr, n.Message)
	}

	return export.EncodeJSON(cmd.OutOrStdout(), *ctrl.State().Current)
}
