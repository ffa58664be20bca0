package cmd

import (
	"fmt"

	"github.com/icco/padcomposer/internal/audio"
	"github.com/spf13/cobra"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List MIDI output ports",
	Long:  `List the MIDI output ports that --audio midi --midi-port can name.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		names := audio.OutPorts()
		if len(names) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No MIDI outputs found.")
			return nil
		}
		for i, name := range names {
			fmt.Fprintf(cmd.OutOrStdout(), "%d: %s\n", i, name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(portsCmd)
}
