package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved compositions",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	logs, err := setupLogging(false)
	if err != nil {
		return err
	}
	defer logs.Close() //nolint:errcheck // log file

	list := libraryFromConfig().Load()
	if len(list) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No saved compositions.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tNOTES\tLENGTH\tTEMPO\tSCALE\tINSTRUMENT")
	for _, c := range list {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.1fs\t%d\t%s\t%s\n",
			c.ID, c.Name, len(c.Notes), c.EndTime(), c.Tempo, c.Scale, c.Instrument)
	}
	return w.Flush()
}
