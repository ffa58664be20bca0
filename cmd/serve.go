package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/icco/padcomposer/internal/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the composer as a JSON HTTP API",
	Long: `Serve the composer over HTTP for a browser client.

The API exposes the composer state, pad presses, recording and playback toggles,
note editing, melody generation, the saved compositions and exports under /api.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&listenAddr, "addr", "a", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
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

	addr := listenAddr
	if addr == "" {
		addr = cfg.ListenAddr
	}
	return server.New(a.ctrl, logrus.StandardLogger()).Run(ctx, addr)
}
