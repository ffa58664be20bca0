package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/icco/padcomposer/internal/theory"
	"github.com/icco/padcomposer/internal/tui"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

var deviceName string

var virtualCmd = &cobra.Command{
	Use:   "virtual",
	Short: "Compose from a virtual MIDI input device",
	Long: `Create a virtual MIDI input device and run the pad composer on it.

The virtual device shows up as a MIDI output destination in other music software
and controllers. Notes received on any channel press and release pads, so a
keyboard can play and record into the composition.

Example:
  padcomposer virtual --name "Pad Composer In"
`,
	RunE: runVirtual,
}

func init() {
	virtualCmd.Flags().StringVarP(&deviceName, "name", "n", "Pad Composer In", "Name for the virtual MIDI device")
	rootCmd.AddCommand(virtualCmd)
}

func runVirtual(cmd *cobra.Command, args []string) error {
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

	driver, err := rtmididrv.New()
	if err != nil {
		return fmt.Errorf("failed to initialize MIDI driver: %w", err)
	}
	defer driver.Close() //nolint:errcheck // best effort on exit

	port, err := driver.OpenVirtualIn(deviceName)
	if err != nil {
		return fmt.Errorf("failed to create virtual MIDI port: %w", err)
	}
	defer port.Close() //nolint:errcheck // best effort on exit

	p := tea.NewProgram(tui.New(a.ctrl).WithInput(port.String()), tea.WithAltScreen())

	stop, err := port.Listen(padListener(p, logrus.StandardLogger()), drivers.ListenConfig{})
	if err != nil {
		return fmt.Errorf("failed to listen to MIDI port: %w", err)
	}
	defer stop()

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(c)
	go func() {
		if _, ok := <-c; ok {
			p.Send(tea.Quit())
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}

// sender is the part of tea.Program the listener needs.
type sender interface {
	Send(msg tea.Msg)
}

// padListener turns raw MIDI bytes into pad messages. Note on with velocity 0
// counts as note off, and all-notes-off (CC 123) releases the active pad.
func padListener(p sender, log logrus.FieldLogger) func(data []byte, timestamp int32) {
	var active string
	return func(data []byte, timestamp int32) {
		if len(data) < 1 {
			return
		}

		status := data[0]
		msgType := status & 0xF0

		switch msgType {
		case 0x90, 0x80: // Note On, Note Off
			if len(data) < 3 {
				return
			}
			pitch := theory.MIDINoteName(data[1])
			if msgType == 0x90 && data[2] > 0 {
				active = pitch
				p.Send(tui.PadDownMsg{Pitch: pitch})
				return
			}
			if pitch == active {
				active = ""
			}
			p.Send(tui.PadUpMsg{Pitch: pitch})
		case 0xB0: // Control Change
			if len(data) >= 3 && data[1] == 123 && active != "" {
				p.Send(tui.PadUpMsg{Pitch: active})
				active = ""
			}
		default:
			log.WithField("status", fmt.Sprintf("%#x", status)).Debug("ignoring MIDI message")
		}
	}
}
