package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/throttlelab/throttle/internal/daemon"
	"github.com/throttlelab/throttle/internal/tui"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the throttle daemon",
	Long:  `Stop the running throttle daemon gracefully over its control socket.`,
	RunE:  runStop,
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	if !daemon.IsRunning() {
		fmt.Println()
		fmt.Println(tui.WarningStyle.Render("  throttle is not running"))
		fmt.Println()
		return nil
	}

	resp, err := daemon.SendCommand(daemon.Command{Type: "stop"})
	if err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}

	if resp.Success {
		fmt.Println()
		fmt.Println(tui.SuccessStyle.Render("  " + tui.CheckMark + " " + resp.Message))
		fmt.Println()
	} else {
		fmt.Println(tui.ErrorStyle.Render("  " + resp.Message))
	}

	return nil
}
