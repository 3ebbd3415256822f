package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/throttlelab/throttle/internal/daemon"
	"github.com/throttlelab/throttle/internal/tui"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Watch a running throttle instance live",
	Long: `Open a live dashboard over a running throttle daemon: goal TPS,
concurrency and a rolling concurrency sparkline, refreshed once a
second over the control socket.`,
	RunE: runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, args []string) error {
	if !daemon.IsRunning() {
		fmt.Println()
		fmt.Println(tui.ErrorStyle.Render("  ✗ throttle is not running"))
		fmt.Println(tui.DimStyle.Render("  Start with: throttle run"))
		fmt.Println()
		return nil
	}

	poll := func() (tui.StatusSnapshot, error) {
		status, err := fetchStatus()
		if err != nil {
			return tui.StatusSnapshot{}, err
		}
		return tui.StatusSnapshot{
			Running:     status.Running,
			Triggered:   status.Triggered,
			Scenario:    status.Scenario,
			Uptime:      status.Uptime,
			Concurrency: status.Concurrency,
			GoalTps:     status.GoalTps,
			Stable:      status.Stable,
			LastError:   status.LastError,
		}, nil
	}

	m := tui.NewModel(poll)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
