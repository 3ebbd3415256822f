package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/throttlelab/throttle/internal/daemon"
	"github.com/throttlelab/throttle/internal/tui"
)

var (
	statusJSON  bool
	statusWatch bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show throttle status",
	Long: `Display the current status of the throttle daemon.

Examples:
  throttle status          Show current status
  throttle status -w       Watch status (refresh every second)
  throttle status --json   Output as JSON`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
	statusCmd.Flags().BoolVarP(&statusWatch, "watch", "w", false, "Watch mode (refresh every second)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if statusWatch {
		return watchStatus()
	}
	return showStatus()
}

func fetchStatus() (daemon.Status, error) {
	resp, err := daemon.SendCommand(daemon.Command{Type: "status"})
	if err != nil {
		return daemon.Status{}, err
	}
	statusData, _ := json.Marshal(resp.Data)
	var status daemon.Status
	if err := json.Unmarshal(statusData, &status); err != nil {
		return daemon.Status{}, err
	}
	return status, nil
}

func showStatus() error {
	status, err := fetchStatus()
	if err != nil {
		fmt.Println()
		fmt.Println(tui.ErrorStyle.Render("  ✗ throttle is not running"))
		fmt.Println()
		fmt.Println(tui.DimStyle.Render("  Start with: throttle run"))
		fmt.Println()
		return nil
	}

	if statusJSON {
		output, _ := json.MarshalIndent(status, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	printStatus(status)
	return nil
}

func watchStatus() error {
	fmt.Print("\033[H\033[2J")

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		fmt.Print("\033[H")

		status, err := fetchStatus()
		if err != nil {
			fmt.Println(tui.ErrorStyle.Render("Connection lost. Daemon may have stopped."))
			return nil
		}

		printStatus(status)
		fmt.Println()
		fmt.Println(tui.DimStyle.Render("Press Ctrl+C to exit watch mode"))

		<-ticker.C
	}
}

func printStatus(status daemon.Status) {
	fmt.Println()

	header := lipgloss.JoinHorizontal(lipgloss.Center, tui.MiniLogo(), "  ", tui.TitleStyle.Render(" STATUS "))
	fmt.Println(header)
	fmt.Println()

	var statusIcon, statusText string
	switch {
	case status.Triggered:
		statusIcon = tui.SuccessStyle.Render(tui.TriggerPulled)
		statusText = tui.SuccessStyle.Render("RUNNING")
	case status.Running:
		statusIcon = tui.WarningStyle.Render(tui.TriggerReady)
		statusText = tui.WarningStyle.Render("ARMED (waiting for trigger)")
	default:
		statusIcon = tui.ErrorStyle.Render(tui.CrossMark)
		statusText = tui.ErrorStyle.Render("STOPPED")
	}

	fmt.Printf("  %s %s\n", statusIcon, statusText)
	fmt.Println()

	var content strings.Builder
	content.WriteString(tui.SubtitleStyle.Render("Scenario"))
	content.WriteString("\n")
	content.WriteString(fmt.Sprintf("  %s\n", tui.ValueStyle.Render(status.Scenario)))
	content.WriteString("\n")

	content.WriteString(tui.SubtitleStyle.Render("Control loop"))
	content.WriteString("\n")
	content.WriteString(fmt.Sprintf("  Goal TPS:    %s\n", tui.ValueStyle.Render(fmt.Sprintf("%.0f", status.GoalTps))))
	content.WriteString(fmt.Sprintf("  Concurrency: %s\n", tui.ValueStyle.Render(fmt.Sprintf("%d", status.Concurrency))))
	content.WriteString(fmt.Sprintf("  Stable:      %s\n", tui.ValueStyle.Render(fmt.Sprintf("%v", status.Stable))))
	content.WriteString("\n")

	if status.LastError != "" {
		content.WriteString(tui.ErrorStyle.Render("  last error: " + status.LastError))
		content.WriteString("\n\n")
	}

	content.WriteString(tui.SubtitleStyle.Render("Uptime"))
	content.WriteString("\n")
	content.WriteString(fmt.Sprintf("  %s\n", tui.ValueStyle.Render(status.Uptime)))

	box := tui.BorderStyle.Width(50).Render(content.String())
	fmt.Println(box)
}

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Pull the trigger to start the configured scenarios",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := daemon.SendCommand(daemon.Command{Type: "trigger"})
		if err != nil {
			return fmt.Errorf("daemon not running: %w", err)
		}

		if resp.Success {
			fmt.Println()
			fmt.Println(tui.SuccessStyle.Render("  " + tui.TriggerPulled + " Trigger pulled!"))
			fmt.Println()
		} else {
			fmt.Println(tui.ErrorStyle.Render("  " + resp.Message))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(triggerCmd)
}
