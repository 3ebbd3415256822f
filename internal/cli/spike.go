package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/throttlelab/throttle/internal/daemon"
	"github.com/throttlelab/throttle/internal/tui"
)

var (
	spikeFactor   float64
	spikeDuration string
)

var spikeCmd = &cobra.Command{
	Use:   "spike",
	Short: "Arm a manual TPS spike on a running direct-mode scenario",
	Long: `Arm a manual TPS multiplier on a running direct-mode scenario, on
top of whatever the configured pattern already computes.

Examples:
  throttle spike                         # default factor and duration
  throttle spike --factor 5.0            # 5x TPS multiplier
  throttle spike --duration 1m           # spike for 1 minute
  throttle spike --factor 3.0 --duration 30s`,
	RunE: runSpike,
}

func init() {
	spikeCmd.Flags().Float64VarP(&spikeFactor, "factor", "f", 0, "TPS multiplier (default: daemon's configured default)")
	spikeCmd.Flags().StringVarP(&spikeDuration, "duration", "d", "", "Spike duration (e.g., 30s, 1m, 5m)")
	rootCmd.AddCommand(spikeCmd)
}

func runSpike(cmd *cobra.Command, args []string) error {
	if !daemon.IsRunning() {
		fmt.Println()
		fmt.Println(tui.WarningStyle.Render("  throttle is not running"))
		fmt.Println(tui.DimStyle.Render("  Start throttle first with: throttle run"))
		fmt.Println()
		return nil
	}

	var duration time.Duration
	if spikeDuration != "" {
		var err error
		duration, err = time.ParseDuration(spikeDuration)
		if err != nil {
			fmt.Println()
			fmt.Println(tui.ErrorStyle.Render("  Invalid duration format: " + spikeDuration))
			fmt.Println(tui.DimStyle.Render("  Use formats like: 30s, 1m, 5m, 1h"))
			fmt.Println()
			return nil
		}
	}

	payload, _ := json.Marshal(struct {
		Factor   float64       `json:"factor"`
		Duration time.Duration `json:"duration"`
	}{Factor: spikeFactor, Duration: duration})

	resp, err := daemon.SendCommand(daemon.Command{Type: "spike", Data: payload})
	if err != nil {
		return fmt.Errorf("daemon not running: %w", err)
	}
	if !resp.Success {
		fmt.Println()
		fmt.Println(tui.ErrorStyle.Render("  " + resp.Message))
		fmt.Println()
		return nil
	}

	fmt.Println()
	fmt.Println(tui.SuccessStyle.Render("  " + tui.CheckMark + " Manual spike armed!"))
	if spikeFactor > 0 {
		fmt.Println(tui.InfoStyle.Render(fmt.Sprintf("    Factor: %.1fx", spikeFactor)))
	} else {
		fmt.Println(tui.DimStyle.Render("    Factor: using daemon default"))
	}
	if duration > 0 {
		fmt.Println(tui.InfoStyle.Render(fmt.Sprintf("    Duration: %s", duration)))
	} else {
		fmt.Println(tui.DimStyle.Render("    Duration: using daemon default"))
	}
	fmt.Println()

	return nil
}
