package cli

import (
	"fmt"
	"os"
	"runtime"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/throttlelab/throttle/internal/tui"
)

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "throttle",
	Short: "Closed-loop load generation",
	Long: `
 _   _
| |_| |__  _ __ ___ | |_| |_| | ___
| __| '_ \| '__/ _ \| __| __| |/ _ \
| |_| | | | | | (_) | |_| |_| |  __/
 \__|_| |_|_|  \___/ \__|\__|_|\___|

throttle drives one or more scenarios against a set of targets,
closing the loop on measured TPS, error rate or a fixed rate,
depending on the scenario's kind.

Get started:
  throttle run          Run the scenarios in a config file
  throttle status        Check a running instance's status
  throttle dashboard      Watch a running instance live
  throttle logs           View daemon logs
  throttle stop            Stop a running instance`,
}

// versionCmd shows version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion()
	},
}

func printVersion() {
	fmt.Println()
	fmt.Println(tui.Logo())
	fmt.Println()

	titleStyle := lipgloss.NewStyle().Foreground(tui.SkyBlue).Bold(true)
	valueStyle := lipgloss.NewStyle().Foreground(tui.White)
	dimStyle := lipgloss.NewStyle().Foreground(tui.LightGray)

	fmt.Println(titleStyle.Render("  Version Info"))
	fmt.Println(tui.Divider(40))
	fmt.Printf("  %s  %s\n", dimStyle.Render("Version:"), valueStyle.Render(version))
	fmt.Printf("  %s  %s\n", dimStyle.Render("Built:"), valueStyle.Render(buildTime))
	fmt.Printf("  %s  %s\n", dimStyle.Render("Commit:"), valueStyle.Render(gitCommit))
	fmt.Printf("  %s  %s\n", dimStyle.Render("Go:"), valueStyle.Render(runtime.Version()))
	fmt.Printf("  %s  %s/%s\n", dimStyle.Render("OS/Arch:"), valueStyle.Render(runtime.GOOS), valueStyle.Render(runtime.GOARCH))
	fmt.Println()
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(versionCmd)
}

// SetVersion sets the version info.
func SetVersion(v, bt string) {
	version = v
	buildTime = bt
}

// SetGitCommit sets the git commit hash.
func SetGitCommit(gc string) {
	gitCommit = gc
}
