package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/throttlelab/throttle/internal/config"
	"github.com/throttlelab/throttle/internal/daemon"
)

var (
	configPath  string
	autoTrigger bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run throttle with a config file",
	Long: `Run throttle using a YAML configuration file, opening the control
socket and the optional health/metrics servers, then waiting for a
trigger.

Example:
  throttle run --config throttle.yaml
  throttle run --config throttle.yaml --trigger`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&configPath, "config", "c", "throttle.yaml", "Path to configuration file")
	runCmd.Flags().BoolVarP(&autoTrigger, "trigger", "t", false, "Auto-trigger on start")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	if daemon.IsRunning() {
		fmt.Println("\n⚠️  throttle is already running")
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer log.Sync()

	fmt.Printf("⌖ throttle starting (config: %s)\n", configPath)
	fmt.Printf("  Targets:   %d\n", len(cfg.Targets))
	fmt.Printf("  Scenarios: %d\n", len(cfg.Scenarios))
	fmt.Println()

	d, err := daemon.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	if err := d.Start(); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	if autoTrigger {
		fmt.Println("🔫 Auto-triggering...")
		d.Trigger()
	} else {
		fmt.Println("⏸  Waiting for trigger...")
		fmt.Println("   Use 'throttle trigger' to start")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	fmt.Println("\n🛑 Shutting down...")
	d.Stop()

	return nil
}

func newLogger(cfg config.Logging) (*zap.SugaredLogger, error) {
	var zcfg zap.Config
	if cfg.Format == "json" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	level := zap.InfoLevel
	if err := level.UnmarshalText([]byte(cfg.Level)); err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}
	logger, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}
