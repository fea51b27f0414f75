package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wrussell84/stampede/internal/config"
	"github.com/wrussell84/stampede/internal/loadgen"
	"github.com/wrussell84/stampede/internal/output"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a load-generation session against a target host",
	Long: `Run spawns virtual users against the target host and prints a
per-label summary when the session ends.

Config file mode:
  stampede run --config run.yaml

Quick CLI mode:
  stampede run --host http://localhost:8080 \
    --users 50 --spawn-rate 5 --duration 2m`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSession(cmd)
	},
}

func init() {
	flags := runCmd.Flags()
	flags.String("config", "", "path to a YAML config file")
	flags.String("host", "", "base URL of the target system")
	flags.Int("users", 0, "target virtual-user count")
	flags.Float64("spawn-rate", 0, "users spawned per second")
	flags.Duration("duration", 0, "how long to hold the load")
	flags.Duration("min-wait", 0, "lower bound of per-user pacing")
	flags.Duration("max-wait", 0, "upper bound of per-user pacing")
	flags.Duration("graceful-stop", 0, "drain timeout at the end of the run")
	flags.Int64("seed", 0, "random seed for a reproducible run")
	flags.Bool("no-color", false, "disable colored output")
	flags.Bool("verbose", false, "enable debug logging")
}

func runSession(cmd *cobra.Command) error {
	cfg, err := buildRunConfig(cmd)
	if err != nil {
		return err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	engine, err := loadgen.NewEngine(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "stampede: %d users against %s for %s\n\n",
		cfg.Users, cfg.Host, time.Duration(cfg.Duration))

	report, err := engine.Run(ctx)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	noColor, _ := cmd.Flags().GetBool("no-color")
	printer := output.NewPrinter(cmd.OutOrStdout(), noColor)
	printer.PrintReport(report)

	return nil
}

// buildRunConfig merges the config file (if any) with explicit flag
// overrides, applies defaults, and validates.
func buildRunConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()

	var cfg *config.Config
	if path, _ := flags.GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	if flags.Changed("host") {
		cfg.Host, _ = flags.GetString("host")
	}
	if flags.Changed("users") {
		cfg.Users, _ = flags.GetInt("users")
	}
	if flags.Changed("spawn-rate") {
		cfg.SpawnRate, _ = flags.GetFloat64("spawn-rate")
	}
	if flags.Changed("duration") {
		d, _ := flags.GetDuration("duration")
		cfg.Duration = config.Duration(d)
	}
	if flags.Changed("min-wait") {
		d, _ := flags.GetDuration("min-wait")
		cfg.MinWait = config.Duration(d)
	}
	if flags.Changed("max-wait") {
		d, _ := flags.GetDuration("max-wait")
		cfg.MaxWait = config.Duration(d)
	}
	if flags.Changed("graceful-stop") {
		d, _ := flags.GetDuration("graceful-stop")
		cfg.GracefulStop = config.Duration(d)
	}
	if flags.Changed("seed") {
		cfg.Seed, _ = flags.GetInt64("seed")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
