package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/wrussell84/stampede/internal/config"
)

func parseRunFlags(t *testing.T, args ...string) *config.Config {
	t.Helper()
	t.Cleanup(resetRunFlags)
	if err := runCmd.Flags().Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := buildRunConfig(runCmd)
	if err != nil {
		t.Fatalf("buildRunConfig() error = %v", err)
	}
	return cfg
}

func resetRunFlags() {
	runCmd.Flags().VisitAll(func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	})
}

func TestBuildRunConfig_FlagsOnly(t *testing.T) {
	cfg := parseRunFlags(t,
		"--host", "http://localhost:8080",
		"--users", "10",
		"--spawn-rate", "2",
		"--duration", "90s",
		"--seed", "7",
	)

	if cfg.Host != "http://localhost:8080" {
		t.Errorf("Host = %q", cfg.Host)
	}
	if cfg.Users != 10 {
		t.Errorf("Users = %d, want 10", cfg.Users)
	}
	if cfg.SpawnRate != 2 {
		t.Errorf("SpawnRate = %g, want 2", cfg.SpawnRate)
	}
	if got := time.Duration(cfg.Duration); got != 90*time.Second {
		t.Errorf("Duration = %s, want 90s", got)
	}
	if cfg.Seed != 7 {
		t.Errorf("Seed = %d, want 7", cfg.Seed)
	}
	// Defaults fill the rest.
	if got := time.Duration(cfg.MinWait); got != time.Second {
		t.Errorf("MinWait = %s, want default 1s", got)
	}
}

func TestBuildRunConfig_FlagOverridesFile(t *testing.T) {
	content := "host: http://from-file:9000\nusers: 5\nduration: 2m\n"
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := parseRunFlags(t,
		"--config", path,
		"--users", "20",
	)

	if cfg.Host != "http://from-file:9000" {
		t.Errorf("Host = %q, want value from file", cfg.Host)
	}
	if cfg.Users != 20 {
		t.Errorf("Users = %d, want flag override 20", cfg.Users)
	}
	if got := time.Duration(cfg.Duration); got != 2*time.Minute {
		t.Errorf("Duration = %s, want 2m from file", got)
	}
}

func TestBuildRunConfig_MissingHost(t *testing.T) {
	defer resetRunFlags()
	if err := runCmd.Flags().Parse([]string{"--users", "3"}); err != nil {
		t.Fatal(err)
	}
	if _, err := buildRunConfig(runCmd); err == nil {
		t.Error("buildRunConfig() without a host did not fail")
	}
}
