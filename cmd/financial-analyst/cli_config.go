package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/joho/godotenv"
	configpkg "github.com/minhyannv/financial-analyst-go/pkg/config"
)

const defaultConfigPath = "configs/analyst.yaml"

// parseCLIConfig loads .env, the YAML file and env overrides, then applies flags.
func parseCLIConfig(args []string, stderr io.Writer) (configpkg.Config, error) {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("financial-analyst", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", defaultConfigPath, "Path to YAML config file (a missing file is ignored)")
	verbose := fs.Bool("verbose", false, "Verbose tool-call logging")
	workDir := fs.String("work_dir", "", "Directory where charts are written (overrides config)")
	task := fs.String("task", "", "Task sent to the analyst (defaults to the Alphabet analysis)")
	logLevel := fs.String("log_level", "", "Log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return configpkg.Config{}, err
	}
	if fs.NArg() > 0 {
		return configpkg.Config{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	cfg, err := configpkg.Load(strings.TrimSpace(*configPath))
	if err != nil {
		return configpkg.Config{}, err
	}
	if *verbose {
		cfg.Verbose = true
	}
	if v := strings.TrimSpace(*workDir); v != "" {
		cfg.WorkDir = v
	}
	if v := strings.TrimSpace(*task); v != "" {
		cfg.Task = v
	}
	if v := strings.TrimSpace(*logLevel); v != "" {
		cfg.LogLevel = v
	}
	if cfg.Verbose {
		cfg.LogLevel = "debug"
	}
	return configpkg.Normalize(cfg), nil
}
