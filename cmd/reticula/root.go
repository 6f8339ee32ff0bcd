package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/reticula"
	"github.com/aretw0/reticula/internal/config"
	"github.com/aretw0/reticula/internal/logging"
)

// Exit codes.
const (
	exitFailure = 1
	exitInput   = 2
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "reticula",
		Short: "Reticula infers phylogenetic networks from gene trees",
		Long: `Reticula reads Newick gene trees, tallies their quartet topologies and
builds a rooted phylogenetic network in which conflicting signal becomes
reticulation (hybridisation) edges. Output is extended Newick.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags (available to all commands)
	flags := root.PersistentFlags()
	flags.String("config", config.DefaultPath, "Path to the YAML or JSON config file")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.String("outgroup", "", "Root the network on this taxon")
	flags.Int("workers", 0, "Trees processed concurrently (0 = GOMAXPROCS)")
	flags.Float64("conflict-threshold", 1.0, "Relative weight at which an alternative quartet topology conflicts")
	flags.String("cache", "", "Result cache backend: none, memory, file or redis")

	root.AddCommand(
		newInferCmd(),
		newInspectCmd(),
		newGraphCmd(),
		newServeCmd(),
		newMCPCmd(),
		newCacheCmd(),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command and exits with 2 for bad input and 1 for
// any other failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if reticula.IsInputError(err) {
			os.Exit(exitInput)
		}
		os.Exit(exitFailure)
	}
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	if flags.Changed("config") {
		if _, err := os.Stat(path); err != nil {
			return config.Config{}, fmt.Errorf("config file: %w", err)
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("outgroup") {
		cfg.Outgroup, _ = flags.GetString("outgroup")
	}
	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("conflict-threshold") {
		cfg.ConflictThreshold, _ = flags.GetFloat64("conflict-threshold")
	}
	if flags.Changed("cache") {
		cfg.Cache.Backend, _ = flags.GetString("cache")
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.Config) *slog.Logger {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	return logging.New(level)
}

// readInput concatenates the named files, or reads stdin when no file (or
// "-") is given.
func readInput(args []string, stdin io.Reader) (string, error) {
	if len(args) == 0 {
		args = []string{"-"}
	}
	var sb strings.Builder
	for _, name := range args {
		var data []byte
		var err error
		if name == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(name)
		}
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		sb.Write(data)
		sb.WriteByte('\n')
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", errors.New("no input trees")
	}
	return sb.String(), nil
}
