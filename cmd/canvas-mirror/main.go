package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"canvas-mirror/internal/config"
	"canvas-mirror/internal/mirror"
)

// set at build time with -ldflags "-X main.version=..."
var version = "0.1.0"

func main() {
	var (
		configPath string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:           "canvas-mirror",
		Short:         "canvas-mirror - download a Canvas course into a browsable local mirror",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(c *cobra.Command, args []string) error {
			return run(configPath, verbose)
		},
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML config file (env vars override it)")
	cmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(configPath string, verbose bool) error {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// timeout general grande
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Hour)
	defer cancel()

	start := time.Now()
	r := mirror.NewRunner(cfg, log)
	r.Fetcher.ShowProgress = isatty.IsTerminal(os.Stderr.Fd())

	sum, err := r.Run(ctx)
	if err != nil {
		return err
	}

	// closing summary goes to stdout whatever the log level
	fmt.Printf("run %s finished in %s: succeeded=%d failed=%d\n",
		sum.RunID, time.Since(start).Round(time.Second), sum.Succeeded, sum.Failed)
	for _, e := range sum.Errors {
		fmt.Printf("  failed: %s (%s)\n", e.Resource, e.Kind)
	}
	return nil
}
