package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evdata/evdata/internal/config"
	"github.com/evdata/evdata/internal/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "evdata",
	Short: "EV population query service",
	Long: `evdata serves queries over the electric vehicle population dataset
and runs detailed report tasks in the background.

Running evdata without a subcommand starts the HTTP server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(watchCmd)
}

// loadConfig reads the configuration and sets up logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
