// Command thermoblink-host is the developer's companion tool: it runs the
// firmware against a simulated board and tails a real board's UART log.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"thermoblink/config"
	"thermoblink/logx"
)

var (
	configPath = ""
	logLevel   = ""
)

func main() {
	if err := NewCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "thermoblink-host",
		Short:        "Host tools for the thermoblink firmware",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (defaults if empty or missing)")
	cmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "override log.level (debug, info, warn, error)")

	cmd.AddCommand(
		NewSimCommand(),
		NewMonitorCommand(),
		NewConfigCommand(),
	)
	return cmd
}

// loadConfig reads --config and applies --log-level.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return nil, err
		}
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) logx.Logger {
	level, _ := logx.ParseLevel(cfg.Log.Level)
	return logx.NewLogrus(os.Stderr, level)
}
