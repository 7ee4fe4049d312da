package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gogpu/reel"
)

const defaultConfigPath = "reel.toml"

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "reel",
		Short:         "Render scene descriptions to H.264 video",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "configuration file path")

	rootCmd.AddCommand(newExportCommand(&configFlag))
	rootCmd.AddCommand(newInfoCommand())

	return rootCmd
}

// resolveConfig loads the config named by --config, or reel.toml from
// the working directory when the flag is unset.
func resolveConfig(configFlag string) (Config, error) {
	path := configFlag
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}
	return loadConfig(path, explicit)
}

// setupLogging points the library logger at stderr at the configured
// level.
func setupLogging(cfg *Config) {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	reel.SetLogger(slog.New(handler))
}
