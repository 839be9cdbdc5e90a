package main

import (
	"errors"
	"io/fs"
	"os"

	"fraud-forest/internal/cfg"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type rootCmdConfig struct {
	logLevel string
	envFile  string
	settings cfg.Settings
}

func main() {
	if err := cliParser().Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func cliParser() *cobra.Command {
	config := &rootCmdConfig{}
	rootCmd := &cobra.Command{
		Use:           "forestkit",
		Short:         "forestkit trains and exports fraud detection forests",
		Long:          `Train random forests on engineered email features, export them as compact JSON for a lightweight runtime, calibrate scores and sweep decision thresholds.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.init(cmd)
		},
	}
	rootCmd.PersistentFlags().StringVar(&config.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&config.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.AddCommand(
		exportTreeCmd(config),
		trainForestCmd(config),
		tuneCmd(config),
		calibrateScoresCmd(config),
		publishCmd(config),
		runsCmd(config),
	)
	return rootCmd
}

// init loads the dotenv file and settings, then configures logging.
func (c *rootCmdConfig) init(cmd *cobra.Command) error {
	if err := godotenv.Load(c.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	settings, err := cfg.Load()
	if err != nil {
		return err
	}
	c.settings = settings

	level := settings.LogLevel
	if cmd.Flags().Changed("log-level") {
		level = c.logLevel
	}
	setupLogging(level)
	return nil
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}
