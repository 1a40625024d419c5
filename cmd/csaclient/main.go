// Package main is the entry point of the application
package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tecu23/csa-client/pkg/config"
)

var (
	flagDebug    bool
	flagPort     string
	flagSettings string
	flagEnv      string
	flagLogin    bool
)

var rootCmd = &cobra.Command{
	Use:   "csaclient",
	Short: "Play CSA shogi matches with a USI engine",
	Long: `csaclient logs in to a CSA protocol server, plays matches with a USI
engine and streams match notifications to websocket clients.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.Flags().StringVar(&flagPort, "port", "8080", "bridge server port")
	rootCmd.Flags().StringVar(&flagSettings, "settings", "", "game setting YAML file (defaults to $CSA_SETTINGS)")
	rootCmd.Flags().StringVar(&flagEnv, "env", ".env", "environment file")
	rootCmd.Flags().BoolVar(&flagLogin, "login", false, "log in as soon as the bridge is up")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg := &config.Config{
		Debug:        flagDebug,
		Port:         flagPort,
		SettingsPath: flagSettings,
		AutoLogin:    flagLogin,
	}

	// Initialize logger
	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	if err := godotenv.Load(flagEnv); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || cmd.Flags().Changed("env") {
			logger.Error("loading env error", zap.Error(err))
			return err
		}
		logger.Debug("no env file", zap.String("path", flagEnv))
	}
	cfg.ApplyEnv()

	if cfg.SettingsPath == "" {
		return errors.New("no game setting: pass --settings or set CSA_SETTINGS")
	}

	app, err := newApplication(cfg, logger)
	if err != nil {
		return err
	}

	return app.serve()
}

func initLogger(debug bool) *zap.Logger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	return logger
}
