package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ashmitsharp/wallet-insights-api/internal/config"
	"github.com/ashmitsharp/wallet-insights-api/internal/logger"
)

var (
	envFile string
	rootCmd = &cobra.Command{
		Use:   "financectl",
		Short: "Operator tooling for the wallet insights API",
		Long: `financectl runs maintenance jobs against the wallet insights database:
re-indexing transactions for semantic search and printing insight reports.

Configuration comes from the same environment variables as the API server.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")
	rootCmd.PersistentFlags().String("log-format", "", "log format (console, json); overrides LOG_FORMAT")

	// Bind flags to viper
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(insightsCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	// Environment variables
	viper.AutomaticEnv()
	return nil
}

// loadRuntime reads the server configuration and builds a logger honoring the CLI overrides
func loadRuntime() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("invalid configuration: %w", err)
	}

	level := viper.GetString("log_level")
	if level == "" {
		level = cfg.LogLevel
	}
	format := viper.GetString("log_format")
	if format == "" {
		format = cfg.LogFormat
	}
	return cfg, logger.Configure(level, format), nil
}
