package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/alfresco/alfresco-orchestrator/internal/app"
	"github.com/alfresco/alfresco-orchestrator/internal/config"
	"github.com/alfresco/alfresco-orchestrator/internal/logger"
)

type contextKey string

const configKey = contextKey("config")

var rootCmd = &cobra.Command{
	Use:   "alfresco-orchestrator",
	Short: "Deploy and supervise a local Alfresco container topology",
	Long: "Starts the Alfresco services in run-order groups on the local Docker engine, " +
		"tracks their readiness and serves the orchestration state over HTTP.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")
		if err := config.InitConfig(configFile); err != nil {
			return err
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		ctx := context.WithValue(cmd.Context(), configKey, cfg)
		cmd.SetContext(ctx)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "INFO", "set log level (e.g. INFO, DEBUG, WARN)")
	rootCmd.PersistentFlags().String("configuration", config.DefaultConfigurationName, "Alfresco configuration to orchestrate")
	viper.BindPFlag("log.log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("app.configuration", rootCmd.PersistentFlags().Lookup("configuration"))

	// Enable automatic environment variable binding.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	rootCmd.AddCommand(serveCmd, upCmd, downCmd, setupCmd, statusCmd, openCmd)
}

// withApp builds the application for cmd, runs fn with a context that is
// cancelled on SIGINT or SIGTERM, and closes the application afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App, log zerolog.Logger) error) error {
	cfg := cmd.Context().Value(configKey).(*config.Config)

	// Set up logger.
	logInstance := logger.SetupLogger(&cfg.Logging)

	application, err := app.New(cfg, logInstance)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}
	defer func() {
		if err := application.Close(); err != nil {
			logInstance.Warn().Err(err).Msg("Failed to close application cleanly")
		}
	}()

	// Create a context with cancellation for graceful shutdown.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Listen for OS signals.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logInstance.Info().Msgf("Received signal: %v", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return fn(ctx, application, logInstance)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Execution error: %v\n", err)
		os.Exit(1)
	}
}
