// Package cli implements the clinicalrag command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zatekoja/clinicalrag/internal/bootstrap"
	"github.com/zatekoja/clinicalrag/internal/infrastructure/observability"
	"github.com/zatekoja/clinicalrag/pkg/config"
)

var (
	configPath string

	container    *bootstrap.Container
	otelShutdown func(context.Context) error
	loadConfig   = defaultLoadConfig
)

var (
	headerStyle  = color.New(color.FgGreen, color.Bold)
	caseStyle    = color.New(color.FgCyan, color.Bold)
	successStyle = color.New(color.FgGreen)
)

var rootCmd = &cobra.Command{
	Use:   "clinicalrag",
	Short: "Retrieval-augmented diagnosis over clinical case reports",
	Long: `clinicalrag extracts clinical case-report PDFs, distills them into
structured case records with an LLM, indexes them by embedding and answers
diagnosis questions from the most similar cases.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (overrides "+config.ConfigPathEnv+")")
}

// Execute runs the root command and releases the clients it opened.
func Execute(ctx context.Context) error {
	defer teardown()
	return rootCmd.ExecuteContext(ctx)
}

func defaultLoadConfig(path string) (*config.Config, error) {
	if path != "" {
		if err := os.Setenv(config.ConfigPathEnv, path); err != nil {
			return nil, err
		}
	}
	return config.Load()
}

func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Log.Env, cfg.Log.Level)

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(cmd.Context(), cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			otelShutdown = shutdown
		}
	}

	container = bootstrap.New(cfg)
	return nil
}

func teardown() {
	if container != nil {
		if err := container.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close clients")
		}
	}
	if otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("Error shutting down OpenTelemetry")
		}
		otelShutdown = nil
	}
	container = nil
}
