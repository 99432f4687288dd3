package commands

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/miradorstack/incident-analyzer/internal/config"
	"github.com/miradorstack/incident-analyzer/internal/services"
	"github.com/miradorstack/incident-analyzer/internal/utils"
)

const Version = "0.1.0"

type rootOptions struct {
	configPath string
	logLevel   string
}

// Execute runs the incident-analyzer command tree.
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds the incident-analyzer command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "incident-analyzer",
		Short: "Incident root cause analyzer",
		Long: `incident-analyzer classifies incidents (CPU, memory, error type, deployment activity)
into likely root causes using threshold rules and a small logistic-regression assistant.`,
		Version:      Version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to configuration file (defaults to $INCIDENT_ANALYZER_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level override: debug, info, warn or error")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newAnalyzeCommand(opts))
	cmd.AddCommand(newHistoryCommand(opts))
	return cmd
}

// load resolves configuration and builds a logger writing to w.
func (o *rootOptions) load(w io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	return cfg, utils.NewLogger(w, cfg.Logging.Level, cfg.Logging.JSON), nil
}

func predictorSource(cfg config.AssistantConfig) services.PredictorSource {
	if cfg.RefitPerRequest {
		return services.FreshPredictor
	}
	return services.SharedPredictor
}
