package commands

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/miradorstack/incident-analyzer/internal/models"
	"github.com/miradorstack/incident-analyzer/internal/services"
)

func newAnalyzeCommand(opts *rootOptions) *cobra.Command {
	var incident models.Incident

	cmd := &cobra.Command{
		Use:     "analyze",
		Short:   "Analyze a single incident and print the result as JSON",
		Example: `  incident-analyzer analyze --cpu 95 --memory 92 --error TimeoutException --recent-deployment`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			service := services.NewAnalyzerService(logger, services.Options{Predictors: predictorSource(cfg.Assistant)})

			// Usage figures are whole percentages, as on the HTTP facade.
			incident.CPU = math.Trunc(incident.CPU)
			incident.Memory = math.Trunc(incident.Memory)

			analysis, err := service.Analyze(cmd.Context(), incident)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(analysis, "", "  ")
			if err != nil {
				return fmt.Errorf("encode analysis: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}

	cmd.Flags().Float64Var(&incident.CPU, "cpu", 0, "CPU usage percentage")
	cmd.Flags().Float64Var(&incident.Memory, "memory", 0, "Memory usage percentage")
	cmd.Flags().StringVar(&incident.Error, "error", "", "Error type observed, e.g. "+models.TimeoutError)
	cmd.Flags().BoolVar(&incident.RecentDeployment, "recent-deployment", false, "Whether a deployment happened shortly before the incident")
	return cmd
}
