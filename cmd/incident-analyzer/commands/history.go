package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/miradorstack/incident-analyzer/internal/engine"
	"github.com/miradorstack/incident-analyzer/internal/models"
	"github.com/miradorstack/incident-analyzer/internal/services"
)

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	var (
		file   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Summarise the most common root cause across a file of incidents",
		Long: `history reads a YAML or JSON list of incidents, each with cpu, memory, error and
recent_deployment fields, and reports the most frequent rule-detected root cause.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, logger, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			incidents, err := readIncidents(file)
			if err != nil {
				return err
			}

			service := services.NewAnalyzerService(logger, services.Options{})
			result, err := service.AnalyzeHistory(cmd.Context(), incidents)
			if err != nil {
				return err
			}

			if asJSON {
				out, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return fmt.Errorf("encode history: %w", err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return err
			}
			return engine.WriteHistorySummary(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML or JSON file holding a list of incidents")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON instead of a report")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readIncidents(path string) ([]models.Incident, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read incidents: %w", err)
	}
	var incidents []models.Incident
	if err := yaml.Unmarshal(data, &incidents); err != nil {
		return nil, fmt.Errorf("parse incidents %s: %w", path, err)
	}
	return incidents, nil
}
