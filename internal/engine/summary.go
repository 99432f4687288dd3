package engine

import (
	"fmt"
	"io"

	"github.com/miradorstack/incident-analyzer/internal/models"
)

// WriteHistorySummary renders a human-readable report of a history aggregation.
func WriteHistorySummary(w io.Writer, result models.HistoryResult) error {
	_, err := fmt.Fprintf(w,
		"\n===== INCIDENT HISTORY ANALYSIS SUMMARY =====\n"+
			"Most Common Issue : %s\n"+
			"Occurrences       : %d\n"+
			"Overall Confidence: %s\n"+
			"\nSystem Insight:\n%s\n",
		result.MostCommonIssue, result.Occurrences, result.Confidence, historyInsight(result.Confidence))
	return err
}

func historyInsight(confidence models.Confidence) string {
	switch confidence {
	case models.ConfidenceHigh:
		return "This issue appears repeatedly across incidents and is very likely the primary root cause."
	case models.ConfidenceMedium:
		return "This issue has occurred multiple times and should be investigated further."
	default:
		return "No strong recurring issue detected from incident history."
	}
}
