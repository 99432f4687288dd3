package engine

import "github.com/miradorstack/incident-analyzer/internal/models"

// HighOccurrenceThreshold is the count at which a recurring cause is reported with high confidence.
const HighOccurrenceThreshold = 3

// causeTally counts causes while remembering the order they were first seen.
type causeTally struct {
	counts map[string]int
	order  []string
}

func newCauseTally() *causeTally {
	return &causeTally{counts: make(map[string]int)}
}

func (t *causeTally) add(cause string) {
	if _, ok := t.counts[cause]; !ok {
		t.order = append(t.order, cause)
	}
	t.counts[cause]++
}

// top returns the most frequent cause; ties go to the cause seen first.
func (t *causeTally) top() (string, int) {
	best, bestCount := "", 0
	for _, cause := range t.order {
		if count := t.counts[cause]; count > bestCount {
			best, bestCount = cause, count
		}
	}
	return best, bestCount
}

// AggregateHistory evaluates each incident and reports the most frequent root cause.
func AggregateHistory(incidents []models.Incident) models.HistoryResult {
	tally := newCauseTally()
	for _, incident := range incidents {
		for _, cause := range Evaluate(incident).RootCauses {
			tally.add(cause)
		}
	}

	if len(tally.order) == 0 {
		return models.HistoryResult{
			MostCommonIssue: models.NoIssue,
			Occurrences:     0,
			Confidence:      models.ConfidenceLow,
		}
	}

	cause, count := tally.top()
	confidence := models.ConfidenceMedium
	if count >= HighOccurrenceThreshold {
		confidence = models.ConfidenceHigh
	}
	return models.HistoryResult{
		MostCommonIssue: cause,
		Occurrences:     count,
		Confidence:      confidence,
	}
}
