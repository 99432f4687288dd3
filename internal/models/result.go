package models

// Confidence is a coarse certainty label.
type Confidence string

const (
	ConfidenceLow    Confidence = "Low"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceHigh   Confidence = "High"
)

// NoIssue is reported as the most common issue when no incident matched a rule.
const NoIssue = "None"

// RuleResult is the rule-based diagnosis of a single incident. Score is zero
// (and omitted on the wire) when no rule matched.
type RuleResult struct {
	RootCauses         []string   `json:"root_causes"`
	Confidence         Confidence `json:"confidence"`
	Explanation        string     `json:"explanation"`
	Score              int        `json:"score,omitempty"`
	RecommendedActions []string   `json:"recommended_actions"`
}

// HistoryResult summarises the dominant rule-detected cause across incidents.
type HistoryResult struct {
	MostCommonIssue string     `json:"most_common_issue"`
	Occurrences     int        `json:"occurrences"`
	Confidence      Confidence `json:"confidence"`
}

// Prediction is the statistical assistant's suggestion for an incident.
type Prediction struct {
	Label       string `json:"ml_prediction"`
	Explanation string `json:"ml_explanation"`
}

// Analysis merges the rule-based result with the statistical prediction.
type Analysis struct {
	Rule       RuleResult `json:"rule"`
	Prediction Prediction `json:"prediction"`
}

// AnalysisResponse is the public shape of an analysis; the rule score is not exposed.
type AnalysisResponse struct {
	Confidence         Confidence `json:"confidence"`
	RootCauses         []string   `json:"root_causes"`
	Explanation        string     `json:"explanation"`
	RecommendedActions []string   `json:"recommended_actions"`
	MLPrediction       string     `json:"ml_prediction"`
	MLExplanation      string     `json:"ml_explanation"`
}

// Response flattens an Analysis into its public response.
func (a Analysis) Response() AnalysisResponse {
	return AnalysisResponse{
		Confidence:         a.Rule.Confidence,
		RootCauses:         nonNil(a.Rule.RootCauses),
		Explanation:        a.Rule.Explanation,
		RecommendedActions: nonNil(a.Rule.RecommendedActions),
		MLPrediction:       a.Prediction.Label,
		MLExplanation:      a.Prediction.Explanation,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
