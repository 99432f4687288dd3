package engine

import (
	"strings"

	"github.com/miradorstack/incident-analyzer/internal/models"
)

// Root cause names reported by the rule evaluator.
const (
	CauseBadDeployment      = "Bad deployment causing CPU spike"
	CauseMemoryLeak         = "Possible memory leak leading to timeouts"
	CauseResourceExhaustion = "Overall resource exhaustion"
)

// NoPatternExplanation is returned when no rule matched.
const NoPatternExplanation = "No strong failure patterns detected."

// Rule is a fixed threshold check contributing Weight to the diagnosis score.
type Rule struct {
	ID          string
	Cause       string
	Weight      int
	Explanation string
	Match       func(models.Incident) bool
}

// rules are evaluated in order; they are independent and may all match.
var rules = []Rule{
	{
		ID:          "bad-deployment",
		Cause:       CauseBadDeployment,
		Weight:      3,
		Explanation: "CPU usage is critically high shortly after a recent deployment.",
		Match: func(in models.Incident) bool {
			return in.CPU > 85 && in.RecentDeployment
		},
	},
	{
		ID:          "memory-leak",
		Cause:       CauseMemoryLeak,
		Weight:      2,
		Explanation: "High memory usage combined with timeout errors suggests a memory leak.",
		Match: func(in models.Incident) bool {
			return in.Memory > 80 && in.HasTimeout()
		},
	},
	{
		ID:          "resource-exhaustion",
		Cause:       CauseResourceExhaustion,
		Weight:      2,
		Explanation: "CPU and memory are both extremely high, indicating resource exhaustion.",
		Match: func(in models.Incident) bool {
			return in.CPU > 90 && in.Memory > 85
		},
	},
}

// Evaluate applies every rule to the incident and derives a scored diagnosis.
// It is a pure function of its input.
func Evaluate(incident models.Incident) models.RuleResult {
	causes := make([]string, 0, len(rules))
	explanations := make([]string, 0, len(rules))
	score := 0

	for _, rule := range rules {
		if !rule.Match(incident) {
			continue
		}
		causes = append(causes, rule.Cause)
		explanations = append(explanations, rule.Explanation)
		score += rule.Weight
	}

	if len(causes) == 0 {
		return models.RuleResult{
			RootCauses:         []string{},
			Confidence:         models.ConfidenceLow,
			Explanation:        NoPatternExplanation,
			RecommendedActions: []string{},
		}
	}

	return models.RuleResult{
		RootCauses:         causes,
		Confidence:         confidenceFromScore(score),
		Explanation:        strings.Join(explanations, " "),
		Score:              score,
		RecommendedActions: Recommend(causes),
	}
}

func confidenceFromScore(score int) models.Confidence {
	switch {
	case score <= 2:
		return models.ConfidenceLow
	case score <= 4:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceHigh
	}
}
