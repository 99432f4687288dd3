package engine

import "strings"

// recommendation maps a cause keyword to the actions suggested for it.
type recommendation struct {
	keyword string
	actions []string
}

var recommendations = []recommendation{
	{keyword: "deployment", actions: []string{"Rollback recent deployment", "Restart affected service"}},
	{keyword: "memory", actions: []string{"Check memory allocation", "Scale memory resources"}},
	{keyword: "resource exhaustion", actions: []string{"Scale CPU and memory resources", "Enable autoscaling or optimize workload"}},
}

// Recommend produces remediation steps for the matched causes, in cause order.
// A cause may hit several keywords and repeated actions are kept.
func Recommend(causes []string) []string {
	actions := make([]string, 0, 2*len(causes))
	for _, cause := range causes {
		lowered := strings.ToLower(cause)
		for _, rec := range recommendations {
			if strings.Contains(lowered, rec.keyword) {
				actions = append(actions, rec.actions...)
			}
		}
	}
	return actions
}
