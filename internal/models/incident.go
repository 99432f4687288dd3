package models

// TimeoutError is the only error type the analyzer treats as a signal.
const TimeoutError = "TimeoutException"

// Incident is a single system-health snapshot submitted for analysis.
type Incident struct {
	CPU              float64 `json:"cpu" yaml:"cpu"`
	Memory           float64 `json:"memory" yaml:"memory"`
	Error            string  `json:"error" yaml:"error"`
	RecentDeployment bool    `json:"recent_deployment" yaml:"recent_deployment"`
}

// HasTimeout reports whether the incident error exactly matches TimeoutError.
func (i Incident) HasTimeout() bool {
	return i.Error == TimeoutError
}
