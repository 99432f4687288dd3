package classifier

import (
	"fmt"
	"sync"

	"github.com/miradorstack/incident-analyzer/internal/models"
)

// Labels predicted by the assistant, indexed by class.
const (
	LabelNormal             = "Normal"
	LabelBadDeployment      = "Bad Deployment"
	LabelMemoryLeak         = "Memory Leak"
	LabelResourceExhaustion = "Resource Exhaustion"
)

var labels = [...]string{LabelNormal, LabelBadDeployment, LabelMemoryLeak, LabelResourceExhaustion}

// Training rows use the feature order [cpu, memory, error_is_timeout, recent_deployment].
var (
	trainingFeatures = [...][4]float64{
		{90, 85, 1, 1},
		{88, 80, 1, 0},
		{95, 92, 1, 1},
		{70, 40, 0, 0},
		{60, 85, 1, 0},
		{92, 88, 0, 1},
	}
	trainingLabels = [...]int{1, 2, 3, 0, 2, 1}
)

// TrainingSet returns a copy of the built-in training rows and their labels.
func TrainingSet() ([][]float64, []int) {
	x := make([][]float64, len(trainingFeatures))
	for i, row := range trainingFeatures {
		x[i] = append([]float64(nil), row[:]...)
	}
	return x, append([]int(nil), trainingLabels[:]...)
}

// Label maps a class index to its label.
func Label(class int) (string, error) {
	if class < 0 || class >= len(labels) {
		return "", fmt.Errorf("unknown class %d", class)
	}
	return labels[class], nil
}

// Features converts an incident into the model's feature vector.
func Features(incident models.Incident) []float64 {
	timeout, deployment := 0.0, 0.0
	if incident.HasTimeout() {
		timeout = 1
	}
	if incident.RecentDeployment {
		deployment = 1
	}
	return []float64{incident.CPU, incident.Memory, timeout, deployment}
}

// Explanation renders the sentence attached to a prediction.
func Explanation(label string) string {
	return fmt.Sprintf("ML model detected patterns similar to '%s' based on CPU, memory, error signals, and deployment activity.", label)
}

// Assistant suggests a root cause label from a model fitted on the built-in training set.
type Assistant struct {
	model *LogisticRegression
}

// NewAssistant fits a fresh model on the training set.
func NewAssistant() (*Assistant, error) {
	x, y := TrainingSet()
	model := NewLogisticRegression()
	if err := model.Fit(x, y); err != nil {
		return nil, fmt.Errorf("train assistant: %w", err)
	}
	if model.Classes() != len(labels) {
		return nil, fmt.Errorf("train assistant: fitted %d classes, want %d", model.Classes(), len(labels))
	}
	return &Assistant{model: model}, nil
}

var shared = sync.OnceValues(NewAssistant)

// Shared returns a process-wide assistant fitted on first use. The training set
// never changes, so the fitted model is read-only and safe for concurrent use.
func Shared() (*Assistant, error) {
	return shared()
}

// Predict classifies the incident.
func (a *Assistant) Predict(incident models.Incident) (models.Prediction, error) {
	class, err := a.model.Predict(Features(incident))
	if err != nil {
		return models.Prediction{}, fmt.Errorf("predict: %w", err)
	}
	label, err := Label(class)
	if err != nil {
		return models.Prediction{}, err
	}
	return models.Prediction{Label: label, Explanation: Explanation(label)}, nil
}

// Probabilities returns the per-label probabilities for the incident.
func (a *Assistant) Probabilities(incident models.Incident) (map[string]float64, error) {
	probs, err := a.model.PredictProba(Features(incident))
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(probs))
	for class, p := range probs {
		label, err := Label(class)
		if err != nil {
			return nil, err
		}
		out[label] = p
	}
	return out, nil
}
