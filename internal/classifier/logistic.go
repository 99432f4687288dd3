package classifier

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// interceptRidge pins the otherwise free common offset of the intercepts.
const interceptRidge = 1e-8

// stationaryTolerance is the largest gradient max-norm accepted from a
// minimisation that stopped with an error.
const stationaryTolerance = 1e-4

// LogisticRegression is a multinomial (softmax) logistic regression with an
// intercept and an L2 penalty of 1/(2C)·‖W‖² on the weights.
type LogisticRegression struct {
	C             float64
	MaxIterations int

	classes   int
	features  int
	coef      *mat.Dense
	intercept []float64
}

// NewLogisticRegression returns an unfitted model with C=1 and up to 1000 iterations.
func NewLogisticRegression() *LogisticRegression {
	return &LogisticRegression{C: 1.0, MaxIterations: 1000}
}

// Fit estimates the model parameters from rows of features and integer class labels 0..K-1.
func (m *LogisticRegression) Fit(x [][]float64, y []int) error {
	if len(x) == 0 {
		return errors.New("no training samples")
	}
	if len(x) != len(y) {
		return fmt.Errorf("got %d samples but %d labels", len(x), len(y))
	}
	if m.C <= 0 {
		return fmt.Errorf("regularisation strength C must be positive, got %v", m.C)
	}

	features := len(x[0])
	classes := 0
	data := mat.NewDense(len(x), features+1, nil)
	for i, row := range x {
		if len(row) != features {
			return fmt.Errorf("sample %d has %d features, want %d", i, len(row), features)
		}
		if y[i] < 0 {
			return fmt.Errorf("sample %d has negative label %d", i, y[i])
		}
		if y[i]+1 > classes {
			classes = y[i] + 1
		}
		data.SetRow(i, append(append(make([]float64, 0, features+1), row...), 1))
	}

	obj := &softmaxObjective{data: data, labels: y, classes: classes, width: features + 1, penalty: 1 / m.C}
	problem := optimize.Problem{
		Func: obj.value,
		Grad: obj.gradient,
		Hess: obj.hessian,
	}
	settings := &optimize.Settings{
		GradientThreshold: 1e-6,
		MajorIterations:   m.MaxIterations,
	}

	result, err := optimize.Minimize(problem, make([]float64, classes*(features+1)), settings, &optimize.Newton{})
	if err != nil {
		// A stalled line search at a stationary point still yields the optimum.
		if result == nil || result.X == nil || obj.gradientNorm(result.X) > stationaryTolerance {
			return fmt.Errorf("minimise softmax loss: %w", err)
		}
	}

	m.classes = classes
	m.features = features
	m.coef = mat.NewDense(classes, features, nil)
	m.intercept = make([]float64, classes)
	for k := 0; k < classes; k++ {
		block := result.X[k*(features+1) : (k+1)*(features+1)]
		m.coef.SetRow(k, block[:features])
		m.intercept[k] = block[features]
	}
	return nil
}

// Fitted reports whether Fit completed successfully.
func (m *LogisticRegression) Fitted() bool {
	return m.coef != nil
}

// Classes returns the number of classes seen during fitting.
func (m *LogisticRegression) Classes() int {
	return m.classes
}

// DecisionFunction returns the per-class linear scores for a sample.
func (m *LogisticRegression) DecisionFunction(x []float64) ([]float64, error) {
	if !m.Fitted() {
		return nil, errors.New("model is not fitted")
	}
	if len(x) != m.features {
		return nil, fmt.Errorf("sample has %d features, want %d", len(x), m.features)
	}
	scores := make([]float64, m.classes)
	for k := range scores {
		scores[k] = floats.Dot(m.coef.RawRowView(k), x) + m.intercept[k]
	}
	return scores, nil
}

// PredictProba returns the class membership probabilities for a sample.
func (m *LogisticRegression) PredictProba(x []float64) ([]float64, error) {
	scores, err := m.DecisionFunction(x)
	if err != nil {
		return nil, err
	}
	return softmax(scores), nil
}

// Predict returns the most likely class; ties resolve to the lowest class index.
func (m *LogisticRegression) Predict(x []float64) (int, error) {
	scores, err := m.DecisionFunction(x)
	if err != nil {
		return 0, err
	}
	return floats.MaxIdx(scores), nil
}

func softmax(scores []float64) []float64 {
	norm := floats.LogSumExp(scores)
	probs := make([]float64, len(scores))
	for i, s := range scores {
		probs[i] = math.Exp(s - norm)
	}
	return probs
}

// softmaxObjective is the penalised multinomial negative log-likelihood.
// Parameters are laid out class by class as [w_1..w_d, b].
type softmaxObjective struct {
	data    *mat.Dense
	labels  []int
	classes int
	width   int
	penalty float64
}

func (o *softmaxObjective) probabilities(theta []float64, row []float64, scores []float64) []float64 {
	for k := 0; k < o.classes; k++ {
		scores[k] = floats.Dot(theta[k*o.width:(k+1)*o.width], row)
	}
	return softmax(scores)
}

func (o *softmaxObjective) isIntercept(i int) bool {
	return i%o.width == o.width-1
}

func (o *softmaxObjective) value(theta []float64) float64 {
	scores := make([]float64, o.classes)
	n, _ := o.data.Dims()
	loss := 0.0
	for i := 0; i < n; i++ {
		row := o.data.RawRowView(i)
		for k := 0; k < o.classes; k++ {
			scores[k] = floats.Dot(theta[k*o.width:(k+1)*o.width], row)
		}
		loss += floats.LogSumExp(scores) - scores[o.labels[i]]
	}
	for i, v := range theta {
		loss += 0.5 * o.ridge(i) * v * v
	}
	return loss
}

func (o *softmaxObjective) gradient(grad, theta []float64) {
	for i := range grad {
		grad[i] = o.ridge(i) * theta[i]
	}
	scores := make([]float64, o.classes)
	n, _ := o.data.Dims()
	for i := 0; i < n; i++ {
		row := o.data.RawRowView(i)
		probs := o.probabilities(theta, row, scores)
		probs[o.labels[i]]--
		for k, residual := range probs {
			floats.AddScaled(grad[k*o.width:(k+1)*o.width], residual, row)
		}
	}
}

// gradientNorm returns the max-norm of the loss gradient at theta.
func (o *softmaxObjective) gradientNorm(theta []float64) float64 {
	grad := make([]float64, len(theta))
	o.gradient(grad, theta)
	return floats.Norm(grad, math.Inf(1))
}

func (o *softmaxObjective) hessian(hess *mat.SymDense, theta []float64) {
	size := len(theta)
	acc := make([]float64, size*size)
	scores := make([]float64, o.classes)
	n, _ := o.data.Dims()
	for i := 0; i < n; i++ {
		row := o.data.RawRowView(i)
		probs := o.probabilities(theta, row, scores)
		for k := 0; k < o.classes; k++ {
			for l := 0; l < o.classes; l++ {
				c := -probs[k] * probs[l]
				if k == l {
					c += probs[k]
				}
				for a, xa := range row {
					base := (k*o.width+a)*size + l*o.width
					for b, xb := range row {
						acc[base+b] += c * xa * xb
					}
				}
			}
		}
	}
	for i := 0; i < size; i++ {
		acc[i*size+i] += o.ridge(i)
		for j := i; j < size; j++ {
			hess.SetSym(i, j, acc[i*size+j])
		}
	}
}

func (o *softmaxObjective) ridge(i int) float64 {
	if o.isIntercept(i) {
		return interceptRidge
	}
	return o.penalty
}
