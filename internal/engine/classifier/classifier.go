package classifier

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/crimson-sun/ctxclassify/internal/model"
)

// ErrFeatureCount is returned when a feature vector's length differs from the
// number of features the model was trained on.
var ErrFeatureCount = errors.New("classifier: feature count mismatch")

// Model is a tree ensemble that scores one feature row.
type Model interface {
	NumFeatures() int
	NumOutputs() int
	Predict(features []float64) ([]float64, error)
}

// Format selects the classifier artifact format.
type Format string

const (
	// LightGBMFormat is a LightGBM text model (lgbm_model.txt).
	LightGBMFormat Format = "lightgbm"
	// XGBoostFormat is an XGBoost binary model.
	XGBoostFormat Format = "xgboost"
)

// Load reads a classifier model of the given format.
func Load(path string, format Format) (Model, error) {
	switch format {
	case LightGBMFormat, "":
		m, err := LoadLightGBM(path)
		if err != nil {
			return nil, err
		}
		return m, nil
	case XGBoostFormat:
		m, err := LoadXGBoost(path)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("classifier: unknown format %q", format)
	}
}

// Classifier maps model outputs onto class labels.
type Classifier struct {
	model   Model
	classes []string
}

// New binds a model to its ordered class labels.
func New(m Model, classes []string) *Classifier {
	if n := m.NumOutputs(); n != len(classes) && !(n == 1 && len(classes) == 2) {
		slog.Warn("classifier outputs do not match class count", "outputs", n, "classes", len(classes))
	}
	return &Classifier{model: m, classes: append([]string(nil), classes...)}
}

// NumFeatures returns the feature count the model expects.
func (c *Classifier) NumFeatures() int { return c.model.NumFeatures() }

// Predict scores one feature vector and selects the most probable class.
// The first class wins ties. A panic inside the model is returned as an error.
func (c *Classifier) Predict(features []float64) (pred model.Prediction, err error) {
	if want := c.model.NumFeatures(); len(features) != want {
		return model.Prediction{}, fmt.Errorf("%w: model expects %d, got %d", ErrFeatureCount, want, len(features))
	}

	defer func() {
		if r := recover(); r != nil {
			pred = model.Prediction{}
			err = fmt.Errorf("classifier: predict: %v", r)
		}
	}()

	probs, err := c.model.Predict(features)
	if err != nil {
		return model.Prediction{}, err
	}
	// Binary models emit P(class 1) only.
	if len(probs) == 1 && len(c.classes) == 2 {
		probs = []float64{1 - probs[0], probs[0]}
	}
	if len(probs) != len(c.classes) {
		return model.Prediction{}, fmt.Errorf("classifier: model returned %d probabilities for %d classes",
			len(probs), len(c.classes))
	}
	for i, p := range probs {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return model.Prediction{}, fmt.Errorf("classifier: probability for %q is %v", c.classes[i], p)
		}
	}

	best := argmax(probs)
	slog.Debug("prediction complete", "class", c.classes[best], "probability", probs[best])
	return model.Prediction{
		Probabilities: probs,
		Index:         best,
		Label:         c.classes[best],
		Probability:   probs[best],
	}, nil
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
