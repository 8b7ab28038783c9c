package classifier

import (
	"fmt"

	"github.com/dmitryikh/leaves"
)

// XGBoost wraps an XGBoost binary model (save_model with a .model/.bin
// extension) evaluated by leaves. Outputs are transformed: softmax for
// multi:softprob, sigmoid for binary:logistic.
type XGBoost struct {
	ens *leaves.Ensemble
}

// LoadXGBoost reads an XGBoost binary model from path.
func LoadXGBoost(path string) (*XGBoost, error) {
	ens, err := leaves.XGEnsembleFromFile(path, true)
	if err != nil {
		return nil, fmt.Errorf("xgboost: load %s: %w", path, err)
	}
	return &XGBoost{ens: ens}, nil
}

func (x *XGBoost) NumFeatures() int { return x.ens.NFeatures() }

func (x *XGBoost) NumOutputs() int { return x.ens.NOutputGroups() }

// Predict evaluates every estimator on one row.
func (x *XGBoost) Predict(features []float64) ([]float64, error) {
	if len(features) != x.ens.NFeatures() {
		return nil, fmt.Errorf("%w: model expects %d, got %d", ErrFeatureCount, x.ens.NFeatures(), len(features))
	}
	out := make([]float64, x.ens.NOutputGroups())
	if err := x.ens.Predict(features, 0, out); err != nil {
		return nil, fmt.Errorf("xgboost: predict: %w", err)
	}
	return out, nil
}
