package model

// Prediction is the classifier output for one feature vector.
type Prediction struct {
	Probabilities []float64 `json:"probabilities"` // one per class, schema order
	Index         int       `json:"index"`
	Label         string    `json:"label"`
	Probability   float64   `json:"probability"`
}
