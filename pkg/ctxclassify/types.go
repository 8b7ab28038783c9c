package ctxclassify

// Prediction is the classifier output for one record.
type Prediction struct {
	Label         string    `json:"label"`
	Probability   float64   `json:"probability"`
	Index         int       `json:"index"`
	Probabilities []float64 `json:"probabilities"` // one per class, in Schema.Classes order
}

// Schema is the feature layout of the loaded artifacts.
type Schema struct {
	NumericCols  []string `json:"numeric_cols"`
	TextCols     []string `json:"text_cols"`
	EmbeddingDim int      `json:"embedding_dim"`
	Classes      []string `json:"classes"`
}

// FeatureCount is the length of every feature vector.
func (s Schema) FeatureCount() int { return len(s.NumericCols) + s.EmbeddingDim }
