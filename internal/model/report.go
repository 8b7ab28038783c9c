package model

// SchemaSummary is the printable view of a loaded schema.
type SchemaSummary struct {
	NumericCols   int      `json:"numeric_cols"`
	TextCols      int      `json:"text_cols"`
	EmbeddingDim  int      `json:"embedding_dim"`
	Classes       []string `json:"classes"`
	TotalFeatures int      `json:"total_features"`
}

// Report describes one end-to-end inference run.
type Report struct {
	RunID          string        `json:"run_id"`
	MetaPath       string        `json:"meta_path"`
	EmbeddingPath  string        `json:"embedding_path"`
	ClassifierPath string        `json:"classifier_path"`
	Schema         SchemaSummary `json:"schema"`
	EmbeddingDim   int           `json:"embedding_model_dim"`
	ParsePolicy    string        `json:"parse_policy"`
	Normalization  string        `json:"normalization"`
	FeatureCount   int           `json:"feature_count"`
	Text           string        `json:"text,omitempty"`     // normalized embedding input
	Features       Floats        `json:"features,omitempty"` // preview or full vector, per verbosity
	Prediction     *Prediction   `json:"prediction,omitempty"`
	PredictionErr  string        `json:"prediction_error,omitempty"`
}
