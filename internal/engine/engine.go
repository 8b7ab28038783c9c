package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/crimson-sun/ctxclassify/internal/engine/classifier"
	"github.com/crimson-sun/ctxclassify/internal/engine/embedder"
	"github.com/crimson-sun/ctxclassify/internal/engine/features"
	"github.com/crimson-sun/ctxclassify/internal/engine/schema"
	"github.com/crimson-sun/ctxclassify/internal/model"
)

// ErrDimensionMismatch is returned when the embedding model's output size
// differs from the schema's embedding_dim.
var ErrDimensionMismatch = errors.New("engine: embedding dimension mismatch")

// Engine orchestrates the build → predict pipeline for one loaded artifact set.
type Engine struct {
	schema     *schema.Schema
	embedder   embedder.Embedder
	classifier *classifier.Classifier
	builder    *features.Builder
}

// New wires the loaded schema, embedding model and classifier. The embedding
// model must produce schema.EmbeddingDim() values. A classifier whose feature
// count disagrees with the schema is accepted; Predict reports the mismatch.
func New(s *schema.Schema, emb embedder.Embedder, cls *classifier.Classifier, opts ...features.Option) (*Engine, error) {
	if emb.Dim() != s.EmbeddingDim() {
		return nil, fmt.Errorf("%w: model produces %d, schema expects %d",
			ErrDimensionMismatch, emb.Dim(), s.EmbeddingDim())
	}
	if cls.NumFeatures() != s.FeatureCount() {
		slog.Warn("classifier feature count differs from schema",
			"classifier", cls.NumFeatures(), "schema", s.FeatureCount())
	}
	return &Engine{
		schema:     s,
		embedder:   emb,
		classifier: cls,
		builder:    features.New(s, emb, opts...),
	}, nil
}

// Schema returns the loaded schema.
func (e *Engine) Schema() *schema.Schema { return e.schema }

// Builder returns the feature builder.
func (e *Engine) Builder() *features.Builder { return e.builder }

// Features builds the feature vector for one record.
func (e *Engine) Features(rec model.RawRecord) ([]float64, error) {
	return e.builder.Build(rec)
}

// Predict runs the classifier on a feature vector.
func (e *Engine) Predict(vec []float64) (model.Prediction, error) {
	return e.classifier.Predict(vec)
}

// Classify builds the feature vector for rec and predicts its class.
func (e *Engine) Classify(rec model.RawRecord) (model.Prediction, error) {
	vec, err := e.Features(rec)
	if err != nil {
		return model.Prediction{}, err
	}
	return e.Predict(vec)
}

// Close releases the embedding model.
func (e *Engine) Close() error {
	return e.embedder.Close()
}
