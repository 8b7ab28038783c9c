package ctxclassify

import (
	"fmt"

	"github.com/crimson-sun/ctxclassify/internal/engine"
	"github.com/crimson-sun/ctxclassify/internal/engine/classifier"
	"github.com/crimson-sun/ctxclassify/internal/engine/embedder"
	"github.com/crimson-sun/ctxclassify/internal/engine/features"
	"github.com/crimson-sun/ctxclassify/internal/engine/schema"
	"github.com/crimson-sun/ctxclassify/internal/model"
)

// Classifier turns raw process records into class predictions.
// It is not safe for concurrent use.
type Classifier struct {
	engine *engine.Engine
	schema *schema.Schema
}

// New loads the schema, the embedding model and the classifier. Any missing
// or corrupt artifact is an error.
func New(opts ...Option) (*Classifier, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	metaPath, embPath, clsPath := resolvePaths(o)

	policy, err := features.ParsePolicyFor(o.parsePolicy)
	if err != nil {
		return nil, fmt.Errorf("ctxclassify: %w", err)
	}
	norm, err := features.NormalizerFor(o.normalization)
	if err != nil {
		return nil, fmt.Errorf("ctxclassify: %w", err)
	}

	s, err := schema.Load(metaPath)
	if err != nil {
		return nil, fmt.Errorf("ctxclassify: %w", err)
	}

	emb, err := embedder.Open(embedder.Config{
		Backend:        embedder.Backend(o.embeddingBackend),
		ModelPath:      embPath,
		VocabPath:      o.vocabPath,
		ProjectionPath: o.projectionPath,
	})
	if err != nil {
		return nil, fmt.Errorf("ctxclassify: %w", err)
	}

	m, err := classifier.Load(clsPath, classifier.Format(o.classifierFormat))
	if err != nil {
		emb.Close()
		return nil, fmt.Errorf("ctxclassify: %w", err)
	}

	eng, err := engine.New(s, emb, classifier.New(m, s.Classes()),
		features.WithParsePolicy(policy), features.WithNormalizer(norm))
	if err != nil {
		emb.Close()
		return nil, fmt.Errorf("ctxclassify: %w", err)
	}
	return &Classifier{engine: eng, schema: s}, nil
}

// Schema returns the loaded feature layout.
func (c *Classifier) Schema() Schema {
	return Schema{
		NumericCols:  c.schema.NumericCols(),
		TextCols:     c.schema.TextCols(),
		EmbeddingDim: c.schema.EmbeddingDim(),
		Classes:      c.schema.Classes(),
	}
}

// FeatureVector returns the classifier input for record: numeric fields in
// schema order followed by the text embedding.
func (c *Classifier) FeatureVector(record map[string]string) ([]float64, error) {
	return c.engine.Features(model.RawRecord(record))
}

// Classify builds the feature vector for record and predicts its class.
func (c *Classifier) Classify(record map[string]string) (Prediction, error) {
	p, err := c.engine.Classify(model.RawRecord(record))
	if err != nil {
		return Prediction{}, err
	}
	return Prediction{
		Label:         p.Label,
		Probability:   p.Probability,
		Index:         p.Index,
		Probabilities: p.Probabilities,
	}, nil
}

// Close releases the embedding model.
func (c *Classifier) Close() error {
	return c.engine.Close()
}
