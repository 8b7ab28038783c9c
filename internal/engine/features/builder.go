// Package features turns a raw process record into the positional feature
// vector the classifier was trained on: numeric fields in schema order
// followed by the sentence embedding of the record's text fields.
package features

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/crimson-sun/ctxclassify/internal/engine/schema"
	"github.com/crimson-sun/ctxclassify/internal/model"
)

// TextEmbedder embeds the joined text of a record.
type TextEmbedder interface {
	Embed(text string) ([]float32, error)
}

// Builder builds feature vectors for one schema and embedding model.
type Builder struct {
	schema     *schema.Schema
	embedder   TextEmbedder
	policy     ParsePolicy
	normalizer Normalizer
}

// Option configures a Builder.
type Option func(*Builder)

// WithParsePolicy sets the numeric parse policy. Default ZeroFill.
func WithParsePolicy(p ParsePolicy) Option {
	return func(b *Builder) { b.policy = p }
}

// WithNormalizer sets the text normalization policy. Default basic-v1.
func WithNormalizer(n Normalizer) Option {
	return func(b *Builder) { b.normalizer = n }
}

// New creates a Builder.
func New(s *schema.Schema, emb TextEmbedder, opts ...Option) *Builder {
	b := &Builder{
		schema:     s,
		embedder:   emb,
		policy:     ZeroFill,
		normalizer: basic{},
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Policy returns the numeric parse policy in effect.
func (b *Builder) Policy() ParsePolicy { return b.policy }

// Normalizer returns the text normalization policy in effect.
func (b *Builder) Normalizer() Normalizer { return b.normalizer }

// Build returns a vector of length NumericCount()+EmbeddingDim(). The
// embedding tail stays zero, without calling the embedder, when the record
// has no text.
func (b *Builder) Build(rec model.RawRecord) ([]float64, error) {
	numeric := b.schema.NumericCols()
	vec := make([]float64, len(numeric)+b.schema.EmbeddingDim())

	for i, col := range numeric {
		v, err := b.numeric(rec, col)
		if err != nil {
			return nil, err
		}
		vec[i] = v
	}

	text := b.Text(rec)
	if text == "" {
		slog.Warn("no text features found, embedding left as zeros")
		return vec, nil
	}

	emb, err := b.embedder.Embed(text)
	if err != nil {
		return nil, fmt.Errorf("features: embed: %w", err)
	}
	if len(emb) != b.schema.EmbeddingDim() {
		return nil, fmt.Errorf("features: embedding has %d values, schema expects %d",
			len(emb), b.schema.EmbeddingDim())
	}
	for i, x := range emb {
		vec[len(numeric)+i] = float64(x)
	}

	slog.Debug("feature vector created", "size", len(vec), "text_len", len(text))
	return vec, nil
}

// Text returns the normalized text fields joined by single spaces in schema
// order, trimmed. Absent fields contribute an empty string.
func (b *Builder) Text(rec model.RawRecord) string {
	cols := b.schema.TextCols()
	parts := make([]string, len(cols))
	for i, col := range cols {
		v, _ := rec.Get(col)
		parts[i] = b.normalizer.Normalize(v)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func (b *Builder) numeric(rec model.RawRecord, col string) (float64, error) {
	raw, ok := rec.Get(col)
	if !ok {
		if b.policy == FailFast {
			return 0, fmt.Errorf("%w: field %q is missing", ErrInvalidNumeric, col)
		}
		return 0, nil
	}
	v, err := ParseNumeric(raw)
	if err != nil {
		if b.policy == FailFast {
			return 0, fmt.Errorf("field %q: %w", col, err)
		}
		slog.Debug("numeric field defaulted to zero", "field", col, "value", raw)
		return 0, nil
	}
	return v, nil
}
