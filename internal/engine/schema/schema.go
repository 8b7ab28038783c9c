package schema

import (
	"errors"
	"fmt"
	"slices"

	"github.com/crimson-sun/ctxclassify/internal/model"
)

// ErrMissingKey is returned when the metadata artifact lacks a required key.
var ErrMissingKey = errors.New("schema: missing required key")

// Schema describes the feature layout the classifier was trained with and the
// order of its output classes. It is immutable once loaded.
type Schema struct {
	numericCols  []string
	textCols     []string
	embeddingDim int
	classes      []string
}

// New builds a Schema and validates it.
func New(numericCols, textCols []string, embeddingDim int, classes []string) (*Schema, error) {
	s := &Schema{
		numericCols:  slices.Clone(numericCols),
		textCols:     slices.Clone(textCols),
		embeddingDim: embeddingDim,
		classes:      slices.Clone(classes),
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Schema) validate() error {
	if s.embeddingDim <= 0 {
		return fmt.Errorf("schema: embedding_dim must be positive, got %d", s.embeddingDim)
	}
	if len(s.classes) == 0 {
		return fmt.Errorf("schema: classes must not be empty")
	}
	for _, list := range []struct {
		key   string
		names []string
	}{
		{"numeric_cols", s.numericCols},
		{"text_cols", s.textCols},
		{"classes", s.classes},
	} {
		if dup, ok := firstDuplicate(list.names); ok {
			return fmt.Errorf("schema: duplicate entry %q in %s", dup, list.key)
		}
	}
	return nil
}

func firstDuplicate(names []string) (string, bool) {
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			return n, true
		}
		seen[n] = struct{}{}
	}
	return "", false
}

// NumericCols returns the numeric field names in vector order.
func (s *Schema) NumericCols() []string { return slices.Clone(s.numericCols) }

// TextCols returns the text field names in concatenation order.
func (s *Schema) TextCols() []string { return slices.Clone(s.textCols) }

// Classes returns the class labels, index-aligned with classifier output.
func (s *Schema) Classes() []string { return slices.Clone(s.classes) }

// EmbeddingDim returns the expected embedding length.
func (s *Schema) EmbeddingDim() int { return s.embeddingDim }

// NumericCount returns the number of numeric features.
func (s *Schema) NumericCount() int { return len(s.numericCols) }

// FeatureCount is the full vector length: numeric fields then the embedding.
func (s *Schema) FeatureCount() int { return len(s.numericCols) + s.embeddingDim }

// Class returns the label at index i.
func (s *Schema) Class(i int) string { return s.classes[i] }

// NumClasses returns the number of output classes.
func (s *Schema) NumClasses() int { return len(s.classes) }

// Summary returns the printable view of the schema.
func (s *Schema) Summary() model.SchemaSummary {
	return model.SchemaSummary{
		NumericCols:   len(s.numericCols),
		TextCols:      len(s.textCols),
		EmbeddingDim:  s.embeddingDim,
		Classes:       s.Classes(),
		TotalFeatures: s.FeatureCount(),
	}
}
