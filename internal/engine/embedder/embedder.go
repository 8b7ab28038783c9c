package embedder

import "fmt"

// Embedder produces a fixed-length sentence vector from text.
type Embedder interface {
	Embed(text string) ([]float32, error)
	Dim() int
	Close() error
}

// Backend selects the embedding model implementation.
type Backend string

const (
	// FastText reads a fastText binary model (.bin).
	FastText Backend = "fasttext"
	// ONNX runs a BERT-style sentence encoder through ONNX Runtime.
	ONNX Backend = "onnx"
)

// Config locates the embedding model artifacts.
type Config struct {
	Backend        Backend
	ModelPath      string
	VocabPath      string // onnx only
	ProjectionPath string // onnx only, optional
}

// Open loads the embedding model described by cfg.
func Open(cfg Config) (Embedder, error) {
	switch cfg.Backend {
	case FastText, "":
		ft, err := LoadFastText(cfg.ModelPath)
		if err != nil {
			return nil, err
		}
		return ft, nil
	case ONNX:
		e, err := NewONNX(cfg.ModelPath, cfg.VocabPath, cfg.ProjectionPath)
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("embedder: unknown backend %q", cfg.Backend)
	}
}
