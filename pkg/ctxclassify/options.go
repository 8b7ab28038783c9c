package ctxclassify

import "path/filepath"

type options struct {
	artifactDir      string
	metaPath         string
	embeddingPath    string
	classifierPath   string
	embeddingBackend string
	vocabPath        string
	projectionPath   string
	classifierFormat string
	parsePolicy      string
	normalization    string
}

// Option configures a Classifier.
type Option func(*options)

// WithArtifactDir sets the directory containing the artifacts.
// Expects: meta.json, fasttext_model.bin, lgbm_model.txt.
func WithArtifactDir(dir string) Option {
	return func(o *options) {
		o.artifactDir = dir
	}
}

// WithPaths sets explicit artifact paths. Empty values fall back to the
// artifact directory layout.
func WithPaths(meta, embedding, classifier string) Option {
	return func(o *options) {
		o.metaPath = meta
		o.embeddingPath = embedding
		o.classifierPath = classifier
	}
}

// WithONNXEmbedder switches the embedding model to a BERT-style ONNX encoder
// with its WordPiece vocab and an optional dense projection.
func WithONNXEmbedder(model, vocab, projection string) Option {
	return func(o *options) {
		o.embeddingBackend = "onnx"
		o.embeddingPath = model
		o.vocabPath = vocab
		o.projectionPath = projection
	}
}

// WithClassifierFormat sets the classifier artifact format: "lightgbm" or
// "xgboost". Default: "lightgbm".
func WithClassifierFormat(format string) Option {
	return func(o *options) {
		o.classifierFormat = format
	}
}

// WithParsePolicy sets the numeric parse policy: "zero-fill" or "fail-fast".
// Default: "zero-fill".
func WithParsePolicy(p string) Option {
	return func(o *options) {
		o.parsePolicy = p
	}
}

// WithNormalization sets the text normalization policy: "basic-v1" or
// "strict-v1". Default: "basic-v1".
func WithNormalization(n string) Option {
	return func(o *options) {
		o.normalization = n
	}
}

func defaultOptions() options {
	return options{
		artifactDir:      "artifacts",
		embeddingBackend: "fasttext",
		classifierFormat: "lightgbm",
		parsePolicy:      "zero-fill",
		normalization:    "basic-v1",
	}
}

// resolvePaths returns the meta, embedding and classifier paths. Explicit
// paths take precedence over artifactDir.
func resolvePaths(o options) (meta, embedding, classifier string) {
	pick := func(explicit, name string) string {
		if explicit != "" {
			return explicit
		}
		return filepath.Join(o.artifactDir, name)
	}
	classifierName := "lgbm_model.txt"
	if o.classifierFormat == "xgboost" {
		classifierName = "xgb_model.bin"
	}
	return pick(o.metaPath, "meta.json"),
		pick(o.embeddingPath, "fasttext_model.bin"),
		pick(o.classifierPath, classifierName)
}
