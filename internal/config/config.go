package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all ctxclassify configuration.
type Config struct {
	Artifacts ArtifactConfig
	Engine    EngineConfig
	Output    OutputConfig
	LogLevel  string
}

// ArtifactConfig locates the model artifacts. Empty paths resolve to the
// default file names inside Dir.
type ArtifactConfig struct {
	Dir              string
	MetaPath         string
	EmbeddingPath    string
	EmbeddingBackend string // "fasttext", "onnx"
	VocabPath        string
	ProjectionPath   string
	ClassifierPath   string
	ClassifierFormat string // "lightgbm", "xgboost"
}

// EngineConfig holds feature-building settings.
type EngineConfig struct {
	ParsePolicy   string // "zero-fill", "fail-fast"
	Normalization string // "basic-v1", "strict-v1"
	RecordPath    string // empty: built-in demo record
}

// OutputConfig holds report settings.
type OutputConfig struct {
	Verbosity string // "minimal", "standard", "full"
	Preview   int
	JSON      bool
}

// Load reads configuration from environment variables with defaults that
// reproduce the reference harness. A .env file in the working directory is
// applied first; variables already set take precedence.
func Load() Config {
	if err := loadDotEnv(); err != nil {
		slog.Warn("failed to load .env file", "error", err)
	}

	return Config{
		Artifacts: ArtifactConfig{
			Dir:              getenv("CTXCLASSIFY_ARTIFACT_DIR", "artifacts"),
			MetaPath:         os.Getenv("CTXCLASSIFY_META_PATH"),
			EmbeddingPath:    os.Getenv("CTXCLASSIFY_EMBEDDING_PATH"),
			EmbeddingBackend: getenv("CTXCLASSIFY_EMBEDDING_BACKEND", "fasttext"),
			VocabPath:        os.Getenv("CTXCLASSIFY_VOCAB_PATH"),
			ProjectionPath:   os.Getenv("CTXCLASSIFY_PROJECTION_PATH"),
			ClassifierPath:   os.Getenv("CTXCLASSIFY_CLASSIFIER_PATH"),
			ClassifierFormat: getenv("CTXCLASSIFY_CLASSIFIER_FORMAT", "lightgbm"),
		},
		Engine: EngineConfig{
			ParsePolicy:   getenv("CTXCLASSIFY_PARSE_POLICY", "zero-fill"),
			Normalization: getenv("CTXCLASSIFY_NORMALIZATION", "basic-v1"),
			RecordPath:    os.Getenv("CTXCLASSIFY_RECORD_PATH"),
		},
		Output: OutputConfig{
			Verbosity: getenv("CTXCLASSIFY_VERBOSITY", "standard"),
			Preview:   getenvInt("CTXCLASSIFY_PREVIEW", 10),
			JSON:      getenvBool("CTXCLASSIFY_JSON", false),
		},
		LogLevel: getenv("CTXCLASSIFY_LOG_LEVEL", "info"),
	}
}

func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("config: load .env: %w", err)
	}
	return nil
}

// Meta returns the schema artifact path.
func (a ArtifactConfig) Meta() string {
	return a.resolve(a.MetaPath, "meta.json")
}

// Embedding returns the embedding model path for the configured backend.
func (a ArtifactConfig) Embedding() string {
	if a.EmbeddingBackend == "onnx" {
		return a.resolve(a.EmbeddingPath, filepath.Join("onnx", "model_quantized.onnx"))
	}
	return a.resolve(a.EmbeddingPath, "fasttext_model.bin")
}

// Vocab returns the WordPiece vocabulary path used by the onnx backend.
func (a ArtifactConfig) Vocab() string {
	return a.resolve(a.VocabPath, filepath.Join("onnx", "vocab.txt"))
}

// Classifier returns the classifier model path for the configured format.
func (a ArtifactConfig) Classifier() string {
	if a.ClassifierFormat == "xgboost" {
		return a.resolve(a.ClassifierPath, "xgb_model.bin")
	}
	return a.resolve(a.ClassifierPath, "lgbm_model.txt")
}

func (a ArtifactConfig) resolve(explicit, name string) string {
	if explicit != "" {
		return explicit
	}
	return filepath.Join(a.Dir, name)
}

// Validate checks that every enumerated setting holds a known value.
// All problems are reported together.
func (c Config) Validate() error {
	var errs []error
	check := func(name, value string, allowed ...string) {
		if !slices.Contains(allowed, value) {
			errs = append(errs, fmt.Errorf("%s: unknown value %q (want one of %v)", name, value, allowed))
		}
	}

	check("embedding backend", c.Artifacts.EmbeddingBackend, "fasttext", "onnx")
	check("classifier format", c.Artifacts.ClassifierFormat, "lightgbm", "xgboost")
	check("parse policy", c.Engine.ParsePolicy, "zero-fill", "fail-fast")
	check("normalization", c.Engine.Normalization, "basic-v1", "strict-v1")
	check("verbosity", strings.ToLower(c.Output.Verbosity), "minimal", "standard", "full")
	check("log level", strings.ToLower(c.LogLevel), "debug", "info", "warn", "warning", "error")

	if c.Artifacts.Dir == "" && (c.Artifacts.MetaPath == "" || c.Artifacts.EmbeddingPath == "" || c.Artifacts.ClassifierPath == "") {
		errs = append(errs, errors.New("artifact dir: must be set unless every artifact path is explicit"))
	}
	if c.Output.Preview < 0 {
		errs = append(errs, fmt.Errorf("preview: must not be negative, got %d", c.Output.Preview))
	}
	return errors.Join(errs...)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
