package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/ctxclassify/internal/engine/schema"
	"github.com/crimson-sun/ctxclassify/internal/engine/testdata"
	"github.com/crimson-sun/ctxclassify/internal/model"
)

// execute runs the root command with args and returns stdout. Flags are
// reset first since rootCmd is shared across tests.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, key := range []string{
		"CTXCLASSIFY_ARTIFACT_DIR", "CTXCLASSIFY_META_PATH", "CTXCLASSIFY_EMBEDDING_PATH",
		"CTXCLASSIFY_CLASSIFIER_PATH", "CTXCLASSIFY_EMBEDDING_BACKEND", "CTXCLASSIFY_CLASSIFIER_FORMAT",
		"CTXCLASSIFY_RECORD_PATH", "CTXCLASSIFY_VERBOSITY", "CTXCLASSIFY_JSON", "CTXCLASSIFY_PREVIEW",
		"CTXCLASSIFY_PARSE_POLICY", "CTXCLASSIFY_NORMALIZATION", "CTXCLASSIFY_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
	reset := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	reset(rootCmd.PersistentFlags())
	reset(rootCmd.Flags())

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func artifactDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "artifacts")
	testdata.WriteArtifacts(t, dir)
	return dir
}

func TestClassifyDefaultRecord(t *testing.T) {
	dir := artifactDir(t)

	out, err := execute(t, "--artifacts", dir)
	require.NoError(t, err)

	for _, want := range []string{
		"Loaded meta.json: 30 numeric_cols, 9 text_cols, embedding_dim=4, classes=[game multimedia system]",
		"Expected total features for classifier: 34",
		"Loading embedding model from: " + filepath.Join(dir, "fasttext_model.bin"),
		"Embedding model loaded. Dimension: 4",
		"Loading classifier from: " + filepath.Join(dir, "lgbm_model.txt"),
		"Generating feature vector...",
		"Generated feature vector size: 34",
		"Generated feature vector (first 10 elements): [10.5 2 10240 20480 25000 0 8000 10000 22000 15000]",
		"Prediction successful!",
		"Predicted label: game, Probability: 0.6652",
		"Inference finished.",
	} {
		assert.Contains(t, out, want)
	}
}

func TestClassifyJSON(t *testing.T) {
	dir := artifactDir(t)

	out, err := execute(t, "--artifacts", dir, "--json", "--verbosity", "full")
	require.NoError(t, err)

	var report struct {
		RunID        string    `json:"run_id"`
		FeatureCount int       `json:"feature_count"`
		Features     []float64 `json:"features"`
		Text         string    `json:"text"`
		ParsePolicy  string    `json:"parse_policy"`
		Norm         string    `json:"normalization"`
		Prediction   struct {
			Label         string    `json:"label"`
			Probabilities []float64 `json:"probabilities"`
		} `json:"prediction"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report), out)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 34, report.FeatureCount)
	assert.Len(t, report.Features, 34)
	assert.InDeltaSlice(t, []float64{0.5, 0.5, 0, 0}, report.Features[30:], 1e-6)
	assert.Contains(t, report.Text, "example_app")
	assert.Equal(t, "zero-fill", report.ParsePolicy)
	assert.Equal(t, "basic-v1", report.Norm)
	assert.Equal(t, "game", report.Prediction.Label)
	assert.Len(t, report.Prediction.Probabilities, 3)
}

func TestClassifyRecordFile(t *testing.T) {
	dir := artifactDir(t)
	rec := filepath.Join(t.TempDir(), "record.yaml")
	require.NoError(t, os.WriteFile(rec, []byte("cpu_time: 1\ncomm: idle\n"), 0o644))

	out, err := execute(t, "--artifacts", dir, "--record", rec, "--verbosity", "minimal")
	require.NoError(t, err)

	// cpu_time <= 5 and an all-zero embedding favour "system".
	assert.Contains(t, out, "Predicted label: system")
	assert.NotContains(t, out, "Predicted probabilities")
}

func TestClassifyVerbosityIgnoresCase(t *testing.T) {
	dir := artifactDir(t)

	out, err := execute(t, "--artifacts", dir, "--verbosity", "FULL")
	require.NoError(t, err)
	assert.Contains(t, out, "Generated feature vector: [")
	assert.Contains(t, out, "Predicted label: game")
}

func TestClassifyJSONNonFiniteFeatures(t *testing.T) {
	dir := artifactDir(t)
	rec := filepath.Join(t.TempDir(), "record.json")
	require.NoError(t, os.WriteFile(rec, []byte(`{"cpu_time": "1e400", "threads": "nan", "rss": "-inf"}`), 0o644))

	out, err := execute(t, "--artifacts", dir, "--record", rec, "--json", "--verbosity", "full")
	require.NoError(t, err)

	var report struct {
		Features   model.Floats      `json:"features"`
		Prediction *model.Prediction `json:"prediction"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report), out)
	require.Len(t, report.Features, 34)
	assert.True(t, math.IsInf(report.Features[0], 1))
	assert.True(t, math.IsNaN(report.Features[1]))
	assert.True(t, math.IsInf(report.Features[2], -1))
	require.NotNil(t, report.Prediction)
	assert.NotEmpty(t, report.Prediction.Label)
}

func TestClassifyFailFastRejectsBadRecord(t *testing.T) {
	dir := artifactDir(t)
	rec := filepath.Join(t.TempDir(), "record.json")
	require.NoError(t, os.WriteFile(rec, []byte(`{"cpu_time": "n/a"}`), 0o644))

	_, err := execute(t, "--artifacts", dir, "--record", rec, "--parse-policy", "fail-fast")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "building feature vector")
}

func TestClassifyPredictionFailureIsNotFatal(t *testing.T) {
	dir := artifactDir(t)
	// A schema with one numeric column fewer than the classifier expects.
	s, err := schema.Load(filepath.Join(dir, "meta.json"))
	require.NoError(t, err)
	meta := map[string]any{
		"numeric_cols":  s.NumericCols()[1:],
		"text_cols":     s.TextCols(),
		"embedding_dim": s.EmbeddingDim(),
		"classes":       s.Classes(),
	}
	data, err := json.Marshal(meta)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "meta.json"), data, 0o644))

	out, err := execute(t, "--artifacts", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Error during prediction:")
	assert.Contains(t, out, "feature count mismatch")
	assert.Contains(t, out, "Inference finished.")
}

func TestClassifyMissingArtifacts(t *testing.T) {
	tests := []struct {
		name   string
		remove string
		want   string
	}{
		{"metadata", "meta.json", "loading metadata"},
		{"embedding model", "fasttext_model.bin", "loading embedding model"},
		{"classifier", "lgbm_model.txt", "loading classifier"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := artifactDir(t)
			require.NoError(t, os.Remove(filepath.Join(dir, tt.remove)))

			_, err := execute(t, "--artifacts", dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.True(t, errors.Is(err, os.ErrNotExist), "expected ErrNotExist in chain: %v", err)
		})
	}
}

func TestClassifyDimensionMismatch(t *testing.T) {
	dir := artifactDir(t)
	meta := filepath.Join(dir, "meta.json")
	data, err := os.ReadFile(meta)
	require.NoError(t, err)
	data = []byte(strings.Replace(string(data), `"embedding_dim": 4`, `"embedding_dim": 8`, 1))
	require.NoError(t, os.WriteFile(meta, data, 0o644))

	_, err = execute(t, "--artifacts", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension mismatch")
}

func TestClassifyInvalidFlag(t *testing.T) {
	_, err := execute(t, "--artifacts", t.TempDir(), "--normalization", "basic-v9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "normalization")
}

func TestSchemaCmd(t *testing.T) {
	dir := artifactDir(t)

	out, err := execute(t, "schema", "--artifacts", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "numeric_cols (30): cpu_time, threads,")
	assert.Contains(t, out, "text_cols (9): attr, cgroup, cmdline")
	assert.Contains(t, out, "classes (3): game, multimedia, system")
	assert.Contains(t, out, "total features: 34")
}

func TestSchemaCmdJSON(t *testing.T) {
	dir := artifactDir(t)

	out, err := execute(t, "schema", "--artifacts", dir, "--json")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, float64(34), got["total_features"])
}

func TestVersionCmd(t *testing.T) {
	originalVersion := version
	version = "test-version-1.0.0"
	defer func() { version = originalVersion }()

	out, err := execute(t, "version")
	assert.NoError(t, err)
	assert.Contains(t, out, "ctxclassify version test-version-1.0.0")
}
