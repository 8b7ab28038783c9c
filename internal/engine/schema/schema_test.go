package schema

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const metaJSON = `{
  "text_cols": ["comm", "cmdline"],
  "numeric_cols": ["cpu_time", "threads", "rss"],
  "embedding_dim": 4,
  "classes": ["Game", "Browser", "Other"],
  "label_col": "category"
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadJSON(t *testing.T) {
	s, err := Load(writeFile(t, "meta.json", metaJSON))
	require.NoError(t, err)

	assert.Equal(t, []string{"cpu_time", "threads", "rss"}, s.NumericCols())
	assert.Equal(t, []string{"comm", "cmdline"}, s.TextCols())
	assert.Equal(t, []string{"Game", "Browser", "Other"}, s.Classes())
	assert.Equal(t, 4, s.EmbeddingDim())
	assert.Equal(t, 7, s.FeatureCount())
	assert.Equal(t, 3, s.NumericCount())
	assert.Equal(t, "Browser", s.Class(1))
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "meta.yaml", `
text_cols: [c]
numeric_cols: [a, b]
embedding_dim: 4
classes: [X, Y]
`)
	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, s.NumericCols())
	assert.Equal(t, 6, s.FeatureCount())
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "meta.toml", `
text_cols = ["c"]
numeric_cols = ["a", "b"]
embedding_dim = 4
classes = ["X", "Y"]
`)
	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y"}, s.Classes())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "meta.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadMissingKeys(t *testing.T) {
	tests := []struct {
		name    string
		content string
		missing string
	}{
		{"no classes", `{"text_cols":[],"numeric_cols":[],"embedding_dim":4}`, "classes"},
		{"no embedding_dim", `{"text_cols":[],"numeric_cols":[],"classes":["X"]}`, "embedding_dim"},
		{"null text_cols", `{"text_cols":null,"numeric_cols":[],"embedding_dim":4,"classes":["X"]}`, "text_cols"},
		{"empty document", `{}`, "numeric_cols"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "meta.json", tt.content))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMissingKey)
			assert.Contains(t, err.Error(), tt.missing)
		})
	}
}

func TestLoadEmptyListsAllowed(t *testing.T) {
	s, err := Load(writeFile(t, "meta.json",
		`{"text_cols":[],"numeric_cols":[],"embedding_dim":2,"classes":["only"]}`))
	require.NoError(t, err)
	assert.Equal(t, 2, s.FeatureCount())
	assert.Empty(t, s.TextCols())
}

func TestLoadMalformed(t *testing.T) {
	_, err := Load(writeFile(t, "meta.json", `{"text_cols": [`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse json")
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		numeric []string
		text    []string
		dim     int
		classes []string
		want    string
	}{
		{"zero dim", nil, nil, 0, []string{"X"}, "embedding_dim"},
		{"no classes", nil, nil, 4, nil, "classes must not be empty"},
		{"duplicate numeric", []string{"a", "a"}, nil, 4, []string{"X"}, `duplicate entry "a" in numeric_cols`},
		{"duplicate class", nil, nil, 4, []string{"X", "X"}, "in classes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.numeric, tt.text, tt.dim, tt.classes)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	numeric := []string{"a", "b"}
	s, err := New(numeric, []string{"c"}, 4, []string{"X", "Y"})
	require.NoError(t, err)

	numeric[0] = "mutated"
	got := s.NumericCols()
	got[1] = "mutated"

	assert.Equal(t, []string{"a", "b"}, s.NumericCols())
}

func TestSummary(t *testing.T) {
	s, err := New([]string{"a", "b"}, []string{"c"}, 4, []string{"X", "Y"})
	require.NoError(t, err)

	sum := s.Summary()
	assert.Equal(t, 2, sum.NumericCols)
	assert.Equal(t, 1, sum.TextCols)
	assert.Equal(t, 4, sum.EmbeddingDim)
	assert.Equal(t, 6, sum.TotalFeatures)
	assert.Equal(t, []string{"X", "Y"}, sum.Classes)
}
