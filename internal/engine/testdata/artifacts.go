// Package testdata writes a small synthetic artifact set for tests.
package testdata

import (
	_ "embed"
	"os"
	"path/filepath"
	"testing"

	"github.com/crimson-sun/ctxclassify/internal/engine/embedder/fasttexttest"
)

//go:embed meta.json
var metaJSON []byte

//go:embed lgbm_model.txt
var lgbmModel []byte

// Artifact file names, matching the layout of a trained artifact directory.
const (
	MetaFile       = "meta.json"
	EmbeddingFile  = "fasttext_model.bin"
	ClassifierFile = "lgbm_model.txt"
)

// WriteArtifacts writes a small but complete artifact set to dir: a schema
// over the demo record's fields, a 4-dimensional fastText model and a
// three-class LightGBM model. The default record classifies as "game".
//
// The fastText vocabulary holds "example_app" and "started", so the demo
// record embeds to [0.5, 0.5, 0, 0]. The classifier scores class "game"
// +1 when cpu_time > 5 and class "system" +1 when the first embedding value
// is not positive; "multimedia" is constant.
func WriteArtifacts(t testing.TB, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for name, data := range map[string][]byte{
		MetaFile:       metaJSON,
		ClassifierFile: lgbmModel,
	} {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	fasttexttest.Write(t, filepath.Join(dir, EmbeddingFile), fasttexttest.Model{
		Dim:   4,
		Words: []string{"example_app", "started"},
		Rows:  [][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}},
	})
}
