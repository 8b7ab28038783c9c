package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// document mirrors the metadata artifact. Pointer fields distinguish an
// absent key from an empty value.
type document struct {
	TextCols     *[]string `json:"text_cols" yaml:"text_cols" toml:"text_cols"`
	NumericCols  *[]string `json:"numeric_cols" yaml:"numeric_cols" toml:"numeric_cols"`
	EmbeddingDim *int      `json:"embedding_dim" yaml:"embedding_dim" toml:"embedding_dim"`
	Classes      *[]string `json:"classes" yaml:"classes" toml:"classes"`
}

// Load reads a metadata artifact. The format is chosen by extension: .yaml
// and .yml are YAML, .toml is TOML, anything else is JSON.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	return Parse(data, formatOf(path))
}

// Format identifies a metadata encoding.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
	TOML Format = "toml"
)

func formatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	case ".toml":
		return TOML
	default:
		return JSON
	}
}

// Parse decodes metadata in the given format and validates it.
func Parse(data []byte, format Format) (*Schema, error) {
	var doc document
	var err error
	switch format {
	case YAML:
		err = yaml.Unmarshal(data, &doc)
	case TOML:
		err = toml.NewDecoder(bytes.NewReader(data)).Decode(&doc)
	default:
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("schema: parse %s: %w", format, err)
	}

	missing := doc.missingKeys()
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingKey, strings.Join(missing, ", "))
	}
	return New(*doc.NumericCols, *doc.TextCols, *doc.EmbeddingDim, *doc.Classes)
}

func (d document) missingKeys() []string {
	var missing []string
	if d.TextCols == nil {
		missing = append(missing, "text_cols")
	}
	if d.NumericCols == nil {
		missing = append(missing, "numeric_cols")
	}
	if d.EmbeddingDim == nil {
		missing = append(missing, "embedding_dim")
	}
	if d.Classes == nil {
		missing = append(missing, "classes")
	}
	return missing
}
