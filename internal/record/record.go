// Package record provides the built-in demo records and reads raw records
// from JSON or YAML files.
package record

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/crimson-sun/ctxclassify/internal/model"
)

//go:embed records.json
var recordsJSON []byte

// DefaultSample names the record used when no record file is given.
const DefaultSample = "example_app"

// Sample is a named raw record.
type Sample struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Record      model.RawRecord `json:"record"`
}

// Samples parses the embedded records.json.
func Samples() ([]Sample, error) {
	var samples []Sample
	if err := json.Unmarshal(recordsJSON, &samples); err != nil {
		return nil, fmt.Errorf("parse records.json: %w", err)
	}
	return samples, nil
}

// Lookup returns the embedded sample with the given name.
func Lookup(name string) (Sample, error) {
	samples, err := Samples()
	if err != nil {
		return Sample{}, err
	}
	for _, s := range samples {
		if s.Name == name {
			return s, nil
		}
	}
	return Sample{}, fmt.Errorf("record: no sample named %q", name)
}

// Default returns the reference demo record.
func Default() (model.RawRecord, error) {
	s, err := Lookup(DefaultSample)
	if err != nil {
		return nil, err
	}
	return s.Record, nil
}

// Load reads one flat record from a JSON or YAML file. Scalar values
// keep their textual form; nulls are treated as absent fields.
func Load(path string) (model.RawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("record: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return parseYAMLRecord(data)
	default:
		return parseJSONRecord(data)
	}
}

func parseJSONRecord(data []byte) (model.RawRecord, error) {
	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("record: parse json: %w", err)
	}

	rec := make(model.RawRecord, len(fields))
	for k, v := range fields {
		switch v := v.(type) {
		case nil:
		case string:
			rec[k] = v
		case json.Number:
			rec[k] = v.String()
		case bool:
			rec[k] = fmt.Sprint(v)
		default:
			return nil, fmt.Errorf("record: field %q is not a scalar", k)
		}
	}
	return rec, nil
}

func parseYAMLRecord(data []byte) (model.RawRecord, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("record: parse yaml: %w", err)
	}
	if len(doc.Content) == 0 {
		return model.RawRecord{}, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("record: yaml document is not a mapping")
	}

	rec := make(model.RawRecord, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("record: field %q is not a scalar", key.Value)
		}
		if val.Tag == "!!null" {
			continue
		}
		rec[key.Value] = val.Value
	}
	return rec, nil
}
