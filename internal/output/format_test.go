package output

import (
	"encoding/json"
	"testing"

	"github.com/crimson-sun/ctxclassify/internal/model"
)

func baseReport() model.Report {
	return model.Report{
		RunID:        "run-1",
		FeatureCount: 12,
		Text:         "example_app /usr/bin/example_app",
		Features:     []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
		Prediction: &model.Prediction{
			Probabilities: []float64{0.1, 0.9},
			Index:         1,
			Label:         "game",
			Probability:   0.9,
		},
	}
}

func TestFormatReportMinimal(t *testing.T) {
	r := FormatReport(baseReport(), Minimal, 10)

	if r.Features != nil {
		t.Fatal("Features should be empty at Minimal")
	}
	if r.Text != "" {
		t.Fatal("Text should be empty at Minimal")
	}
	if r.Prediction == nil || r.Prediction.Label != "game" {
		t.Fatal("Prediction should be preserved")
	}
	if r.FeatureCount != 12 {
		t.Fatal("FeatureCount should be preserved")
	}
}

func TestFormatReportStandard(t *testing.T) {
	r := FormatReport(baseReport(), Standard, 10)

	if len(r.Features) != 10 {
		t.Fatalf("expected 10 preview values, got %d", len(r.Features))
	}
	if r.Text != "" {
		t.Fatal("Text should be empty at Standard")
	}
}

func TestFormatReportStandardShortVector(t *testing.T) {
	in := baseReport()
	in.Features = in.Features[:3]
	r := FormatReport(in, Standard, 10)

	if len(r.Features) != 3 {
		t.Fatalf("expected all 3 values, got %d", len(r.Features))
	}
}

func TestFormatReportFull(t *testing.T) {
	r := FormatReport(baseReport(), Full, 10)

	if len(r.Features) != 12 {
		t.Fatalf("expected full vector, got %d values", len(r.Features))
	}
	if r.Text == "" {
		t.Fatal("Text should be preserved at Full")
	}
}

func TestFormatReportDoesNotMutateInput(t *testing.T) {
	in := baseReport()
	_ = FormatReport(in, Minimal, 10)

	if len(in.Features) != 12 || in.Text == "" {
		t.Fatal("FormatReport modified its input")
	}
}

func TestFormatReportMinimalJSON(t *testing.T) {
	r := FormatReport(baseReport(), Minimal, 10)
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if _, ok := m["features"]; ok {
		t.Error("features should be omitted from JSON at Minimal")
	}
	if _, ok := m["text"]; ok {
		t.Error("text should be omitted from JSON at Minimal")
	}
	if _, ok := m["prediction"]; !ok {
		t.Error("prediction should be present")
	}
}

func TestParseVerbosity(t *testing.T) {
	tests := []struct {
		in      string
		want    Verbosity
		wantErr bool
	}{
		{"minimal", Minimal, false},
		{"STANDARD", Standard, false},
		{"", Standard, false},
		{"full", Full, false},
		{"loud", Standard, true},
	}
	for _, tt := range tests {
		got, err := ParseVerbosity(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseVerbosity(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseVerbosity(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
