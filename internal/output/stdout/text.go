package stdout

import (
	"fmt"
	"strings"

	"github.com/crimson-sun/ctxclassify/internal/model"
	"github.com/crimson-sun/ctxclassify/internal/output"
)

func renderText(r model.Report, v output.Verbosity) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Generated feature vector size: %d\n", r.FeatureCount)
	switch v {
	case output.Standard:
		fmt.Fprintf(&b, "Generated feature vector (first %d elements): %v\n", len(r.Features), r.Features)
	case output.Full:
		fmt.Fprintf(&b, "Embedding input: %q\n", r.Text)
		fmt.Fprintf(&b, "Generated feature vector: %v\n", r.Features)
	}

	b.WriteString("\nPerforming prediction...\n")
	if p := r.Prediction; p != nil {
		b.WriteString("Prediction successful!\n")
		if v != output.Minimal {
			fmt.Fprintf(&b, "Predicted probabilities: %v\n", p.Probabilities)
		}
		fmt.Fprintf(&b, "Predicted label: %s, Probability: %.4f\n", p.Label, p.Probability)
	} else {
		fmt.Fprintf(&b, "Error during prediction: %s\n", r.PredictionErr)
		b.WriteString("This might indicate an issue with the model file, feature data, or classifier version incompatibility.\n")
	}

	b.WriteString("\nInference finished.\n")
	return b.String()
}
