package output

import (
	"fmt"
	"strings"

	"github.com/crimson-sun/ctxclassify/internal/model"
)

// Verbosity controls how much of the feature vector a report carries.
type Verbosity int

const (
	Minimal  Verbosity = iota // prediction only
	Standard                  // plus a feature vector preview
	Full                      // plus the whole vector and the embedding input
)

// ParseVerbosity converts "minimal", "standard" or "full" to a Verbosity.
func ParseVerbosity(s string) (Verbosity, error) {
	switch strings.ToLower(s) {
	case "minimal":
		return Minimal, nil
	case "standard", "":
		return Standard, nil
	case "full":
		return Full, nil
	default:
		return Standard, fmt.Errorf("output: unknown verbosity %q", s)
	}
}

func (v Verbosity) String() string {
	switch v {
	case Minimal:
		return "minimal"
	case Full:
		return "full"
	default:
		return "standard"
	}
}

// FormatReport returns a copy of r trimmed for the given verbosity. At
// Standard the feature vector is cut to its first preview values.
func FormatReport(r model.Report, v Verbosity, preview int) model.Report {
	switch v {
	case Minimal:
		r.Features = nil
		r.Text = ""
	case Standard:
		r.Text = ""
		if preview >= 0 && len(r.Features) > preview {
			r.Features = r.Features[:preview:preview]
		}
	}
	return r
}
