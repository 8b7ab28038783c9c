package features

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalizer prepares one text field for embedding. Implementations are
// versioned: a model must be served with the policy it was trained with.
type Normalizer interface {
	Name() string
	Normalize(s string) string
}

// Known normalization policies.
const (
	BasicV1  = "basic-v1"
	StrictV1 = "strict-v1"
)

// NormalizerFor returns the policy registered under name.
func NormalizerFor(name string) (Normalizer, error) {
	switch name {
	case BasicV1, "":
		return basic{}, nil
	case StrictV1:
		return strict{}, nil
	default:
		return nil, fmt.Errorf("features: unknown normalization policy %q (want %s or %s)", name, BasicV1, StrictV1)
	}
}

var controlSpaces = strings.NewReplacer("\n", " ", "\t", " ")

// basic lowercases and turns newlines and tabs into spaces.
type basic struct{}

func (basic) Name() string { return BasicV1 }

func (basic) Normalize(s string) string {
	return controlSpaces.Replace(cases.Lower(language.Und).String(s))
}

var special = regexp.MustCompile(`[^A-Za-z0-9_:\-]+`)

// strict is basic followed by collapsing every run of characters outside
// [A-Za-z0-9_:-] into a single space.
type strict struct{}

func (strict) Name() string { return StrictV1 }

func (strict) Normalize(s string) string {
	return special.ReplaceAllString(basic{}.Normalize(s), " ")
}
