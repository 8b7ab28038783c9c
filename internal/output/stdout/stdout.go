package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/crimson-sun/ctxclassify/internal/model"
	"github.com/crimson-sun/ctxclassify/internal/output"
)

// Mode selects the rendering of an Output.
type Mode int

const (
	// Text prints progress lines and a human-readable result.
	Text Mode = iota
	// JSON prints the report as a single JSON document and nothing else.
	JSON
)

// Output renders inference runs to a writer, normally os.Stdout.
type Output struct {
	w         io.Writer
	mode      Mode
	verbosity output.Verbosity
	preview   int
	enc       *json.Encoder
}

// New creates an Output. preview is the number of feature values shown at
// standard verbosity.
func New(w io.Writer, mode Mode, verbosity output.Verbosity, preview int) *Output {
	return &Output{
		w:         w,
		mode:      mode,
		verbosity: verbosity,
		preview:   preview,
		enc:       json.NewEncoder(w),
	}
}

func (o *Output) Progress(msg string) {
	if o.mode == Text {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) Write(_ context.Context, r model.Report) error {
	r = output.FormatReport(r, o.verbosity, o.preview)
	if o.mode == JSON {
		if err := o.enc.Encode(r); err != nil {
			return fmt.Errorf("stdout output: %w", err)
		}
		return nil
	}
	if _, err := io.WriteString(o.w, renderText(r, o.verbosity)); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}

var _ output.Output = (*Output)(nil)
