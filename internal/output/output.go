package output

import (
	"context"

	"github.com/crimson-sun/ctxclassify/internal/model"
)

// Output receives the progress and final report of one inference run.
type Output interface {
	// Progress reports a human-readable step. Machine-readable outputs
	// may ignore it.
	Progress(msg string)
	Write(ctx context.Context, r model.Report) error
	Close() error
}
