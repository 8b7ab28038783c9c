package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/crimson-sun/ctxclassify/internal/config"
	"github.com/crimson-sun/ctxclassify/internal/engine"
	"github.com/crimson-sun/ctxclassify/internal/engine/classifier"
	"github.com/crimson-sun/ctxclassify/internal/engine/embedder"
	"github.com/crimson-sun/ctxclassify/internal/engine/features"
	"github.com/crimson-sun/ctxclassify/internal/engine/schema"
	"github.com/crimson-sun/ctxclassify/internal/logging"
	"github.com/crimson-sun/ctxclassify/internal/model"
	"github.com/crimson-sun/ctxclassify/internal/output"
	"github.com/crimson-sun/ctxclassify/internal/output/stdout"
	"github.com/crimson-sun/ctxclassify/internal/record"
)

func runClassify(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logging.Init(cfg.Output.JSON, logging.ParseLevel(cfg.LogLevel))

	verbosity, err := output.ParseVerbosity(cfg.Output.Verbosity)
	if err != nil {
		return err
	}
	mode := stdout.Text
	if cfg.Output.JSON {
		mode = stdout.JSON
	}
	out := stdout.New(cmd.OutOrStdout(), mode, verbosity, cfg.Output.Preview)
	defer out.Close()

	return classify(cmd.Context(), cfg, out)
}

// classify performs one end-to-end run. Load and build failures are
// returned; a failed prediction is written to the report and is not an
// error.
func classify(ctx context.Context, cfg config.Config, out output.Output) error {
	report := model.Report{
		RunID:          uuid.NewString(),
		MetaPath:       cfg.Artifacts.Meta(),
		EmbeddingPath:  cfg.Artifacts.Embedding(),
		ClassifierPath: cfg.Artifacts.Classifier(),
	}
	log := slog.With("run_id", report.RunID)

	s, err := schema.Load(report.MetaPath)
	if err != nil {
		return fmt.Errorf("loading metadata: %w", err)
	}
	report.Schema = s.Summary()
	out.Progress(fmt.Sprintf("Loaded %s: %d numeric_cols, %d text_cols, embedding_dim=%d, classes=%v",
		filepath.Base(report.MetaPath), report.Schema.NumericCols, report.Schema.TextCols,
		report.Schema.EmbeddingDim, report.Schema.Classes))
	out.Progress(fmt.Sprintf("Expected total features for classifier: %d", report.Schema.TotalFeatures))

	out.Progress("Loading embedding model from: " + report.EmbeddingPath)
	emb, err := embedder.Open(embedder.Config{
		Backend:        embedder.Backend(cfg.Artifacts.EmbeddingBackend),
		ModelPath:      report.EmbeddingPath,
		VocabPath:      cfg.Artifacts.Vocab(),
		ProjectionPath: cfg.Artifacts.ProjectionPath,
	})
	if err != nil {
		return fmt.Errorf("loading embedding model: %w", err)
	}
	defer emb.Close()
	report.EmbeddingDim = emb.Dim()
	out.Progress(fmt.Sprintf("Embedding model loaded. Dimension: %d", emb.Dim()))

	out.Progress("Loading classifier from: " + report.ClassifierPath)
	m, err := classifier.Load(report.ClassifierPath, classifier.Format(cfg.Artifacts.ClassifierFormat))
	if err != nil {
		return fmt.Errorf("loading classifier: %w", err)
	}
	out.Progress(fmt.Sprintf("Classifier loaded. Features: %d", m.NumFeatures()))

	policy, err := features.ParsePolicyFor(cfg.Engine.ParsePolicy)
	if err != nil {
		return err
	}
	norm, err := features.NormalizerFor(cfg.Engine.Normalization)
	if err != nil {
		return err
	}
	eng, err := engine.New(s, emb, classifier.New(m, s.Classes()),
		features.WithParsePolicy(policy), features.WithNormalizer(norm))
	if err != nil {
		return err
	}
	report.ParsePolicy = string(policy)
	report.Normalization = norm.Name()

	rec, err := loadRecord(cfg.Engine.RecordPath)
	if err != nil {
		return err
	}

	out.Progress("\nGenerating feature vector...")
	vec, err := eng.Features(rec)
	if err != nil {
		return fmt.Errorf("building feature vector: %w", err)
	}
	report.FeatureCount = len(vec)
	report.Features = vec
	report.Text = eng.Builder().Text(rec)

	pred, err := eng.Predict(vec)
	if err != nil {
		log.Error("prediction failed", "error", err)
		report.PredictionErr = err.Error()
	} else {
		report.Prediction = &pred
		log.Info("prediction complete", "label", pred.Label, "probability", pred.Probability)
	}

	return out.Write(ctx, report)
}

func loadRecord(path string) (model.RawRecord, error) {
	if path == "" {
		return record.Default()
	}
	rec, err := record.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading record: %w", err)
	}
	return rec, nil
}
