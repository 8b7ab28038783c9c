// Package cli implements the ctxclassify command line.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/ctxclassify/internal/config"
)

var version = "dev"

var flags struct {
	artifacts     string
	record        string
	parsePolicy   string
	normalization string
	verbosity     string
	json          bool
}

var rootCmd = &cobra.Command{
	Use:   "ctxclassify",
	Short: "Classify a process record with a fastText + gradient-boosted tree model",
	Long: `ctxclassify loads a feature schema, a sentence-embedding model and a tree
ensemble classifier from an artifact directory, builds the feature vector for
one process record and prints the predicted class.

Without --record the built-in reference record is classified.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runClassify,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.artifacts, "artifacts", "", "artifact directory (default \"artifacts\")")
	pf.BoolVar(&flags.json, "json", false, "emit a JSON report instead of progress lines")

	f := rootCmd.Flags()
	f.StringVar(&flags.record, "record", "", "JSON or YAML file holding one raw record")
	f.StringVar(&flags.parsePolicy, "parse-policy", "", "numeric parse policy: zero-fill or fail-fast")
	f.StringVar(&flags.normalization, "normalization", "", "text normalization policy: basic-v1 or strict-v1")
	f.StringVar(&flags.verbosity, "verbosity", "", "report verbosity: minimal, standard or full")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

// loadConfig reads the environment and applies any flags set on cmd.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Load()

	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if changed("artifacts") {
		cfg.Artifacts.Dir = flags.artifacts
	}
	if changed("json") {
		cfg.Output.JSON = flags.json
	}
	if changed("record") {
		cfg.Engine.RecordPath = flags.record
	}
	if changed("parse-policy") {
		cfg.Engine.ParsePolicy = flags.parsePolicy
	}
	if changed("normalization") {
		cfg.Engine.Normalization = flags.normalization
	}
	if changed("verbosity") {
		cfg.Output.Verbosity = flags.verbosity
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
