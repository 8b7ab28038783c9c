package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/ctxclassify/internal/engine/schema"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the feature schema of the artifact directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		path := cfg.Artifacts.Meta()
		s, err := schema.Load(path)
		if err != nil {
			return err
		}

		if cfg.Output.JSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Path         string   `json:"path"`
				NumericCols  []string `json:"numeric_cols"`
				TextCols     []string `json:"text_cols"`
				EmbeddingDim int      `json:"embedding_dim"`
				Classes      []string `json:"classes"`
				Total        int      `json:"total_features"`
			}{path, s.NumericCols(), s.TextCols(), s.EmbeddingDim(), s.Classes(), s.FeatureCount()})
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "meta: %s\n", path)
		fmt.Fprintf(w, "numeric_cols (%d): %s\n", s.NumericCount(), strings.Join(s.NumericCols(), ", "))
		fmt.Fprintf(w, "text_cols (%d): %s\n", len(s.TextCols()), strings.Join(s.TextCols(), ", "))
		fmt.Fprintf(w, "embedding_dim: %d\n", s.EmbeddingDim())
		fmt.Fprintf(w, "classes (%d): %s\n", s.NumClasses(), strings.Join(s.Classes(), ", "))
		fmt.Fprintf(w, "total features: %d\n", s.FeatureCount())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
