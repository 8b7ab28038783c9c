// Package ctxclassify classifies process records with a sentence-embedding
// model and a gradient-boosted tree ensemble.
//
// Quick start:
//
//	c, err := ctxclassify.New(ctxclassify.WithArtifactDir("artifacts"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	p, _ := c.Classify(map[string]string{"cpu_time": "10.5", "comm": "example_app"})
//	fmt.Println(p.Label, p.Probability)
//
// The artifact directory holds meta.json (feature schema), fasttext_model.bin
// and lgbm_model.txt. Numeric fields that are missing or unparsable become
// 0.0 unless WithParsePolicy("fail-fast") is set.
package ctxclassify
