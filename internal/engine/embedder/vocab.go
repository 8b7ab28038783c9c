package embedder

import (
	"bufio"
	"fmt"
	"os"
)

// vocab maps WordPiece tokens to IDs. A token's ID is its 0-indexed line
// number in vocab.txt.
type vocab struct {
	ids map[string]int64
	n   int

	padID int64
	unkID int64
	clsID int64
	sepID int64
}

func loadVocab(path string) (*vocab, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vocab: %w", err)
	}
	defer f.Close()

	v := &vocab{ids: make(map[string]int64, 32000)}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		tok := sc.Text()
		if _, dup := v.ids[tok]; !dup {
			v.ids[tok] = int64(v.n)
		}
		v.n++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("vocab: read %s: %w", path, err)
	}
	if v.n == 0 {
		return nil, fmt.Errorf("vocab: %s is empty", path)
	}

	for name, dst := range map[string]*int64{
		"[PAD]": &v.padID,
		"[UNK]": &v.unkID,
		"[CLS]": &v.clsID,
		"[SEP]": &v.sepID,
	} {
		id, ok := v.ids[name]
		if !ok {
			return nil, fmt.Errorf("vocab: missing special token %s", name)
		}
		*dst = id
	}
	return v, nil
}

func (v *vocab) find(token string) (int64, bool) {
	id, ok := v.ids[token]
	return id, ok
}
