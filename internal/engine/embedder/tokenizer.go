package embedder

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	maxSeqLen    = 128
	maxWordRunes = 200
	continuation = "##"
)

// sequence is one encoded text: [CLS], the word pieces, [SEP]. The three
// slices always have equal length. No padding is added.
type sequence struct {
	inputIDs      []int64
	attentionMask []int64
	tokenTypeIDs  []int64
}

func (s sequence) len() int64 { return int64(len(s.inputIDs)) }

// tokenizer is an uncased WordPiece tokenizer. Process attributes are mostly
// paths, command lines and key=value pairs, so punctuation always splits.
type tokenizer struct {
	vocab *vocab
	fold  transform.Transformer
}

func newTokenizer(vocabPath string) (*tokenizer, error) {
	v, err := loadVocab(vocabPath)
	if err != nil {
		return nil, err
	}
	return &tokenizer{
		vocab: v,
		fold: transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			cases.Lower(language.Und),
		),
	}, nil
}

// encode tokenizes text and truncates the pieces so the sequence, markers
// included, fits in maxSeqLen.
func (t *tokenizer) encode(text string) sequence {
	ids := make([]int64, 1, maxSeqLen)
	ids[0] = t.vocab.clsID
	for _, w := range t.words(text) {
		ids = t.appendPieces(ids, w)
		if len(ids) >= maxSeqLen-1 {
			ids = ids[:maxSeqLen-1]
			break
		}
	}
	ids = append(ids, t.vocab.sepID)

	mask := make([]int64, len(ids))
	for i := range mask {
		mask[i] = 1
	}
	return sequence{
		inputIDs:      ids,
		attentionMask: mask,
		tokenTypeIDs:  make([]int64, len(ids)),
	}
}

// words lowercases and strips accents, then splits on whitespace. Every
// punctuation mark and CJK ideograph becomes a word of its own. Control
// characters are dropped.
func (t *tokenizer) words(text string) []string {
	folded, _, err := transform.String(t.fold, text)
	if err != nil {
		folded = strings.ToLower(text)
	}

	var (
		out []string
		cur strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range folded {
		switch {
		case r == 0 || r == utf8.RuneError || isControl(r):
		case isWhitespace(r):
			flush()
		case isPunctuation(r) || isCJK(r):
			flush()
			out = append(out, string(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

// appendPieces appends the greedy longest-match WordPiece decomposition of
// word. A word that cannot be fully decomposed becomes a single [UNK].
func (t *tokenizer) appendPieces(ids []int64, word string) []int64 {
	rs := []rune(word)
	if len(rs) > maxWordRunes {
		return append(ids, t.vocab.unkID)
	}
	mark := len(ids)
	for start := 0; start < len(rs); {
		end := len(rs)
		for ; end > start; end-- {
			piece := string(rs[start:end])
			if start > 0 {
				piece = continuation + piece
			}
			if id, ok := t.vocab.find(piece); ok {
				ids = append(ids, id)
				break
			}
		}
		if end == start {
			return append(ids[:mark], t.vocab.unkID)
		}
		start = end
	}
	return ids
}

func isWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

func isControl(r rune) bool {
	switch r {
	case '\t', '\n', '\r':
		return false
	}
	return unicode.IsControl(r)
}

// isPunctuation treats every non-alphanumeric printable ASCII rune as
// punctuation, plus the Unicode P categories.
func isPunctuation(r rune) bool {
	if r < utf8.RuneSelf {
		return r > ' ' && r < 0x7f && !isASCIIAlnum(r)
	}
	return unicode.IsPunct(r)
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

var cjk = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x3400, Hi: 0x4DBF, Stride: 1},
		{Lo: 0x4E00, Hi: 0x9FFF, Stride: 1},
		{Lo: 0xF900, Hi: 0xFAFF, Stride: 1},
	},
	R32: []unicode.Range32{
		{Lo: 0x20000, Hi: 0x2A6DF, Stride: 1},
		{Lo: 0x2A700, Hi: 0x2CEAF, Stride: 1},
		{Lo: 0x2F800, Hi: 0x2FA1F, Stride: 1},
	},
}

func isCJK(r rune) bool { return unicode.Is(cjk, r) }
