package embedder

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

const (
	fastTextMagic      int32 = 793712314
	fastTextMaxVersion int32 = 12

	eosToken    = "</s>"
	bow         = "<"
	eow         = ">"
	labelPrefix = "__label__"

	// Smallest on-disk footprint of a dictionary entry (NUL, count, type)
	// and of a prune index pair.
	minEntryBytes = 1 + 8 + 1
	pruneBytes    = 4 + 4
)

// ErrQuantized is returned for quantized (.ftz) models, whose product
// quantizer codebooks are not supported.
var ErrQuantized = errors.New("fasttext: quantized models are not supported")

// fastTextArgs is the fixed-size argument block at the head of a model file.
type fastTextArgs struct {
	Dim          int32
	WS           int32
	Epoch        int32
	MinCount     int32
	Neg          int32
	WordNgrams   int32
	Loss         int32
	Model        int32
	Bucket       int32
	Minn         int32
	Maxn         int32
	LRUpdateRate int32
	T            float64
}

const (
	modelCBOW       int32 = 1
	modelSkipgram   int32 = 2
	modelSupervised int32 = 3
)

const (
	entryWord  int8 = 0
	entryLabel int8 = 1
)

type dictHeader struct {
	Size         int32
	NWords       int32
	NLabels      int32
	NTokens      int64
	PruneIdxSize int64
}

type dictEntry struct {
	word  string
	count int64
	kind  int8
}

// FastTextEmbedder computes sentence vectors from a fastText binary model
// with the same arithmetic as fastText's get_sentence_vector.
type FastTextEmbedder struct {
	args fastTextArgs

	entries  []dictEntry
	ids      map[string]int32
	nwords   int32
	subwords [][]int32

	pruneIdxSize int64
	pruneIdx     map[int32]int32

	input []float32 // row-major [rows, dim]
	rows  int64
}

// LoadFastText reads a fastText .bin model. Only the input matrix is kept;
// the output layer is not needed for sentence vectors.
func LoadFastText(path string) (*FastTextEmbedder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fasttext: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("fasttext: %w", err)
	}
	ft, err := readFastText(bufio.NewReaderSize(f, 1<<20), st.Size())
	if err != nil {
		return nil, fmt.Errorf("fasttext: %s: %w", path, err)
	}
	return ft, nil
}

// readFastText decodes a model of size bytes. Every count read from the file
// is checked against size before anything is allocated for it.
func readFastText(r *bufio.Reader, size int64) (*FastTextEmbedder, error) {
	var magic, version int32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if magic != fastTextMagic {
		return nil, fmt.Errorf("bad magic %d, not a fastText model", magic)
	}
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if version > fastTextMaxVersion {
		return nil, fmt.Errorf("unsupported model version %d", version)
	}

	ft := &FastTextEmbedder{}
	if err := binary.Read(r, binary.LittleEndian, &ft.args); err != nil {
		return nil, fmt.Errorf("read args: %w", err)
	}
	if ft.args.Dim <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", ft.args.Dim)
	}
	// Version 11 supervised models were trained without character n-grams.
	if version == 11 && ft.args.Model == modelSupervised {
		ft.args.Maxn = 0
	}

	if err := ft.readDictionary(r, size); err != nil {
		return nil, err
	}

	quant, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("read quantization flag: %w", err)
	}
	if quant != 0 {
		return nil, ErrQuantized
	}

	if err := ft.readInput(r, size); err != nil {
		return nil, err
	}
	return ft, nil
}

func (ft *FastTextEmbedder) readDictionary(r *bufio.Reader, size int64) error {
	var hdr dictHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("read dictionary header: %w", err)
	}
	if hdr.Size < 0 || hdr.NWords < 0 || hdr.NWords > hdr.Size {
		return fmt.Errorf("corrupt dictionary header: size=%d nwords=%d", hdr.Size, hdr.NWords)
	}
	if int64(hdr.Size) > size/minEntryBytes {
		return fmt.Errorf("corrupt dictionary header: %d entries do not fit in %d bytes", hdr.Size, size)
	}
	if hdr.PruneIdxSize > size/pruneBytes {
		return fmt.Errorf("corrupt dictionary header: prune index of %d pairs does not fit in %d bytes",
			hdr.PruneIdxSize, size)
	}

	ft.nwords = hdr.NWords
	ft.pruneIdxSize = hdr.PruneIdxSize
	ft.entries = make([]dictEntry, hdr.Size)
	ft.ids = make(map[string]int32, hdr.Size)

	for i := range ft.entries {
		word, err := r.ReadString(0)
		if err != nil {
			return fmt.Errorf("read dictionary entry %d: %w", i, err)
		}
		e := dictEntry{word: strings.TrimSuffix(word, "\x00")}
		if err := binary.Read(r, binary.LittleEndian, &e.count); err != nil {
			return fmt.Errorf("read dictionary entry %d: %w", i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &e.kind); err != nil {
			return fmt.Errorf("read dictionary entry %d: %w", i, err)
		}
		ft.entries[i] = e
		ft.ids[e.word] = int32(i)
	}

	if hdr.PruneIdxSize > 0 {
		ft.pruneIdx = make(map[int32]int32, hdr.PruneIdxSize)
		for i := int64(0); i < hdr.PruneIdxSize; i++ {
			var pair [2]int32
			if err := binary.Read(r, binary.LittleEndian, &pair); err != nil {
				return fmt.Errorf("read prune index: %w", err)
			}
			ft.pruneIdx[pair[0]] = pair[1]
		}
	}

	ft.subwords = make([][]int32, len(ft.entries))
	for i, e := range ft.entries {
		ngrams := []int32{int32(i)}
		if e.word != eosToken {
			ngrams = ft.computeSubwords(bow+e.word+eow, ngrams)
		}
		ft.subwords[i] = ngrams
	}
	return nil
}

func (ft *FastTextEmbedder) readInput(r *bufio.Reader, size int64) error {
	var shape [2]int64
	if err := binary.Read(r, binary.LittleEndian, &shape); err != nil {
		return fmt.Errorf("read input matrix shape: %w", err)
	}
	rows, cols := shape[0], shape[1]
	if cols != int64(ft.args.Dim) {
		return fmt.Errorf("input matrix has %d columns, model dimension is %d", cols, ft.args.Dim)
	}
	if rows < int64(ft.nwords) {
		return fmt.Errorf("input matrix has %d rows for %d words", rows, ft.nwords)
	}
	if rows > size/(cols*4) {
		return fmt.Errorf("input matrix of %dx%d does not fit in %d bytes", rows, cols, size)
	}

	ft.rows = rows
	ft.input = make([]float32, rows*cols)
	if err := readFloat32s(r, ft.input); err != nil {
		return fmt.Errorf("read input matrix: %w", err)
	}
	return nil
}

// readFloat32s fills dst from little-endian float32 data in fixed-size
// chunks so large matrices are not buffered twice.
func readFloat32s(r io.Reader, dst []float32) error {
	const chunk = 1 << 14
	buf := make([]byte, chunk*4)
	for off := 0; off < len(dst); off += chunk {
		n := min(chunk, len(dst)-off)
		b := buf[:n*4]
		if _, err := io.ReadFull(r, b); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			dst[off+i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
		}
	}
	return nil
}

// Dim returns the sentence vector length.
func (ft *FastTextEmbedder) Dim() int { return int(ft.args.Dim) }

// Supervised reports whether the model was trained with the supervised loss.
func (ft *FastTextEmbedder) Supervised() bool { return ft.args.Model == modelSupervised }

// Kind names the training mode: "supervised", "cbow" or "skipgram".
func (ft *FastTextEmbedder) Kind() string {
	switch ft.args.Model {
	case modelSupervised:
		return "supervised"
	case modelCBOW:
		return "cbow"
	case modelSkipgram:
		return "skipgram"
	default:
		return fmt.Sprintf("unknown(%d)", ft.args.Model)
	}
}

// Words returns the number of vocabulary words.
func (ft *FastTextEmbedder) Words() int { return int(ft.nwords) }

// Close is a no-op; the model is held in Go memory.
func (ft *FastTextEmbedder) Close() error { return nil }

// Embed returns the sentence vector for a single line of text. The text must
// not contain newlines.
func (ft *FastTextEmbedder) Embed(text string) ([]float32, error) {
	if strings.ContainsRune(text, '\n') {
		return nil, fmt.Errorf("fasttext: text must be a single line")
	}
	if ft.Supervised() {
		return ft.supervisedVector(text), nil
	}
	return ft.unsupervisedVector(text), nil
}

// supervisedVector averages the input rows of every word, subword, word
// n-gram and the end-of-sentence token.
func (ft *FastTextEmbedder) supervisedVector(text string) []float32 {
	tokens := append(splitWords(text), eosToken)

	var line, hashes []int32
	for _, tok := range tokens {
		h := fastTextHash(tok)
		wid, known := ft.ids[tok]
		if !known {
			wid = -1
		}
		var kind int8
		if known {
			kind = ft.entries[wid].kind
		} else if strings.HasPrefix(tok, labelPrefix) {
			kind = entryLabel
		}
		if kind != entryWord {
			continue
		}
		line = ft.addSubwords(line, tok, wid)
		hashes = append(hashes, int32(h))
	}
	line = ft.addWordNgrams(line, hashes)

	vec := make([]float32, ft.args.Dim)
	for _, idx := range line {
		ft.addRow(vec, idx, 1)
	}
	if len(line) > 0 {
		scale(vec, 1/float32(len(line)))
	}
	return vec
}

// unsupervisedVector averages the unit-normalized word vectors of the text.
func (ft *FastTextEmbedder) unsupervisedVector(text string) []float32 {
	svec := make([]float32, ft.args.Dim)
	word := make([]float32, ft.args.Dim)
	count := 0
	for _, tok := range splitWords(text) {
		ft.wordVector(word, tok)
		norm := l2norm(word)
		if norm > 0 {
			inv := 1 / norm
			for i, v := range word {
				svec[i] += v * inv
			}
			count++
		}
	}
	if count > 0 {
		scale(svec, 1/float32(count))
	}
	return svec
}

// wordVector writes the average of the word's subword rows into dst.
func (ft *FastTextEmbedder) wordVector(dst []float32, word string) {
	clear(dst)
	var ngrams []int32
	if wid, ok := ft.ids[word]; ok {
		ngrams = ft.subwords[wid]
	} else if word != eosToken {
		ngrams = ft.computeSubwords(bow+word+eow, nil)
	}
	for _, idx := range ngrams {
		ft.addRow(dst, idx, 1)
	}
	if len(ngrams) > 0 {
		scale(dst, 1/float32(len(ngrams)))
	}
}

func (ft *FastTextEmbedder) addSubwords(line []int32, tok string, wid int32) []int32 {
	if wid < 0 {
		if tok != eosToken {
			line = ft.computeSubwords(bow+tok+eow, line)
		}
		return line
	}
	if ft.args.Maxn <= 0 {
		return append(line, wid)
	}
	return append(line, ft.subwords[wid]...)
}

func (ft *FastTextEmbedder) addWordNgrams(line, hashes []int32) []int32 {
	if ft.args.Bucket <= 0 {
		return line
	}
	n := int(ft.args.WordNgrams)
	for i := range hashes {
		h := uint64(int64(hashes[i]))
		for j := i + 1; j < len(hashes) && j < i+n; j++ {
			h = h*116049371 + uint64(int64(hashes[j]))
			line = ft.pushHash(line, int32(h%uint64(ft.args.Bucket)))
		}
	}
	return line
}

// computeSubwords appends the bucket rows of every character n-gram of word
// whose length lies in [minn, maxn]. Lengths count UTF-8 code points.
func (ft *FastTextEmbedder) computeSubwords(word string, ngrams []int32) []int32 {
	if ft.args.Bucket <= 0 {
		return ngrams
	}
	maxn := int(ft.args.Maxn)
	minn := int(ft.args.Minn)
	for i := 0; i < len(word); i++ {
		if word[i]&0xC0 == 0x80 {
			continue
		}
		j := i
		for n := 1; j < len(word) && n <= maxn; n++ {
			j++
			for j < len(word) && word[j]&0xC0 == 0x80 {
				j++
			}
			if n >= minn && !(n == 1 && (i == 0 || j == len(word))) {
				h := fastTextHash(word[i:j]) % uint32(ft.args.Bucket)
				ngrams = ft.pushHash(ngrams, int32(h))
			}
		}
	}
	return ngrams
}

func (ft *FastTextEmbedder) pushHash(ngrams []int32, id int32) []int32 {
	if ft.pruneIdxSize == 0 || id < 0 {
		return ngrams
	}
	if ft.pruneIdxSize > 0 {
		mapped, ok := ft.pruneIdx[id]
		if !ok {
			return ngrams
		}
		id = mapped
	}
	return append(ngrams, ft.nwords+id)
}

func (ft *FastTextEmbedder) addRow(dst []float32, row int32, a float32) {
	if row < 0 || int64(row) >= ft.rows {
		return
	}
	dim := int64(ft.args.Dim)
	src := ft.input[int64(row)*dim : (int64(row)+1)*dim]
	for i, v := range src {
		dst[i] += a * v
	}
}

// fastTextHash is FNV-1a over bytes sign-extended to 32 bits, matching the
// reference implementation for non-ASCII input.
func fastTextHash(s string) uint32 {
	h := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		h ^= uint32(int8(s[i]))
		h *= 16777619
	}
	return h
}

// splitWords splits on the ASCII whitespace set fastText's reader uses.
func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case ' ', '\n', '\r', '\t', '\v', '\f', 0:
			return true
		}
		return false
	})
}

func l2norm(v []float32) float32 {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	return float32(math.Sqrt(float64(sum)))
}

func scale(v []float32, a float32) {
	for i := range v {
		v[i] *= a
	}
}
