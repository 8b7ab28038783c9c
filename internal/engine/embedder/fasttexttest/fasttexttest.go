// Package fasttexttest writes small fastText binary models for tests.
package fasttexttest

import (
	"bufio"
	"encoding/binary"
	"os"
	"testing"
)

// Model describes a synthetic fastText model. Rows is the input matrix and
// must hold len(Words)+Bucket rows of Dim values each.
type Model struct {
	Dim        int
	Supervised bool
	Minn, Maxn int
	Bucket     int
	WordNgrams int
	Words      []string
	Labels     []string
	Rows       [][]float32
	Quantized  bool
}

// Write encodes m in the fastText .bin layout at path.
func Write(t testing.TB, path string, m Model) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("fasttexttest: %v", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	put := func(v any) {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			t.Fatalf("fasttexttest: %v", err)
		}
	}

	kind := int32(1) // cbow
	if m.Supervised {
		kind = 3
	}
	wordNgrams := m.WordNgrams
	if wordNgrams == 0 {
		wordNgrams = 1
	}

	put(int32(793712314))
	put(int32(12))
	for _, v := range []int32{
		int32(m.Dim), 5, 5, 1, 5, int32(wordNgrams), 1, kind,
		int32(m.Bucket), int32(m.Minn), int32(m.Maxn), 100,
	} {
		put(v)
	}
	put(float64(1e-4))

	put(int32(len(m.Words) + len(m.Labels)))
	put(int32(len(m.Words)))
	put(int32(len(m.Labels)))
	put(int64(len(m.Words)))
	put(int64(-1))
	for i, word := range append(append([]string{}, m.Words...), m.Labels...) {
		w.WriteString(word)
		w.WriteByte(0)
		put(int64(1))
		if i < len(m.Words) {
			put(int8(0))
		} else {
			put(int8(1))
		}
	}

	if m.Quantized {
		w.WriteByte(1)
	} else {
		w.WriteByte(0)
	}
	put(int64(len(m.Rows)))
	put(int64(m.Dim))
	for _, row := range m.Rows {
		put(row)
	}

	// Output layer; unused by sentence vectors.
	w.WriteByte(0)
	put(int64(0))
	put(int64(m.Dim))

	if err := w.Flush(); err != nil {
		t.Fatalf("fasttexttest: %v", err)
	}
}
