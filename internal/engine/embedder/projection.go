package embedder

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

const (
	weightTensor = "linear.weight"
	biasTensor   = "linear.bias"

	// maxHeaderLen bounds the JSON header read from a safetensors file.
	maxHeaderLen = 100 << 20
)

// projection is the dense head of a sentence-transformers model: a linear
// layer from inDim to outDim with an optional bias.
type projection struct {
	weights []float32 // row-major [outDim, inDim]
	bias    []float32 // nil or [outDim]
	inDim   int
	outDim  int
}

type tensorInfo struct {
	Dtype       string   `json:"dtype"`
	Shape       []int    `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// loadProjection reads the "linear.weight" tensor, and "linear.bias" when
// present, from a safetensors file. Both must be F32.
func loadProjection(path string) (*projection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("projection: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("projection: %w", err)
	}
	tensors, base, err := readSafetensorsHeader(f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("projection: %s: %w", path, err)
	}

	w, ok := tensors[weightTensor]
	if !ok {
		return nil, fmt.Errorf("projection: tensor %q not found", weightTensor)
	}
	if len(w.Shape) != 2 || w.Shape[0] <= 0 || w.Shape[1] <= 0 {
		return nil, fmt.Errorf("projection: %s: expected 2D shape, got %v", weightTensor, w.Shape)
	}
	p := &projection{outDim: w.Shape[0], inDim: w.Shape[1]}
	if p.weights, err = readTensor(f, base, st.Size(), weightTensor, w, p.outDim*p.inDim); err != nil {
		return nil, err
	}

	if b, ok := tensors[biasTensor]; ok {
		if len(b.Shape) != 1 || b.Shape[0] != p.outDim {
			return nil, fmt.Errorf("projection: %s: shape %v does not match output dim %d",
				biasTensor, b.Shape, p.outDim)
		}
		if p.bias, err = readTensor(f, base, st.Size(), biasTensor, b, p.outDim); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// readSafetensorsHeader parses the 8-byte little-endian header length and
// the JSON header. base is the file offset where tensor data starts.
func readSafetensorsHeader(r io.ReaderAt, size int64) (map[string]tensorInfo, int64, error) {
	var lenBuf [8]byte
	if _, err := r.ReadAt(lenBuf[:], 0); err != nil {
		return nil, 0, fmt.Errorf("read header length: %w", err)
	}
	n := binary.LittleEndian.Uint64(lenBuf[:])
	if n > maxHeaderLen || int64(n) > size-8 {
		return nil, 0, fmt.Errorf("header length %d exceeds file size %d", n, size)
	}

	raw := make([]byte, n)
	if _, err := r.ReadAt(raw, 8); err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	var header map[string]json.RawMessage
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, 0, fmt.Errorf("parse header: %w", err)
	}

	tensors := make(map[string]tensorInfo, len(header))
	for name, msg := range header {
		if name == "__metadata__" {
			continue
		}
		var ti tensorInfo
		if err := json.Unmarshal(msg, &ti); err != nil {
			return nil, 0, fmt.Errorf("tensor %s: %w", name, err)
		}
		tensors[name] = ti
	}
	return tensors, 8 + int64(n), nil
}

func readTensor(r io.ReaderAt, base, size int64, name string, ti tensorInfo, count int) ([]float32, error) {
	if ti.Dtype != "F32" {
		return nil, fmt.Errorf("projection: %s: expected dtype F32, got %s", name, ti.Dtype)
	}
	start, end := base+ti.DataOffsets[0], base+ti.DataOffsets[1]
	if end-start != int64(count)*4 {
		return nil, fmt.Errorf("projection: %s: data size %d does not match shape %v",
			name, end-start, ti.Shape)
	}
	if start < base || end > size {
		return nil, fmt.Errorf("projection: %s: data range [%d:%d] outside file of %d bytes",
			name, start, end, size)
	}
	out := make([]float32, count)
	if err := readFloat32s(io.NewSectionReader(r, start, end-start), out); err != nil {
		return nil, fmt.Errorf("projection: %s: %w", name, err)
	}
	return out, nil
}

// apply maps vec from inDim to outDim.
func (p *projection) apply(vec []float32) []float32 {
	out := make([]float32, p.outDim)
	if p.bias != nil {
		copy(out, p.bias)
	}
	for i := range out {
		row := p.weights[i*p.inDim : (i+1)*p.inDim]
		for j, w := range row {
			out[i] += w * vec[j]
		}
	}
	return out
}
