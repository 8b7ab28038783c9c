package embedder

// meanPool averages the hidden states of the positions where mask is 1.
//
// hidden: flat [seqLen * dim] per-token states
// mask:   [seqLen], 1 for real tokens
func meanPool(hidden []float32, mask []int64, dim int64) []float32 {
	out := make([]float32, dim)
	var count float32
	for pos, m := range mask {
		if m != 1 {
			continue
		}
		count++
		tok := hidden[int64(pos)*dim : int64(pos+1)*dim]
		for d, v := range tok {
			out[d] += v
		}
	}
	if count == 0 {
		return out
	}
	inv := 1 / count
	for d := range out {
		out[d] *= inv
	}
	return out
}
