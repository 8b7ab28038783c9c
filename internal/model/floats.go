package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Floats is a float64 slice whose JSON form spells non-finite values as the
// strings "NaN", "+Inf" and "-Inf". Numeric record fields may legitimately
// parse to any of them.
type Floats []float64

func (f Floats) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("null"), nil
	}
	b := make([]byte, 0, 2+len(f)*8)
	b = append(b, '[')
	for i, v := range f {
		if i > 0 {
			b = append(b, ',')
		}
		switch {
		case math.IsNaN(v):
			b = append(b, `"NaN"`...)
		case math.IsInf(v, 1):
			b = append(b, `"+Inf"`...)
		case math.IsInf(v, -1):
			b = append(b, `"-Inf"`...)
		default:
			num, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			b = append(b, num...)
		}
	}
	return append(b, ']'), nil
}

func (f *Floats) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*f = nil
		return nil
	}
	out := make(Floats, len(raw))
	for i, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("floats: element %d: %w", i, err)
			}
			out[i] = v
			continue
		}
		if err := json.Unmarshal(r, &out[i]); err != nil {
			return fmt.Errorf("floats: element %d: %w", i, err)
		}
	}
	*f = out
	return nil
}
