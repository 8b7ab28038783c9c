package features

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/ctxclassify/internal/engine/schema"
	"github.com/crimson-sun/ctxclassify/internal/model"
)

// countingEmbedder returns a fixed vector and records every call.
type countingEmbedder struct {
	vec   []float32
	err   error
	calls []string
}

func (c *countingEmbedder) Embed(text string) ([]float32, error) {
	c.calls = append(c.calls, text)
	if c.err != nil {
		return nil, c.err
	}
	return c.vec, nil
}

func newSchema(t *testing.T, numeric, text []string, dim int) *schema.Schema {
	t.Helper()
	s, err := schema.New(numeric, text, dim, []string{"X", "Y"})
	require.NoError(t, err)
	return s
}

func TestBuildEndToEnd(t *testing.T) {
	emb := &countingEmbedder{vec: []float32{0.1, 0.2, 0.3, 0.4}}
	b := New(newSchema(t, []string{"a", "b"}, []string{"c"}, 4), emb)

	vec, err := b.Build(model.RawRecord{"a": "1.5", "b": "bad", "c": "Hello\tWorld"})
	require.NoError(t, err)

	assert.Equal(t, []float64{1.5, 0, float64(float32(0.1)), float64(float32(0.2)), float64(float32(0.3)), float64(float32(0.4))}, vec)
	assert.Equal(t, []string{"hello world"}, emb.calls)
}

func TestBuildNumericInSchemaOrder(t *testing.T) {
	emb := &countingEmbedder{vec: []float32{0, 0}}
	b := New(newSchema(t, []string{"threads", "cpu_time", "rss"}, nil, 2), emb)

	vec, err := b.Build(model.RawRecord{"rss": "10240", "cpu_time": " 10.5 ", "threads": "2"})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 10.5, 10240, 0, 0}, vec)
}

func TestBuildMissingAndInvalidNumericAreZero(t *testing.T) {
	emb := &countingEmbedder{vec: []float32{1}}
	b := New(newSchema(t, []string{"a", "b", "c", "d"}, []string{"t"}, 1), emb)

	vec, err := b.Build(model.RawRecord{"a": "", "b": "12abc", "d": "0x10", "t": "x"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0, 1}, vec)
}

func TestBuildNoTextSkipsEmbedder(t *testing.T) {
	emb := &countingEmbedder{vec: []float32{9, 9, 9}}
	b := New(newSchema(t, []string{"a"}, []string{"c", "d"}, 3), emb)

	for _, rec := range []model.RawRecord{
		{"a": "1"},
		{"a": "1", "c": "", "d": " \t\n "},
	} {
		vec, err := b.Build(rec)
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 0, 0, 0}, vec)
	}
	assert.Empty(t, emb.calls)
}

func TestBuildLengthIsFixed(t *testing.T) {
	emb := &countingEmbedder{vec: make([]float32, 8)}
	s := newSchema(t, []string{"a", "b", "c"}, []string{"x", "y"}, 8)
	b := New(s, emb)

	for _, rec := range []model.RawRecord{
		{},
		{"a": "1"},
		{"x": "text"},
		{"a": "1", "b": "2", "c": "3", "x": "p", "y": "q", "extra": "ignored"},
	} {
		vec, err := b.Build(rec)
		require.NoError(t, err)
		assert.Len(t, vec, s.FeatureCount())
	}
}

func TestTextJoinsInSchemaOrder(t *testing.T) {
	b := New(newSchema(t, nil, []string{"comm", "cmdline", "exe"}, 1), &countingEmbedder{})

	// The absent middle field still contributes a separator.
	got := b.Text(model.RawRecord{"exe": "/usr/bin/App", "comm": "App"})
	assert.Equal(t, "app  /usr/bin/app", got)
}

func TestBuildStrictNormalization(t *testing.T) {
	emb := &countingEmbedder{vec: []float32{1}}
	n, err := NormalizerFor(StrictV1)
	require.NoError(t, err)
	b := New(newSchema(t, nil, []string{"cmdline"}, 1), emb, WithNormalizer(n))

	_, err = b.Build(model.RawRecord{"cmdline": "/usr/bin/example_app --flag val"})
	require.NoError(t, err)
	assert.Equal(t, []string{"usr bin example_app --flag val"}, emb.calls)
}

func TestBuildFailFast(t *testing.T) {
	emb := &countingEmbedder{vec: []float32{1}}
	b := New(newSchema(t, []string{"a", "b"}, []string{"c"}, 1), emb, WithParsePolicy(FailFast))
	assert.Equal(t, FailFast, b.Policy())

	_, err := b.Build(model.RawRecord{"a": "1", "b": "bad", "c": "x"})
	require.ErrorIs(t, err, ErrInvalidNumeric)
	assert.Contains(t, err.Error(), `"b"`)

	_, err = b.Build(model.RawRecord{"a": "1", "c": "x"})
	require.ErrorIs(t, err, ErrInvalidNumeric)
	assert.Contains(t, err.Error(), "missing")

	vec, err := b.Build(model.RawRecord{"a": "1", "b": "2", "c": "x"})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 1}, vec)
}

func TestBuildEmbeddingErrors(t *testing.T) {
	s := newSchema(t, nil, []string{"c"}, 4)

	boom := errors.New("boom")
	_, err := New(s, &countingEmbedder{err: boom}).Build(model.RawRecord{"c": "x"})
	assert.ErrorIs(t, err, boom)

	_, err = New(s, &countingEmbedder{vec: []float32{1, 2}}).Build(model.RawRecord{"c": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 values")
}

func TestBuildIsDeterministic(t *testing.T) {
	emb := &countingEmbedder{vec: []float32{0.5, -0.5}}
	b := New(newSchema(t, []string{"a"}, []string{"c"}, 2), emb)
	rec := model.RawRecord{"a": "3", "c": "Some Text"}

	first, err := b.Build(rec)
	require.NoError(t, err)
	second, err := b.Build(rec)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestParseNumeric(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"10.5", 10.5, true},
		{"  2\n", 2, true},
		{"-3e2", -300, true},
		{"+.5", 0.5, true},
		{"inf", math.Inf(1), true},
		{"-Infinity", math.Inf(-1), true},
		{"1e400", math.Inf(1), true},
		{"", 0, false},
		{"abc", 0, false},
		{"1,5", 0, false},
		{"0x1p-2", 0, false},
		{"1_000", 1000, true},
		{"1_0.2_5e1_0", 10.25e10, true},
		{"_1", 0, false},
		{"1_", 0, false},
		{"1__0", 0, false},
		{"1_.5", 0, false},
		{"in_f", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseNumeric(tt.in)
		if !tt.ok {
			assert.ErrorIs(t, err, ErrInvalidNumeric, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}

	v, err := ParseNumeric("NaN")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(v))
}

func TestParsePolicyFor(t *testing.T) {
	p, err := ParsePolicyFor("")
	require.NoError(t, err)
	assert.Equal(t, ZeroFill, p)

	p, err = ParsePolicyFor("fail-fast")
	require.NoError(t, err)
	assert.Equal(t, FailFast, p)

	_, err = ParsePolicyFor("lenient")
	assert.Error(t, err)
}
