package classifier

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Bits of a LightGBM decision_type byte.
const (
	categoricalMask = 1
	defaultLeftMask = 2
)

// Missing-value handling encoded in bits 2-3 of decision_type.
const (
	missingNone = 0
	missingZero = 1
	missingNaN  = 2
)

const zeroThreshold = 1e-35

// LightGBM evaluates a gradient-boosted tree model saved in LightGBM's text
// format (Booster.save_model).
type LightGBM struct {
	trees             []lgbmTree
	numClass          int
	treesPerIteration int
	numFeatures       int
	objective         string
	sigmoid           float64
	averageOutput     bool
}

type lgbmTree struct {
	splitFeature  []int
	threshold     []float64
	decisionType  []uint8
	leftChild     []int
	rightChild    []int
	leafValue     []float64
	catBoundaries []int
	catThreshold  []uint32
}

// LoadLightGBM reads a LightGBM text model from path.
func LoadLightGBM(path string) (*LightGBM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("lightgbm: %w", err)
	}
	defer f.Close()

	m, err := ParseLightGBM(f)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return m, nil
}

// ParseLightGBM reads a LightGBM text model. Parsing stops at the
// "end of trees" marker; feature importances and parameters are ignored.
func ParseLightGBM(r io.Reader) (*LightGBM, error) {
	header := make(map[string]string)
	var blocks []map[string]string
	var cur map[string]string

	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("lightgbm: read: %w", err)
		}
		line = strings.TrimSpace(line)

		switch {
		case line == "end of trees":
			err = io.EOF
		case strings.HasPrefix(line, "Tree="):
			cur = make(map[string]string)
			blocks = append(blocks, cur)
		case line == "":
		default:
			k, v, ok := strings.Cut(line, "=")
			if cur != nil {
				if ok {
					cur[k] = v
				}
			} else {
				header[k] = v
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
	}

	if _, ok := header["tree"]; !ok {
		return nil, errors.New("lightgbm: not a LightGBM text model (missing \"tree\" header)")
	}

	m := &LightGBM{sigmoid: 1}
	var err error
	if m.numClass, err = headerInt(header, "num_class"); err != nil {
		return nil, err
	}
	maxFeature, err := headerInt(header, "max_feature_idx")
	if err != nil {
		return nil, err
	}
	m.numFeatures = maxFeature + 1
	m.treesPerIteration = m.numClass
	if _, ok := header["num_tree_per_iteration"]; ok {
		if m.treesPerIteration, err = headerInt(header, "num_tree_per_iteration"); err != nil {
			return nil, err
		}
	}
	if m.numClass < 1 || m.treesPerIteration < 1 {
		return nil, fmt.Errorf("lightgbm: invalid num_class=%d num_tree_per_iteration=%d",
			m.numClass, m.treesPerIteration)
	}
	_, m.averageOutput = header["average_output"]

	if err := m.parseObjective(header["objective"]); err != nil {
		return nil, err
	}

	if len(blocks) == 0 {
		return nil, errors.New("lightgbm: model has no trees")
	}
	m.trees = make([]lgbmTree, len(blocks))
	for i, b := range blocks {
		if err := m.trees[i].parse(b, m.numFeatures); err != nil {
			return nil, fmt.Errorf("lightgbm: tree %d: %w", i, err)
		}
	}
	return m, nil
}

func (m *LightGBM) parseObjective(s string) error {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return errors.New("lightgbm: model has no objective")
	}
	m.objective = fields[0]
	for _, p := range fields[1:] {
		k, v, ok := strings.Cut(p, ":")
		if !ok || k != "sigmoid" {
			continue
		}
		s, err := strconv.ParseFloat(v, 64)
		if err != nil || s <= 0 {
			return fmt.Errorf("lightgbm: invalid sigmoid %q in objective", v)
		}
		m.sigmoid = s
	}

	switch m.objective {
	case "multiclass", "softmax":
		if m.treesPerIteration != m.numClass {
			return fmt.Errorf("lightgbm: multiclass model with %d classes but %d trees per iteration",
				m.numClass, m.treesPerIteration)
		}
	case "multiclassova", "multiclass_ova", "ova", "ovr", "binary", "cross_entropy", "xentropy":
	default:
		return fmt.Errorf("lightgbm: unsupported objective %q", m.objective)
	}
	return nil
}

// NumFeatures returns the number of input features the model was trained on.
func (m *LightGBM) NumFeatures() int { return m.numFeatures }

// NumOutputs returns the length of the vector returned by Predict.
func (m *LightGBM) NumOutputs() int { return m.treesPerIteration }

// Objective returns the training objective name, e.g. "multiclass".
func (m *LightGBM) Objective() string { return m.objective }

// Trees returns the number of trees in the ensemble.
func (m *LightGBM) Trees() int { return len(m.trees) }

// Predict returns transformed scores for one row: softmax probabilities for
// multiclass, per-output sigmoid otherwise.
func (m *LightGBM) Predict(features []float64) ([]float64, error) {
	if len(features) != m.numFeatures {
		return nil, fmt.Errorf("%w: model expects %d, got %d", ErrFeatureCount, m.numFeatures, len(features))
	}

	raw := make([]float64, m.treesPerIteration)
	for i := range m.trees {
		raw[i%m.treesPerIteration] += m.trees[i].predict(features)
	}
	if m.averageOutput {
		iterations := float64(len(m.trees) / m.treesPerIteration)
		if iterations > 0 {
			for k := range raw {
				raw[k] /= iterations
			}
		}
	}

	switch m.objective {
	case "multiclass", "softmax":
		softmax(raw)
	case "cross_entropy", "xentropy":
		for k := range raw {
			raw[k] = 1 / (1 + math.Exp(-raw[k]))
		}
	default:
		for k := range raw {
			raw[k] = 1 / (1 + math.Exp(-m.sigmoid*raw[k]))
		}
	}
	return raw, nil
}

func softmax(v []float64) {
	hi := math.Inf(-1)
	for _, x := range v {
		hi = max(hi, x)
	}
	var sum float64
	for i, x := range v {
		v[i] = math.Exp(x - hi)
		sum += v[i]
	}
	for i := range v {
		v[i] /= sum
	}
}

func (t *lgbmTree) parse(kv map[string]string, numFeatures int) error {
	numLeaves, err := strconv.Atoi(kv["num_leaves"])
	if err != nil || numLeaves < 1 {
		return fmt.Errorf("invalid num_leaves %q", kv["num_leaves"])
	}
	if kv["is_linear"] == "1" {
		return errors.New("linear trees are not supported")
	}
	if t.leafValue, err = parseFloats(kv, "leaf_value", numLeaves); err != nil {
		return err
	}
	if numLeaves == 1 {
		return nil
	}

	n := numLeaves - 1
	if t.splitFeature, err = parseInts(kv, "split_feature", n); err != nil {
		return err
	}
	if t.threshold, err = parseFloats(kv, "threshold", n); err != nil {
		return err
	}
	if t.leftChild, err = parseInts(kv, "left_child", n); err != nil {
		return err
	}
	if t.rightChild, err = parseInts(kv, "right_child", n); err != nil {
		return err
	}
	dt, err := parseInts(kv, "decision_type", n)
	if err != nil {
		return err
	}
	t.decisionType = make([]uint8, n)
	for i, d := range dt {
		if d < 0 || d > math.MaxUint8 {
			return fmt.Errorf("invalid decision_type %d", d)
		}
		t.decisionType[i] = uint8(d)
	}

	numCat := 0
	if s, ok := kv["num_cat"]; ok {
		if numCat, err = strconv.Atoi(s); err != nil || numCat < 0 {
			return fmt.Errorf("invalid num_cat %q", s)
		}
	}
	if numCat > 0 {
		if t.catBoundaries, err = parseInts(kv, "cat_boundaries", numCat+1); err != nil {
			return err
		}
		words := strings.Fields(kv["cat_threshold"])
		t.catThreshold = make([]uint32, len(words))
		for i, w := range words {
			v, err := strconv.ParseUint(w, 10, 32)
			if err != nil {
				return fmt.Errorf("cat_threshold: %w", err)
			}
			t.catThreshold[i] = uint32(v)
		}
		for i := 1; i < len(t.catBoundaries); i++ {
			if t.catBoundaries[i] < t.catBoundaries[i-1] || t.catBoundaries[i] > len(t.catThreshold) {
				return fmt.Errorf("invalid cat_boundaries %v", t.catBoundaries)
			}
		}
	}

	for node := 0; node < n; node++ {
		if f := t.splitFeature[node]; f < 0 || f >= numFeatures {
			return fmt.Errorf("node %d splits on feature %d, model has %d", node, f, numFeatures)
		}
		if t.decisionType[node]&categoricalMask != 0 {
			idx := int(t.threshold[node])
			if idx < 0 || idx >= numCat {
				return fmt.Errorf("node %d references categorical split %d, model has %d", node, idx, numCat)
			}
		}
		for _, child := range []int{t.leftChild[node], t.rightChild[node]} {
			if child < 0 {
				if ^child >= numLeaves {
					return fmt.Errorf("node %d references leaf %d, tree has %d", node, ^child, numLeaves)
				}
			} else if child <= node || child >= n {
				// Children are always created after their parent.
				return fmt.Errorf("node %d has invalid child %d", node, child)
			}
		}
	}
	return nil
}

func (t *lgbmTree) predict(x []float64) float64 {
	if len(t.splitFeature) == 0 {
		return t.leafValue[0]
	}
	node := 0
	for node >= 0 {
		fval := x[t.splitFeature[node]]
		if t.decisionType[node]&categoricalMask != 0 {
			node = t.categoricalDecision(fval, node)
		} else {
			node = t.numericalDecision(fval, node)
		}
	}
	return t.leafValue[^node]
}

func (t *lgbmTree) numericalDecision(fval float64, node int) int {
	dt := t.decisionType[node]
	missing := (dt >> 2) & 3
	if math.IsNaN(fval) && missing != missingNaN {
		fval = 0
	}
	if (missing == missingZero && fval >= -zeroThreshold && fval <= zeroThreshold) ||
		(missing == missingNaN && math.IsNaN(fval)) {
		if dt&defaultLeftMask != 0 {
			return t.leftChild[node]
		}
		return t.rightChild[node]
	}
	if fval <= t.threshold[node] {
		return t.leftChild[node]
	}
	return t.rightChild[node]
}

// categoricalDecision sends NaN, negative categories and values beyond int32
// right. Values truncate toward zero, so (-1, 0) is category 0.
func (t *lgbmTree) categoricalDecision(fval float64, node int) int {
	if math.IsNaN(fval) || fval <= -1 || fval >= math.MaxInt32 {
		return t.rightChild[node]
	}
	cat := int(fval)

	idx := int(t.threshold[node])
	bits := t.catThreshold[t.catBoundaries[idx]:t.catBoundaries[idx+1]]
	if word := cat / 32; word < len(bits) && bits[word]>>(cat%32)&1 == 1 {
		return t.leftChild[node]
	}
	return t.rightChild[node]
}

func parseInts(kv map[string]string, key string, want int) ([]int, error) {
	s, ok := kv[key]
	if !ok {
		return nil, fmt.Errorf("missing %s", key)
	}
	fields := strings.Fields(s)
	if len(fields) != want {
		return nil, fmt.Errorf("%s has %d values, want %d", key, len(fields), want)
	}
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out[i] = int(v)
	}
	return out, nil
}

func parseFloats(kv map[string]string, key string, want int) ([]float64, error) {
	s, ok := kv[key]
	if !ok {
		return nil, fmt.Errorf("missing %s", key)
	}
	fields := strings.Fields(s)
	if len(fields) != want {
		return nil, fmt.Errorf("%s has %d values, want %d", key, len(fields), want)
	}
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out[i] = v
	}
	return out, nil
}

func headerInt(header map[string]string, key string) (int, error) {
	s, ok := header[key]
	if !ok {
		return 0, fmt.Errorf("lightgbm: missing header key %q", key)
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("lightgbm: header %s: %w", key, err)
	}
	return v, nil
}
