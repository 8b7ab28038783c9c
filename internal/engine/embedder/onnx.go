package embedder

import (
	"fmt"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ortEnv guards the process-wide ONNX Runtime initialization.
var ortEnv struct {
	once sync.Once
	err  error
}

func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// ONNXEmbedder runs a BERT-style sentence encoder: WordPiece tokenization,
// transformer forward pass, mean pooling and an optional dense projection.
type ONNXEmbedder struct {
	session *onnxSession
	tok     *tokenizer
	proj    *projection // nil when the model has no dense head
}

// NewONNX loads the encoder at modelPath with its vocab.txt. projectionPath
// may be empty. The ONNX Runtime shared library is expected next to the
// model as libonnxruntime.so.
func NewONNX(modelPath, vocabPath, projectionPath string) (*ONNXEmbedder, error) {
	sess, err := newONNXSession(modelPath)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	tok, err := newTokenizer(vocabPath)
	if err != nil {
		sess.close()
		return nil, fmt.Errorf("embedder: %w", err)
	}

	e := &ONNXEmbedder{session: sess, tok: tok}
	if projectionPath == "" {
		return e, nil
	}

	proj, err := loadProjection(projectionPath)
	if err != nil {
		sess.close()
		return nil, fmt.Errorf("embedder: %w", err)
	}
	if int(sess.hiddenDim) != proj.inDim {
		sess.close()
		return nil, fmt.Errorf("embedder: ONNX output dim %d != projection input dim %d",
			sess.hiddenDim, proj.inDim)
	}
	e.proj = proj
	return e, nil
}

// Dim returns the sentence vector length after projection.
func (e *ONNXEmbedder) Dim() int {
	if e.proj != nil {
		return e.proj.outDim
	}
	return int(e.session.hiddenDim)
}

// Embed encodes text into a single sentence vector.
func (e *ONNXEmbedder) Embed(text string) ([]float32, error) {
	seq := e.tok.encode(text)
	hidden, err := e.session.infer(seq)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	pooled := meanPool(hidden, seq.attentionMask, e.session.hiddenDim)
	if e.proj == nil {
		return pooled, nil
	}
	return e.proj.apply(pooled), nil
}

// Close releases ONNX Runtime resources.
func (e *ONNXEmbedder) Close() error {
	if e.session != nil {
		return e.session.close()
	}
	return nil
}

// onnxSession wraps a DynamicAdvancedSession over a model with BERT inputs
// and a [batch, seq, hidden] output.
type onnxSession struct {
	session    *ort.DynamicAdvancedSession
	inputNames []string
	outputName string
	hiddenDim  int64
}

func newONNXSession(modelPath string) (*onnxSession, error) {
	libPath := filepath.Join(filepath.Dir(modelPath), "libonnxruntime.so")
	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx: failed to initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info: %w", err)
	}

	inputNames, err := validateInputs(inputs)
	if err != nil {
		return nil, err
	}

	if len(outputs) == 0 {
		return nil, fmt.Errorf("onnx: model has no outputs")
	}
	dims := outputs[0].Dimensions
	if len(dims) != 3 || dims[2] <= 0 {
		return nil, fmt.Errorf("onnx: expected [batch, seq, hidden] output, got %v", dims)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	defer opts.Destroy()
	// Inference runs on the calling goroutine only.
	opts.SetIntraOpNumThreads(1)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		inputNames,
		[]string{outputs[0].Name},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session: %w", err)
	}

	return &onnxSession{
		session:    session,
		inputNames: inputNames,
		outputName: outputs[0].Name,
		hiddenDim:  dims[2],
	}, nil
}

// validateInputs returns the BERT input names in feed order.
func validateInputs(inputs []ort.InputOutputInfo) ([]string, error) {
	present := make(map[string]bool, len(inputs))
	for _, inp := range inputs {
		present[inp.Name] = true
	}
	required := []string{"input_ids", "attention_mask", "token_type_ids"}
	for _, name := range required {
		if !present[name] {
			return nil, fmt.Errorf("onnx: model missing required input %q", name)
		}
	}
	return required, nil
}

// infer runs the encoder on one sequence and returns the flat
// [seqLen * hiddenDim] hidden states.
func (s *onnxSession) infer(seq sequence) ([]float32, error) {
	shape := ort.NewShape(1, seq.len())

	feeds := make([]ort.Value, 0, 3)
	defer func() {
		for _, v := range feeds {
			v.Destroy()
		}
	}()
	for _, data := range [][]int64{seq.inputIDs, seq.attentionMask, seq.tokenTypeIDs} {
		t, err := ort.NewTensor(shape, data)
		if err != nil {
			return nil, fmt.Errorf("onnx: failed to create input tensor: %w", err)
		}
		feeds = append(feeds, t)
	}

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, seq.len(), s.hiddenDim))
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create output tensor: %w", err)
	}
	defer out.Destroy()

	if err := s.session.Run(feeds, []ort.Value{out}); err != nil {
		return nil, fmt.Errorf("onnx: inference failed: %w", err)
	}

	src := out.GetData()
	hidden := make([]float32, len(src))
	copy(hidden, src)
	return hidden, nil
}

func (s *onnxSession) close() error {
	return s.session.Destroy()
}
