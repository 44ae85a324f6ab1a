package embed

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/daulet/tokenizers"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/varunkamath/rune/internal/rerr"
)

// maxSeqLen caps tokenized input length; all-MiniLM-L6-v2 was trained on
// 256-token sequences and longer inputs add quadratic attention cost for
// little gain on code-chunk-sized text.
const maxSeqLen = 256

// ONNXEmbedder runs all-MiniLM-L6-v2 via ONNX Runtime, mean-pooling the
// token embeddings over the attention mask and L2-normalizing the result.
type ONNXEmbedder struct {
	mu        sync.Mutex
	session   *ort.DynamicAdvancedSession
	tokenizer *tokenizers.Tokenizer
	closed    bool
}

// NewONNXEmbedder loads the model and tokenizer from modelDir, which must
// contain model.onnx and tokenizer.json. ortLibPath points at the ONNX
// Runtime shared library; pass "" to use the platform default search path.
func NewONNXEmbedder(modelDir, ortLibPath string) (*ONNXEmbedder, error) {
	modelPath := filepath.Join(modelDir, modelFileName)
	tokenPath := filepath.Join(modelDir, tokenizerFile)

	if _, err := os.Stat(modelPath); err != nil {
		return nil, rerr.Wrap(rerr.KindModelNotFound, "onnx model missing", err)
	}
	if _, err := os.Stat(tokenPath); err != nil {
		return nil, rerr.Wrap(rerr.KindModelNotFound, "tokenizer missing", err)
	}

	if ortLibPath != "" {
		ort.SetSharedLibraryPath(ortLibPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, rerr.Wrap(rerr.KindEmbedding, "initialize onnx runtime", err)
	}

	numThreads := runtime.NumCPU()
	if numThreads > 4 {
		numThreads = 4
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, rerr.Wrap(rerr.KindEmbedding, "create session options", err)
	}
	defer opts.Destroy()
	if err := opts.SetIntraOpNumThreads(numThreads); err != nil {
		return nil, rerr.Wrap(rerr.KindEmbedding, "set intra-op threads", err)
	}
	if err := opts.SetInterOpNumThreads(1); err != nil {
		return nil, rerr.Wrap(rerr.KindEmbedding, "set inter-op threads", err)
	}

	inputNames := []string{"input_ids", "attention_mask", "token_type_ids"}
	outputNames := []string{"last_hidden_state"}
	session, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, outputNames, opts)
	if err != nil {
		return nil, rerr.Wrap(rerr.KindEmbedding, "create onnx session", err)
	}

	tk, err := tokenizers.FromFile(tokenPath)
	if err != nil {
		session.Destroy()
		return nil, rerr.Wrap(rerr.KindEmbedding, "load tokenizer", err)
	}

	return &ONNXEmbedder{session: session, tokenizer: tk}, nil
}

func (e *ONNXEmbedder) Dimensions() int { return ModelDimensions }

func (e *ONNXEmbedder) ModelName() string { return "all-MiniLM-L6-v2" }

func (e *ONNXEmbedder) Available(_ context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.closed
}

func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if e.session != nil {
		e.session.Destroy()
	}
	if e.tokenizer != nil {
		e.tokenizer.Close()
	}
	return nil
}

func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += MaxBatchSize {
		end := i + MaxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		batch, err := e.embedBatch(texts[i:end])
		if err != nil {
			return nil, rerr.Wrap(rerr.KindEmbedding, "embed batch", err)
		}
		results = append(results, batch...)
	}
	return results, nil
}

type encodedInput struct {
	ids  []int64
	mask []int64
}

// embedBatch runs one ONNX inference call for up to MaxBatchSize texts: the
// batch is tokenized, padded to the longest sequence, run through the
// model, and each row's token embeddings are mean-pooled over its
// attention mask (padding tokens excluded) before L2 normalization.
func (e *ONNXEmbedder) embedBatch(texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, rerr.New(rerr.KindEmbedding, "onnx embedder is closed")
	}

	batchSize := len(texts)
	encoded := make([]encodedInput, batchSize)
	maxLen := 0
	for i, text := range texts {
		enc := e.tokenizer.EncodeWithOptions(text, true, tokenizers.WithReturnAttentionMask())
		ids := enc.IDs
		if len(ids) > maxSeqLen {
			ids = ids[:maxSeqLen]
		}
		ids64 := make([]int64, len(ids))
		mask64 := make([]int64, len(ids))
		for j := range ids {
			ids64[j] = int64(ids[j])
			mask64[j] = 1
		}
		if len(enc.AttentionMask) >= len(ids) {
			for j := range ids64 {
				mask64[j] = int64(enc.AttentionMask[j])
			}
		}
		encoded[i] = encodedInput{ids: ids64, mask: mask64}
		if len(ids64) > maxLen {
			maxLen = len(ids64)
		}
	}
	if maxLen == 0 {
		return nil, rerr.New(rerr.KindEmbedding, "all inputs tokenized to zero length")
	}

	flatIDs := make([]int64, batchSize*maxLen)
	flatMask := make([]int64, batchSize*maxLen)
	flatType := make([]int64, batchSize*maxLen)
	for i, enc := range encoded {
		copy(flatIDs[i*maxLen:], enc.ids)
		copy(flatMask[i*maxLen:], enc.mask)
	}
	shape := ort.NewShape(int64(batchSize), int64(maxLen))

	inputIDs, err := ort.NewTensor(shape, flatIDs)
	if err != nil {
		return nil, rerr.Wrap(rerr.KindEmbedding, "build input_ids tensor", err)
	}
	defer inputIDs.Destroy()
	attnMask, err := ort.NewTensor(shape, flatMask)
	if err != nil {
		return nil, rerr.Wrap(rerr.KindEmbedding, "build attention_mask tensor", err)
	}
	defer attnMask.Destroy()
	typeIDs, err := ort.NewTensor(shape, flatType)
	if err != nil {
		return nil, rerr.Wrap(rerr.KindEmbedding, "build token_type_ids tensor", err)
	}
	defer typeIDs.Destroy()

	outputs := []ort.Value{nil}
	if err := e.session.Run([]ort.Value{inputIDs, attnMask, typeIDs}, outputs); err != nil {
		return nil, rerr.Wrap(rerr.KindEmbedding, "run onnx session", err)
	}
	defer func() {
		if outputs[0] != nil {
			outputs[0].Destroy()
		}
	}()

	hiddenTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, rerr.New(rerr.KindEmbedding, "unexpected onnx output type")
	}
	hidden := hiddenTensor.GetData()
	seqLen := int(hiddenTensor.GetShape()[1])
	dim := ModelDimensions

	vectors := make([][]float32, batchSize)
	for i := 0; i < batchSize; i++ {
		vectors[i] = meanPool(hidden, encoded[i].mask, i, seqLen, dim)
	}
	return vectors, nil
}

// meanPool averages the hidden states of row i across non-padding
// positions (mask==1), matching the model's attention mask rather than the
// CLS-token shortcut: all-MiniLM-L6-v2 was trained with mean-pooling as
// its sentence representation, so using CLS alone would embed off-distribution.
func meanPool(hidden []float32, mask []int64, row, seqLen, dim int) []float32 {
	vec := make([]float32, dim)
	var count float32
	base := row * seqLen * dim
	for t := 0; t < seqLen && t < len(mask); t++ {
		if mask[t] == 0 {
			continue
		}
		count++
		tokenBase := base + t*dim
		for d := 0; d < dim; d++ {
			vec[d] += hidden[tokenBase+d]
		}
	}
	if count > 0 {
		for d := range vec {
			vec[d] /= count
		}
	}
	return normalizeVector(vec)
}
