package embedding

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	tokenizer "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

// EncoderConfig describes where a sentence-embedding model lives and how to run it
type EncoderConfig struct {
	// ModelName is the directory name under ModelsDir holding model.onnx and tokenizer.json
	ModelName string
	ModelsDir string
	// ORTLibrary overrides the onnxruntime shared library location; empty uses the default
	ORTLibrary string
	MaxSeqLen  int
}

var ortInitOnce sync.Once
var ortInitErr error

// initRuntime initializes the process-wide ONNX runtime environment exactly once
func initRuntime(library string) error {
	ortInitOnce.Do(func() {
		if library != "" {
			ort.SetSharedLibraryPath(library)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// Encoder runs a sentence-transformer ONNX model locally. Embeddings are
// mean-pooled over the attention mask and L2-normalized, matching the
// sentence-transformers reference behavior.
type Encoder struct {
	modelName string
	tokenizer *tokenizer.Tokenizer
	session   *ort.DynamicAdvancedSession
	maxSeqLen int
	logger    *zap.Logger
}

// NewEncoder loads the tokenizer and ONNX session for the named model.
// Fails with *ModelLoadError when the model cannot be resolved or loaded.
func NewEncoder(cfg EncoderConfig, logger *zap.Logger) (*Encoder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxSeqLen < 1 {
		cfg.MaxSeqLen = 256
	}

	modelDir := filepath.Join(cfg.ModelsDir, cfg.ModelName)
	modelPath := filepath.Join(modelDir, "model.onnx")
	tokenizerPath := filepath.Join(modelDir, "tokenizer.json")

	if _, err := os.Stat(modelPath); err != nil {
		return nil, &ModelLoadError{Model: cfg.ModelName, Err: fmt.Errorf("model file not found: %w", err)}
	}

	tok, err := pretrained.FromFile(tokenizerPath)
	if err != nil {
		return nil, &ModelLoadError{Model: cfg.ModelName, Err: fmt.Errorf("failed to load tokenizer: %w", err)}
	}

	if err := initRuntime(cfg.ORTLibrary); err != nil {
		return nil, &ModelLoadError{Model: cfg.ModelName, Err: fmt.Errorf("failed to initialize ONNX environment: %w", err)}
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, &ModelLoadError{Model: cfg.ModelName, Err: fmt.Errorf("failed to create session options: %w", err)}
	}
	defer opts.Destroy()

	if err := opts.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll); err != nil {
		return nil, &ModelLoadError{Model: cfg.ModelName, Err: fmt.Errorf("failed to set graph optimization: %w", err)}
	}

	// Try the CUDA execution provider; fall back to CPU when unavailable
	if cudaOpts, cudaErr := ort.NewCUDAProviderOptions(); cudaErr == nil {
		if err := cudaOpts.Update(map[string]string{"device_id": "0"}); err == nil {
			if err := opts.AppendExecutionProviderCUDA(cudaOpts); err == nil {
				logger.Info("CUDA execution provider enabled",
					zap.String("model", cfg.ModelName))
			} else {
				logger.Debug("CUDA provider rejected, using CPU", zap.Error(err))
			}
		}
		cudaOpts.Destroy()
	} else {
		logger.Debug("CUDA not available, using CPU", zap.Error(cudaErr))
	}

	if err := opts.SetIntraOpNumThreads(0); err != nil {
		logger.Warn("failed to set thread count", zap.Error(err))
	}

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		opts,
	)
	if err != nil {
		return nil, &ModelLoadError{Model: cfg.ModelName, Err: fmt.Errorf("failed to create session: %w", err)}
	}

	logger.Info("embedding encoder ready",
		zap.String("model", cfg.ModelName),
		zap.String("path", modelPath))

	return &Encoder{
		modelName: cfg.ModelName,
		tokenizer: tok,
		session:   session,
		maxSeqLen: cfg.MaxSeqLen,
		logger:    logger,
	}, nil
}

// ModelName returns the loaded model's name
func (e *Encoder) ModelName() string {
	return e.modelName
}

// Embed produces one embedding per input text, in input order
func (e *Encoder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	inputs := make([]tokenizer.EncodeInput, len(texts))
	for i, t := range texts {
		inputs[i] = tokenizer.NewSingleEncodeInput(tokenizer.NewInputSequence(t))
	}

	encodings, err := e.tokenizer.EncodeBatch(inputs, true)
	if err != nil {
		return nil, fmt.Errorf("tokenization failed: %w", err)
	}

	// Truncate and find the padded sequence length
	maxLen := 0
	for i := range encodings {
		if l := len(encodings[i].GetIds()); l > maxLen {
			maxLen = l
		}
	}
	if maxLen > e.maxSeqLen {
		maxLen = e.maxSeqLen
	}

	batchSize := len(encodings)
	inputIds := make([]int64, batchSize*maxLen)
	attentionMask := make([]int64, batchSize*maxLen)
	tokenTypeIds := make([]int64, batchSize*maxLen)

	for i := range encodings {
		ids := encodings[i].GetIds()
		mask := encodings[i].GetAttentionMask()

		offset := i * maxLen
		for j := 0; j < maxLen; j++ {
			if j < len(ids) {
				inputIds[offset+j] = int64(ids[j])
				attentionMask[offset+j] = int64(mask[j])
			}
		}
	}

	shape := ort.NewShape(int64(batchSize), int64(maxLen))

	inputIdsTensor, err := ort.NewTensor(shape, inputIds)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	defer inputIdsTensor.Destroy()

	attentionMaskTensor, err := ort.NewTensor(shape, attentionMask)
	if err != nil {
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	defer attentionMaskTensor.Destroy()

	tokenTypeIdsTensor, err := ort.NewTensor(shape, tokenTypeIds)
	if err != nil {
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	defer tokenTypeIdsTensor.Destroy()

	outputs := make([]ort.Value, 1)
	err = e.session.Run(
		[]ort.Value{inputIdsTensor, attentionMaskTensor, tokenTypeIdsTensor},
		outputs,
	)
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	defer outputs[0].Destroy()

	outputTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("output tensor is not float32 type")
	}

	// Output shape: [batch_size, sequence_length, hidden_dim]
	outputShape := outputTensor.GetShape()
	seqLen := outputShape[1]
	hiddenDim := outputShape[2]
	outputData := outputTensor.GetData()

	embeddings := make([][]float32, batchSize)
	for i := 0; i < batchSize; i++ {
		tokenStates := outputData[int64(i)*seqLen*hiddenDim : int64(i+1)*seqLen*hiddenDim]
		mask := attentionMask[i*maxLen : (i+1)*maxLen]
		embeddings[i] = meanPool(tokenStates, mask, int(hiddenDim))
	}

	return embeddings, nil
}

// Close releases the ONNX session
func (e *Encoder) Close() error {
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
	return nil
}

// meanPool averages token hidden states over the attention mask and
// L2-normalizes the result
func meanPool(tokenStates []float32, mask []int64, hiddenDim int) []float32 {
	sums := make([]float64, hiddenDim)
	count := 0.0

	for t := range mask {
		if mask[t] == 0 {
			continue
		}
		count++
		base := t * hiddenDim
		for d := 0; d < hiddenDim; d++ {
			sums[d] += float64(tokenStates[base+d])
		}
	}

	if count == 0 {
		count = 1
	}

	norm := 0.0
	for d := range sums {
		sums[d] /= count
		norm += sums[d] * sums[d]
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		norm = 1
	}

	vec := make([]float32, hiddenDim)
	for d := range sums {
		vec[d] = float32(sums[d] / norm)
	}
	return vec
}
