package embedding

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// ModelDownloader fetches sentence-transformer model files from HuggingFace
// into the local models directory
type ModelDownloader struct {
	logger    *zap.Logger
	modelsDir string
	client    *http.Client
	baseURL   string
}

// modelFiles are the artifacts required to run a model locally, as
// path-within-repo -> local file name
var modelFiles = []struct {
	remote string
	local  string
}{
	{remote: "onnx/model.onnx", local: "model.onnx"},
	{remote: "tokenizer.json", local: "tokenizer.json"},
}

// NewModelDownloader creates a new model downloader instance. An empty
// baseURL selects the HuggingFace sentence-transformers repository.
func NewModelDownloader(logger *zap.Logger, modelsDir string, baseURL string) *ModelDownloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if baseURL == "" {
		baseURL = "https://huggingface.co/sentence-transformers"
	}
	return &ModelDownloader{
		logger:    logger,
		modelsDir: modelsDir,
		client: &http.Client{
			Timeout: 10 * time.Minute, // Long timeout for large model downloads
		},
		baseURL: baseURL,
	}
}

// EnsureModelExists checks that the named model's files are present locally,
// downloading any that are missing
func (d *ModelDownloader) EnsureModelExists(modelName string) error {
	modelDir := filepath.Join(d.modelsDir, modelName)

	if err := os.MkdirAll(modelDir, 0755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	for _, f := range modelFiles {
		localPath := filepath.Join(modelDir, f.local)
		if _, err := os.Stat(localPath); err == nil {
			d.logger.Debug("model file already exists",
				zap.String("model", modelName),
				zap.String("path", localPath))
			continue
		}

		if err := d.downloadFile(modelName, f.remote, localPath); err != nil {
			return err
		}
	}

	return nil
}

// downloadFile downloads one model artifact, writing to a temp file first so
// the final rename is atomic
func (d *ModelDownloader) downloadFile(modelName, remotePath, localPath string) error {
	url := fmt.Sprintf("%s/%s/resolve/main/%s", d.baseURL, modelName, remotePath)

	d.logger.Info("downloading model file",
		zap.String("model", modelName),
		zap.String("url", url),
		zap.String("destination", localPath))

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}
	req.Header.Set("User-Agent", "SceneAlign/1.0 (Go HTTP Client)")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", remotePath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download %s: HTTP %d", remotePath, resp.StatusCode)
	}

	tempFile := localPath + ".tmp"
	defer os.Remove(tempFile) // Clean up temp file if something goes wrong

	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	written, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write model data: %w", err)
	}

	if err := os.Rename(tempFile, localPath); err != nil {
		return fmt.Errorf("failed to move downloaded file to final location: %w", err)
	}

	d.logger.Info("model file downloaded",
		zap.String("model", modelName),
		zap.String("path", localPath),
		zap.Int64("bytes", written))

	return nil
}
