package logger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"scenealign/internal/config"
)

// ResultWriter appends completed alignment results as JSON lines to a log file
// so the orchestrating job layer can pick them up
type ResultWriter struct {
	filePath string
	logger   *zap.Logger
	mu       sync.Mutex
}

// NewResultWriter creates a ResultWriter using the configured output file path
func NewResultWriter(cfg *config.Configuration, logger *zap.Logger) (*ResultWriter, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &ResultWriter{
		filePath: cfg.GetOutputFilePath(),
		logger:   logger,
	}, nil
}

// GetFilePath returns the path of the output log file
func (rw *ResultWriter) GetFilePath() string {
	return rw.filePath
}

// FormatResultAsJSON serializes a result payload with a timestamp envelope
func (rw *ResultWriter) FormatResultAsJSON(result interface{}) ([]byte, error) {
	envelope := struct {
		Timestamp string      `json:"timestamp"`
		Result    interface{} `json:"result"`
	}{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Result:    result,
	}

	jsonBytes, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return jsonBytes, nil
}

// WriteResult appends the result as a single JSON line, creating the output
// directory on first use
func (rw *ResultWriter) WriteResult(result interface{}) error {
	jsonBytes, err := rw.FormatResultAsJSON(result)
	if err != nil {
		return err
	}

	rw.mu.Lock()
	defer rw.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(rw.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.OpenFile(rw.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open output file %s: %w", rw.filePath, err)
	}
	defer f.Close()

	if _, err := f.Write(append(jsonBytes, '\n')); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	rw.logger.Debug("alignment result written",
		zap.String("path", rw.filePath),
		zap.Int("bytes", len(jsonBytes)))

	return nil
}
