package storage

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mselser95/arbengine/pkg/types"
)

// JSONLStorage appends one JSON object per line to a file, the exact shape
// spec's "Persisted state" names as the engine's only required durable
// state. Grounded on ConsoleStorage's simplicity (one method,
// no batching) but backed by a file instead of stdout, and on
// internal/venue's use of goccy/go-json for the hot-path encode.
type JSONLStorage struct {
	mu     sync.Mutex
	file   *os.File
	logger *zap.Logger
}

// NewJSONLStorage opens (creating if necessary) path for appending.
func NewJSONLStorage(path string, logger *zap.Logger) (*JSONLStorage, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trade log: %w", err)
	}
	logger.Info("jsonl-storage-opened", zap.String("path", path))
	return &JSONLStorage{file: f, logger: logger}, nil
}

// WriteTrade appends entry as one JSON line.
func (j *JSONLStorage) WriteTrade(ctx context.Context, entry types.TradeLogEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal trade log entry: %w", err)
	}
	line = append(line, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.file.Write(line); err != nil {
		return fmt.Errorf("write trade log entry: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (j *JSONLStorage) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.logger.Info("jsonl-storage-closed")
	return j.file.Close()
}
