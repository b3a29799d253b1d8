package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// JSONLWriter appends JSON lines to a size-rotated file. Each Write reaches
// the file before it returns, so records already written survive a crash.
type JSONLWriter struct {
	path   string
	mu     sync.Mutex
	logger *lumberjack.Logger
	closed bool
}

// NewJSONLWriter starts a fresh JSONL file at path, replacing one left by a
// previous run.
func NewJSONLWriter(path string, maxSizeMB int) (*JSONLWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("jsonl: mkdir %s: %w", filepath.Dir(path), err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("jsonl: remove stale %s: %w", path, err)
	}
	w := &JSONLWriter{
		path: path,
		logger: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSizeMB,
			MaxBackups: 10,
			Compress:   false,
			LocalTime:  false,
		},
	}
	slog.Info("opened JSONL file", "file", path)
	return w, nil
}

// Path returns the file being written.
func (w *JSONLWriter) Path() string { return w.path }

// Write appends record as one JSON line.
func (w *JSONLWriter) Write(record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("jsonl: marshal: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("jsonl: writer is closed")
	}
	if _, err := w.logger.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("jsonl: write: %w", err)
	}
	return nil
}

// Close closes the underlying file. Later writes fail.
func (w *JSONLWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.logger.Close()
}

// ReadJSONL decodes every non-empty line of path into a T.
func ReadJSONL[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024), 10*1024*1024)
	out := make([]T, 0)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec T
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
