package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/daideguchi/dental-ai-counseling-system/internal/pipeline"
)

// JSONLWriter appends one JSON line per processed transcript to a log file.
// Appends are serialized so concurrent pipeline workers never interleave
// partial lines.
type JSONLWriter struct {
	mu   sync.Mutex
	path string
}

// NewJSONLWriter creates an appender for the given log path.
func NewJSONLWriter(path string) *JSONLWriter {
	return &JSONLWriter{path: path}
}

// Append writes the result as a single JSON line.
func (w *JSONLWriter) Append(res *pipeline.Result) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open session log: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode session record: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append session record: %w", err)
	}
	return nil
}
