package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore appends reports to a JSON-lines file, one report per line. It
// is the always-available sink: reports survive restarts and can be
// uploaded or inspected later.
type FileStore struct {
	mu   sync.Mutex
	path string
}

var _ Sink = (*FileStore)(nil)

// NewFileStore creates dir if needed and appends to dir/reports.jsonl.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("report: create dir: %w", err)
	}
	return &FileStore{path: filepath.Join(dir, "reports.jsonl")}, nil
}

func (f *FileStore) Name() string { return "file" }

func (f *FileStore) Emit(_ context.Context, r *Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("report: marshal: %w", err)
	}
	data = append(data, '\n')

	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("report: open: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("report: write: %w", err)
	}
	return nil
}

// Load reads back every report in the store. Used by tests and the
// diagnostics endpoint.
func (f *FileStore) Load() ([]*Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("report: read: %w", err)
	}

	var out []*Report
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var r Report
		if err := dec.Decode(&r); err != nil {
			return nil, fmt.Errorf("report: decode: %w", err)
		}
		out = append(out, &r)
	}
	return out, nil
}
