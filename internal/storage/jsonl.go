package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"yieldScope/internal/model"
)

// JsonlStorage appends results to a JSONL file, or to a writer when no
// path is set.
type JsonlStorage struct {
	path string
	w    io.Writer
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

// NewJsonlWriter writes JSON lines to w, typically os.Stdout.
func NewJsonlWriter(w io.Writer) *JsonlStorage {
	return &JsonlStorage{w: w}
}

// PutAccrualResults appends one line per market result.
func (s *JsonlStorage) PutAccrualResults(results []model.AccrualResult) error {
	records := make([]interface{}, len(results))
	for i := range results {
		records[i] = results[i]
	}
	return s.put(records)
}

// PutSourceYields appends one line per comparison source.
func (s *JsonlStorage) PutSourceYields(yields []model.SourceYield) error {
	records := make([]interface{}, len(yields))
	for i := range yields {
		records[i] = yields[i]
	}
	return s.put(records)
}

func (s *JsonlStorage) put(records []interface{}) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.w != nil {
		return writeLines(s.w, records)
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	return writeLines(file, records)
}

func writeLines(w io.Writer, records []interface{}) error {
	writer := bufio.NewWriter(w)
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
