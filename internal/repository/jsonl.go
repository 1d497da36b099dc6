package repository

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// jsonlFile is an append-only file of one JSON document per line.
type jsonlFile struct {
	mu   sync.Mutex
	path string
}

func newJSONLFile(path string) *jsonlFile {
	return &jsonlFile{path: path}
}

func (f *jsonlFile) append(items ...interface{}) error {
	if len(items) == 0 {
		return nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, it := range items {
		if err := enc.Encode(it); err != nil {
			return fmt.Errorf("encode line: %w", err)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	fh, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", f.path, err)
	}
	if _, err := fh.Write(buf.Bytes()); err != nil {
		_ = fh.Close()
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	return fh.Close()
}

// lines calls fn for every non-empty line. A missing file has no lines.
// Lines that fail to decode are skipped and counted.
func (f *jsonlFile) lines(fn func(line []byte) error) (skipped int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fh, err := os.Open(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", f.path, err)
	}
	defer fh.Close()

	sc := bufio.NewScanner(fh)
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			skipped++
		}
	}
	if err := sc.Err(); err != nil {
		return skipped, fmt.Errorf("read %s: %w", f.path, err)
	}
	return skipped, nil
}

func (f *jsonlFile) truncate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	if err := os.WriteFile(f.path, nil, 0o644); err != nil {
		return fmt.Errorf("truncate %s: %w", f.path, err)
	}
	return nil
}
