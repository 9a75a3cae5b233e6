package writer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/Devon-White/achievement-scraper/internal/extractor"
)

// Sink receives batches of scraped achievements.
type Sink interface {
	Write(ctx context.Context, records []*extractor.Achievement) error
	Close() error
}

// CSVWriter appends achievements to a CSV file, writing the header only
// when the file is new or empty.
type CSVWriter struct {
	path string
}

// NewCSVWriter creates the parent directory of path and returns a writer for it.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating directory for %s: %w", path, err)
		}
	}
	return &CSVWriter{path: path}, nil
}

// Path returns the output file path.
func (w *CSVWriter) Path() string { return w.path }

// Write appends records to the file. An empty batch is a no-op.
func (w *CSVWriter) Write(_ context.Context, records []*extractor.Achievement) error {
	if len(records) == 0 {
		return nil
	}

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", w.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", w.path, err)
	}

	cw := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := cw.Write(extractor.Header()); err != nil {
			return fmt.Errorf("writing header to %s: %w", w.path, err)
		}
	}
	for _, r := range records {
		if err := cw.Write(r.Record()); err != nil {
			return fmt.Errorf("writing row %d to %s: %w", r.ID, w.path, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing %s: %w", w.path, err)
	}
	return f.Close()
}

// Close is a no-op; the file is opened per batch.
func (w *CSVWriter) Close() error { return nil }

// LastID returns the id column of the last row in the CSV at path. It
// returns 0 when the file is missing, holds only a header, or cannot be
// parsed.
func LastID(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return 0
	}
	idx := slices.Index(header, "id")
	if idx < 0 {
		return 0
	}

	var last []string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0
		}
		last = rec
	}
	if last == nil || idx >= len(last) {
		return 0
	}

	id, err := strconv.Atoi(last[idx])
	if err != nil {
		return 0
	}
	return id
}
