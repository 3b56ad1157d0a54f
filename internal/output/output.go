package output

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync/atomic"

	"github.com/tinytelemetry/sift/internal/model"
)

// Output formats.
const (
	FormatCSV   = "csv"
	FormatJSONL = "jsonl"
	FormatYAML  = "yaml"
)

// Writer emits records in one format, projected onto a fixed schema.
// Implementations are safe for concurrent use. Writers do not own the
// underlying io.Writer; Close finalizes the stream without closing it.
type Writer interface {
	Write(record *model.LogRecord) error
	Flush() error
	Close() error
}

// New creates a writer for format. An empty format selects CSV.
func New(format string, w io.Writer, schema model.Schema) (Writer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatCSV:
		return NewCSV(w, schema)
	case FormatJSONL, "json", "ndjson":
		return NewJSONL(w, schema), nil
	case FormatYAML, "yml":
		return NewYAML(w, schema), nil
	default:
		return nil, fmt.Errorf("output: unknown format %q (available: csv, jsonl, yaml)", format)
	}
}

// ContentType returns the MIME type for format.
func ContentType(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatJSONL, "json", "ndjson":
		return "application/x-ndjson"
	case FormatYAML, "yml":
		return "application/yaml"
	default:
		return "text/csv"
	}
}

// WriteAll writes records in order and flushes.
func WriteAll(w Writer, records []model.LogRecord) error {
	for i := range records {
		if err := w.Write(&records[i]); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Sink adapts a Writer to the ingest record sink contract for streaming
// use: every record is flushed as it arrives and write failures are logged.
type Sink struct {
	w        Writer
	failures atomic.Int64
}

// NewSink wraps w.
func NewSink(w Writer) *Sink {
	return &Sink{w: w}
}

// Add writes and flushes one record.
func (s *Sink) Add(record *model.LogRecord) {
	if err := s.w.Write(record); err != nil {
		s.failures.Add(1)
		log.Printf("output: write record: %v", err)
		return
	}
	if err := s.w.Flush(); err != nil {
		s.failures.Add(1)
		log.Printf("output: flush: %v", err)
	}
}

// Failures returns the number of records that could not be written.
func (s *Sink) Failures() int64 {
	return s.failures.Load()
}
