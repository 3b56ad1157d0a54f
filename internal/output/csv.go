package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"sync"

	"github.com/tinytelemetry/sift/internal/model"
)

// CSVWriter writes a header row followed by one row per record.
type CSVWriter struct {
	mu     sync.Mutex
	w      *csv.Writer
	schema model.Schema
}

// NewCSV writes the schema header immediately so that an empty batch still
// yields a valid table.
func NewCSV(w io.Writer, schema model.Schema) (*CSVWriter, error) {
	cw := &CSVWriter{w: csv.NewWriter(w), schema: schema}
	if err := cw.w.Write(schema.Columns); err != nil {
		return nil, fmt.Errorf("output: csv header: %w", err)
	}
	return cw, nil
}

func (c *CSVWriter) Write(record *model.LogRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.w.Write(record.Values(c.schema)); err != nil {
		return fmt.Errorf("output: csv row: %w", err)
	}
	return nil
}

func (c *CSVWriter) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.w.Flush()
	return c.w.Error()
}

func (c *CSVWriter) Close() error {
	return c.Flush()
}
