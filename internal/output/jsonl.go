package output

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/tinytelemetry/sift/internal/model"
)

// JSONLWriter writes one JSON object per line with keys in schema order.
type JSONLWriter struct {
	mu     sync.Mutex
	w      *bufio.Writer
	schema model.Schema
	buf    bytes.Buffer
}

// NewJSONL creates a JSON lines writer.
func NewJSONL(w io.Writer, schema model.Schema) *JSONLWriter {
	return &JSONLWriter{w: bufio.NewWriter(w), schema: schema}
}

func (j *JSONLWriter) Write(record *model.LogRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.buf.Reset()
	enc := json.NewEncoder(&j.buf)
	enc.SetEscapeHTML(false)

	j.buf.WriteByte('{')
	for i, col := range j.schema.Columns {
		if i > 0 {
			j.buf.WriteByte(',')
		}
		if err := encodeString(enc, &j.buf, col); err != nil {
			return err
		}
		j.buf.WriteByte(':')
		if err := encodeString(enc, &j.buf, record.Field(col)); err != nil {
			return err
		}
	}
	j.buf.WriteString("}\n")

	if _, err := j.w.Write(j.buf.Bytes()); err != nil {
		return fmt.Errorf("output: jsonl write: %w", err)
	}
	return nil
}

// encodeString appends the JSON form of s without the encoder's newline.
func encodeString(enc *json.Encoder, buf *bytes.Buffer, s string) error {
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("output: jsonl encode: %w", err)
	}
	buf.Truncate(buf.Len() - 1)
	return nil
}

func (j *JSONLWriter) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.w.Flush()
}

func (j *JSONLWriter) Close() error {
	return j.Flush()
}
