package ingest

import (
	"fmt"
	"strings"

	"github.com/tinytelemetry/sift/internal/model"
)

const (
	// ProcessorModeExtract runs the field extractor on every line.
	ProcessorModeExtract = "extract"
	// ProcessorModePassthrough emits message-only records.
	ProcessorModePassthrough = "passthrough"
)

// RecordSink receives processed records.
type RecordSink interface {
	Add(record *model.LogRecord)
}

// EnvelopeProcessor consumes source-tagged ingest lines and emits records.
type EnvelopeProcessor interface {
	Name() string
	ProcessEnvelope(model.IngestEnvelope) *ProcessResult
}

// ProcessResult holds the outcome of processing one line.
type ProcessResult struct {
	Source string
	Record *model.LogRecord
}

// NewEnvelopeProcessor builds the processor for mode. An empty mode selects
// extraction.
func NewEnvelopeProcessor(mode string, sink RecordSink, sourceName string, opts ...ExtractorOption) (EnvelopeProcessor, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ProcessorModeExtract:
		return NewProcessor(sink, sourceName, opts...), nil
	case ProcessorModePassthrough:
		return NewPassthroughProcessor(sink, sourceName), nil
	default:
		return nil, fmt.Errorf("ingest: unknown processor mode %q", mode)
	}
}
