package ingest

import (
	"strings"

	"github.com/tinytelemetry/sift/internal/model"
)

// PassthroughProcessor skips field extraction and emits records carrying
// only the trimmed message.
type PassthroughProcessor struct {
	sink       RecordSink
	sourceName string
}

// NewPassthroughProcessor creates a new passthrough processor.
func NewPassthroughProcessor(sink RecordSink, sourceName string) *PassthroughProcessor {
	return &PassthroughProcessor{
		sink:       sink,
		sourceName: sourceName,
	}
}

func (p *PassthroughProcessor) Name() string { return ProcessorModePassthrough }

// ProcessEnvelope processes one source-tagged line.
func (p *PassthroughProcessor) ProcessEnvelope(env model.IngestEnvelope) *ProcessResult {
	msg := strings.TrimSpace(env.Line)
	if msg == "" {
		return nil
	}

	source := env.Source
	if source == "" {
		source = p.sourceName
	}

	record := &model.LogRecord{Message: msg}
	if p.sink != nil {
		p.sink.Add(record)
	}

	return &ProcessResult{Source: source, Record: record}
}
