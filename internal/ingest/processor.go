package ingest

import (
	"strings"

	"github.com/tinytelemetry/sift/internal/model"
)

// Processor extracts structured records from raw lines and routes them to
// a sink.
type Processor struct {
	extractor  *Extractor
	sink       RecordSink
	sourceName string
}

// NewProcessor creates an extracting processor.
func NewProcessor(sink RecordSink, sourceName string, opts ...ExtractorOption) *Processor {
	return &Processor{
		extractor:  NewExtractor(opts...),
		sink:       sink,
		sourceName: sourceName,
	}
}

func (p *Processor) Name() string { return ProcessorModeExtract }

// ProcessEnvelope extracts one line. Blank lines produce no record and
// return nil.
func (p *Processor) ProcessEnvelope(env model.IngestEnvelope) *ProcessResult {
	if strings.TrimSpace(env.Line) == "" {
		return nil
	}

	source := env.Source
	if source == "" {
		source = p.sourceName
	}

	record := p.extractor.Extract(env.Line)
	if p.sink != nil {
		p.sink.Add(&record)
	}
	return &ProcessResult{Source: source, Record: &record}
}
