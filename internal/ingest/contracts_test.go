package ingest

import (
	"sync"
	"testing"

	"github.com/tinytelemetry/sift/internal/model"
)

type recordingSink struct {
	mu      sync.Mutex
	records []*model.LogRecord
}

func (s *recordingSink) Add(record *model.LogRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
}

func TestNewEnvelopeProcessor_DefaultExtract(t *testing.T) {
	t.Parallel()

	p, err := NewEnvelopeProcessor("", nil, "")
	if err != nil {
		t.Fatalf("NewEnvelopeProcessor returned error: %v", err)
	}
	if p.Name() != ProcessorModeExtract {
		t.Fatalf("processor name = %q, want %q", p.Name(), ProcessorModeExtract)
	}
	if _, ok := p.(*Processor); !ok {
		t.Fatalf("processor type = %T, want *Processor", p)
	}
}

func TestNewEnvelopeProcessor_Passthrough(t *testing.T) {
	t.Parallel()

	p, err := NewEnvelopeProcessor("passthrough", nil, "")
	if err != nil {
		t.Fatalf("NewEnvelopeProcessor returned error: %v", err)
	}
	if _, ok := p.(*PassthroughProcessor); !ok {
		t.Fatalf("processor type = %T, want *PassthroughProcessor", p)
	}
}

func TestNewEnvelopeProcessor_InvalidMode(t *testing.T) {
	t.Parallel()

	if _, err := NewEnvelopeProcessor("otel", nil, ""); err == nil {
		t.Fatal("expected error for invalid processor mode")
	}
}

func TestProcessor_ProcessEnvelope_RoutesToSink(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	p := NewProcessor(sink, "stdin")

	res := p.ProcessEnvelope(model.IngestEnvelope{Source: "tcp", Line: "sshd[9]: Accepted publickey for deploy"})
	if res == nil {
		t.Fatal("ProcessEnvelope returned nil")
	}
	if res.Source != "tcp" {
		t.Errorf("source = %q, want tcp", res.Source)
	}
	if res.Record.Service != "sshd" || res.Record.PID != "9" {
		t.Errorf("service/pid = %q/%q", res.Record.Service, res.Record.PID)
	}
	if len(sink.records) != 1 || sink.records[0] != res.Record {
		t.Fatalf("sink records = %d, want the returned record", len(sink.records))
	}
}

func TestProcessor_UntaggedLineUsesDefaultSource(t *testing.T) {
	t.Parallel()

	p := NewProcessor(nil, "stdin")
	res := p.ProcessEnvelope(model.IngestEnvelope{Line: "hello"})
	if res == nil || res.Source != "stdin" {
		t.Fatalf("result = %+v, want source stdin", res)
	}
}

func TestProcessor_SkipsBlankLines(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	p := NewProcessor(sink, "")
	for _, line := range []string{"", "   ", "\t\r"} {
		if res := p.ProcessEnvelope(model.IngestEnvelope{Line: line}); res != nil {
			t.Errorf("ProcessEnvelope(%q) = %+v, want nil", line, res)
		}
	}
	if len(sink.records) != 0 {
		t.Fatalf("sink got %d records, want 0", len(sink.records))
	}
}

func TestProcessor_ExtractorOptions(t *testing.T) {
	t.Parallel()

	p, err := NewEnvelopeProcessor(ProcessorModeExtract, nil, "", WithSingleTokenReason(ReasonTail))
	if err != nil {
		t.Fatalf("NewEnvelopeProcessor: %v", err)
	}
	res := p.ProcessEnvelope(model.IngestEnvelope{Line: "error: timeout"})
	if res.Record.Reason != "timeout" {
		t.Errorf("reason = %q, want timeout", res.Record.Reason)
	}
}

func TestPassthroughProcessor_MessageOnly(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	p := NewPassthroughProcessor(sink, "stdin")

	res := p.ProcessEnvelope(model.IngestEnvelope{Line: "  sshd[1]: Failed password from 10.0.0.1  "})
	if res == nil {
		t.Fatal("ProcessEnvelope returned nil")
	}
	want := model.LogRecord{Message: "sshd[1]: Failed password from 10.0.0.1"}
	if *res.Record != want {
		t.Errorf("record = %+v, want %+v", *res.Record, want)
	}
	if res.Source != "stdin" {
		t.Errorf("source = %q, want stdin", res.Source)
	}
	if p.ProcessEnvelope(model.IngestEnvelope{Line: " "}) != nil {
		t.Error("blank line should be skipped")
	}
	if len(sink.records) != 1 {
		t.Errorf("sink records = %d, want 1", len(sink.records))
	}
}
