package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tinytelemetry/sift/internal/ingest"
	"github.com/tinytelemetry/sift/internal/model"
)

// matchFields are the extracted columns counted by FieldMatches. The raw
// message is always present and is not counted.
var matchFields = []string{
	model.FieldTimestamp,
	model.FieldHost,
	model.FieldService,
	model.FieldPID,
	model.FieldIP,
	model.FieldPort,
	model.FieldAlert,
	model.FieldReason,
}

type Collector struct {
	Lines        *prometheus.CounterVec
	Records      *prometheus.CounterVec
	FieldMatches *prometheus.CounterVec
}

func NewCollector() *Collector {
	return &Collector{
		Lines: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sift_lines_total",
				Help: "Total number of raw lines received.",
			},
			[]string{"source"},
		),
		Records: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sift_records_total",
				Help: "Total number of records extracted.",
			},
			[]string{"source"},
		),
		FieldMatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sift_field_matches_total",
				Help: "Total number of non-empty extracted fields.",
			},
			[]string{"field"},
		),
	}
}

func (c *Collector) Register(reg prometheus.Registerer) {
	reg.MustRegister(
		c.Lines,
		c.Records,
		c.FieldMatches,
	)
}

// ObserveLine counts one raw line from source.
func (c *Collector) ObserveLine(source string) {
	c.Lines.WithLabelValues(source).Inc()
}

// ObserveRecord counts one record from source and each field it matched.
func (c *Collector) ObserveRecord(source string, record *model.LogRecord) {
	if record == nil {
		return
	}
	c.Records.WithLabelValues(source).Inc()
	for _, field := range matchFields {
		if record.Field(field) != "" {
			c.FieldMatches.WithLabelValues(field).Inc()
		}
	}
}

// Sink returns a record sink that observes every record under source
// before forwarding it to next. next may be nil.
func (c *Collector) Sink(source string, next ingest.RecordSink) ingest.RecordSink {
	return &countingSink{c: c, source: source, next: next}
}

type countingSink struct {
	c      *Collector
	source string
	next   ingest.RecordSink
}

func (s *countingSink) Add(record *model.LogRecord) {
	s.c.ObserveRecord(s.source, record)
	if s.next != nil {
		s.next.Add(record)
	}
}
