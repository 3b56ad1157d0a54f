package ingest

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/tinytelemetry/sift/internal/model"
	"github.com/tinytelemetry/sift/internal/timestamp"
)

var (
	hostRegex       = regexp.MustCompile(`host=([A-Za-z0-9.-]+)`)
	servicePIDRegex = regexp.MustCompile(`(\w+)\[(\d+)\]`)
	pidKVRegex      = regexp.MustCompile(`pid=(\d+)`)
	pidBracketRegex = regexp.MustCompile(`\[(\d+)\]`)
	ipRegex         = regexp.MustCompile(`\d{1,3}(?:\.\d{1,3}){3}`)
	portRegex       = regexp.MustCompile(`port(?:=|\s+)(\d+)`)
)

// SingleTokenReason selects what reason holds when the text after the first
// colon is a single token.
type SingleTokenReason int

const (
	// ReasonEmpty leaves reason empty; alert holds the token.
	ReasonEmpty SingleTokenReason = iota
	// ReasonTail copies the token into reason as well.
	ReasonTail
)

func (r SingleTokenReason) String() string {
	if r == ReasonTail {
		return "tail"
	}
	return "empty"
}

// ParseSingleTokenReason maps the config value ("empty" or "tail").
func ParseSingleTokenReason(s string) (SingleTokenReason, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "empty":
		return ReasonEmpty, nil
	case "tail":
		return ReasonTail, nil
	default:
		return ReasonEmpty, fmt.Errorf("invalid single-token-reason %q (want empty or tail)", s)
	}
}

// Extractor turns one line of free-form log text into a LogRecord.
// It is stateless after construction and safe for concurrent use.
type Extractor struct {
	timestamps  *timestamp.Parser
	singleToken SingleTokenReason
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithTimestampParser overrides the timestamp parser (e.g. its year policy).
func WithTimestampParser(p *timestamp.Parser) ExtractorOption {
	return func(e *Extractor) {
		if p != nil {
			e.timestamps = p
		}
	}
}

// WithSingleTokenReason sets the single-token alert/reason behaviour.
func WithSingleTokenReason(r SingleTokenReason) ExtractorOption {
	return func(e *Extractor) { e.singleToken = r }
}

// NewExtractor creates an extractor with the sentinel-year timestamp parser
// and ReasonEmpty unless overridden.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{timestamps: timestamp.NewParser()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultExtractor = NewExtractor()

// Extract applies the default extractor.
func Extract(line string) model.LogRecord {
	return defaultExtractor.Extract(line)
}

// Extract runs every field matcher over the trimmed line. Matchers are
// independent: a miss leaves that field "" and never stops the others.
func (e *Extractor) Extract(line string) model.LogRecord {
	line = strings.TrimSpace(line)
	rec := model.LogRecord{
		Timestamp: e.timestamps.Normalize(line),
		Message:   line,
	}

	if m := hostRegex.FindStringSubmatch(line); m != nil {
		rec.Host = m[1]
	}

	if m := servicePIDRegex.FindStringSubmatch(line); m != nil {
		rec.Service = m[1]
		rec.PID = m[2]
	} else if m := pidKVRegex.FindStringSubmatch(line); m != nil {
		rec.PID = m[1]
	} else if m := pidBracketRegex.FindStringSubmatch(line); m != nil {
		rec.PID = m[1]
	}

	rec.IP = ipRegex.FindString(line)

	if m := portRegex.FindStringSubmatch(line); m != nil {
		rec.Port = m[1]
	}

	rec.Alert, rec.Reason = e.splitAlert(line)
	return rec
}

// splitAlert splits the text after the first colon into a short alert
// phrase and the remaining reason.
func (e *Extractor) splitAlert(line string) (alert, reason string) {
	_, tail, ok := strings.Cut(line, ":")
	if !ok {
		return "", ""
	}
	tail = strings.TrimSpace(tail)
	tokens := strings.Fields(tail)

	switch len(tokens) {
	case 0:
		return "", ""
	case 1:
		if e.singleToken == ReasonTail {
			return tokens[0], tail
		}
		return tokens[0], ""
	}

	alert = tokens[0]
	rest := strings.TrimSpace(strings.TrimPrefix(tail, tokens[0]))
	if isLowerWord(tokens[1]) {
		alert += " " + tokens[1]
		rest = strings.TrimSpace(strings.TrimPrefix(rest, tokens[1]))
	}
	return alert, rest
}

func isLowerWord(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) || !unicode.IsLower(r) {
			return false
		}
	}
	return true
}
