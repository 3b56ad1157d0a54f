package timestamp

import (
	"regexp"
	"strings"
	"time"
)

// ISOLayout is the canonical output format: ISO-8601 without a zone.
const ISOLayout = "2006-01-02T15:04:05"

// SentinelYear is assigned to year-less syslog timestamps by default.
// It keeps normalization deterministic across runs.
const SentinelYear = 1900

type shape struct {
	name     string
	pattern  *regexp.Regexp
	layouts  []string
	yearless bool
}

// Locating patterns, highest priority first. The first pattern with any
// match in the line wins; later shapes are not consulted.
var shapes = []shape{
	{
		name:     "syslog",
		pattern:  regexp.MustCompile(`[A-Za-z]{3}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2}`),
		layouts:  []string{"Jan 2 15:04:05"},
		yearless: true,
	},
	{
		name:    "iso",
		pattern: regexp.MustCompile(`\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}`),
		layouts: []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05"},
	},
	{
		name:    "slash",
		pattern: regexp.MustCompile(`\d{2}/\d{2}/\d{4} \d{2}:\d{2}:\d{2}`),
		layouts: []string{"02/01/2006 15:04:05"},
	},
}

// Result describes the timestamp located in a line of text.
type Result struct {
	Found     bool      // a locating pattern matched
	Parsed    bool      // the match parsed against a calendar layout
	Raw       string    // matched substring
	Shape     string    // "syslog", "iso" or "slash"
	Timestamp time.Time // valid when Parsed
}

// Parser locates and parses timestamps embedded in free text.
// It holds no mutable state and is safe for concurrent use.
type Parser struct {
	year func() int
}

// Option configures a Parser.
type Option func(*Parser)

// WithYear assigns a fixed year to year-less syslog timestamps.
func WithYear(year int) Option {
	return func(p *Parser) {
		p.year = func() int { return year }
	}
}

// WithCurrentYear assigns the clock's current year to year-less timestamps.
// A nil clock uses time.Now.
func WithCurrentYear(clock func() time.Time) Option {
	if clock == nil {
		clock = time.Now
	}
	return func(p *Parser) {
		p.year = func() int { return clock().Year() }
	}
}

// YearPolicy maps the syslog-year config value to an Option:
// 0 keeps the sentinel year, -1 uses the current year, n > 0 fixes year n.
func YearPolicy(v int) Option {
	switch {
	case v > 0:
		return WithYear(v)
	case v == -1:
		return WithCurrentYear(nil)
	default:
		return WithYear(SentinelYear)
	}
}

// NewParser creates a parser. Without options, year-less timestamps get
// SentinelYear.
func NewParser(opts ...Option) *Parser {
	p := &Parser{}
	WithYear(SentinelYear)(p)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultParser = NewParser()

// ParseFromText locates the first timestamp shape present in text and
// attempts to parse it.
func (p *Parser) ParseFromText(text string) Result {
	for _, s := range shapes {
		raw := s.pattern.FindString(text)
		if raw == "" {
			continue
		}
		res := Result{Found: true, Raw: raw, Shape: s.name}
		if ts, ok := p.parse(s, raw); ok {
			res.Parsed = true
			res.Timestamp = ts
		}
		return res
	}
	return Result{}
}

func (p *Parser) parse(s shape, raw string) (time.Time, bool) {
	value := raw
	if s.yearless {
		// Syslog pads single-digit days with extra spaces.
		value = strings.Join(strings.Fields(raw), " ")
	}
	for _, layout := range s.layouts {
		t, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		if !s.yearless {
			return t, true
		}
		withYear := time.Date(p.year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
		if withYear.Month() != t.Month() || withYear.Day() != t.Day() {
			// Feb 29 in a non-leap year.
			return time.Time{}, false
		}
		return withYear, true
	}
	return time.Time{}, false
}

// Normalize returns the canonical ISO-8601 form of the first timestamp in
// line, the raw matched substring when it does not parse, or "" when the
// line carries no recognizable timestamp.
func (p *Parser) Normalize(line string) string {
	res := p.ParseFromText(line)
	switch {
	case !res.Found:
		return ""
	case !res.Parsed:
		return res.Raw
	default:
		return res.Timestamp.Format(ISOLayout)
	}
}

// Normalize applies the default parser.
func Normalize(line string) string {
	return defaultParser.Normalize(line)
}
