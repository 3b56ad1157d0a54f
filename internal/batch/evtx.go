package batch

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/0xrawsec/golang-evtx/evtx"
)

// evtxMissing stands in for any field a record does not carry.
const evtxMissing = "N/A"

var (
	evtxEventIDPath      = evtx.Path("/Event/System/EventID")
	evtxEventIDValuePath = evtx.Path("/Event/System/EventID/Value")
	evtxTimePath         = evtx.Path("/Event/System/TimeCreated/SystemTime")
	evtxUserPath         = evtx.Path("/Event/EventData/TargetUserName")
	evtxIPPath           = evtx.Path("/Event/EventData/IpAddress")
	evtxLogonTypePath    = evtx.Path("/Event/EventData/LogonType")
	evtxStatusPath       = evtx.Path("/Event/EventData/Status")
	evtxDataPath         = evtx.Path("/Event/EventData/Data")
)

// EVTXRecord holds the logon-audit fields lifted from one Windows event.
// Empty fields render as N/A.
type EVTXRecord struct {
	Time      string
	EventID   string
	User      string
	IP        string
	LogonType string
	Status    string
	Message   string
}

// Line renders the record as one comma-separated key=value line, the shape
// the extractor reads timestamps and addresses from.
func (r EVTXRecord) Line() string {
	var b strings.Builder
	fields := []struct{ key, val string }{
		{"Time", r.Time},
		{"EventID", r.EventID},
		{"User", r.User},
		{"IP", r.IP},
		{"LogonType", r.LogonType},
		{"Status", r.Status},
		{"Message", r.Message},
	}
	for i, f := range fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.key)
		b.WriteByte('=')
		b.WriteString(orMissing(f.val))
	}
	return b.String()
}

func orMissing(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return evtxMissing
	}
	return s
}

// ReadEVTX converts every record of a Windows event log into one line.
// Corrupt chunks are skipped rather than failing the file.
func ReadEVTX(path string) ([]string, error) {
	ef, err := evtx.OpenDirty(path)
	if err != nil {
		return nil, fmt.Errorf("batch: open evtx %s: %w", path, err)
	}
	defer ef.Close()

	var lines []string
	for e := range ef.FastEvents() {
		lines = append(lines, evtxRecordOf(e).Line())
	}
	return lines, nil
}

// ReadEVTXFrom spools r to a temporary file, since the event log format
// needs random access, then reads it with ReadEVTX.
func ReadEVTXFrom(r io.Reader) ([]string, error) {
	tmp, err := os.CreateTemp("", "sift-*.evtx")
	if err != nil {
		return nil, fmt.Errorf("batch: spool evtx: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("batch: spool evtx: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("batch: spool evtx: %w", err)
	}
	return ReadEVTX(tmp.Name())
}

func evtxRecordOf(e *evtx.GoEvtxMap) EVTXRecord {
	rec := EVTXRecord{
		User:      evtxString(e, &evtxUserPath),
		IP:        evtxString(e, &evtxIPPath),
		LogonType: evtxString(e, &evtxLogonTypePath),
		Status:    evtxString(e, &evtxStatusPath),
		Message:   evtxString(e, &evtxDataPath),
	}
	if t, err := e.GetTime(&evtxTimePath); err == nil && !t.IsZero() {
		rec.Time = t.UTC().Format(time.RFC3339Nano)
	}
	if id, err := e.GetInt(&evtxEventIDPath); err == nil {
		rec.EventID = strconv.FormatInt(id, 10)
	} else if id, err := e.GetInt(&evtxEventIDValuePath); err == nil {
		rec.EventID = strconv.FormatInt(id, 10)
	}
	return rec
}

func evtxString(e *evtx.GoEvtxMap, path *evtx.GoEvtxPath) string {
	v, err := e.Get(path)
	if err != nil || v == nil || *v == nil {
		return ""
	}
	return fmt.Sprint(*v)
}
