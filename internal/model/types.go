package model

import (
	"fmt"
	"strings"
)

// Column names of the superset record, in declared order.
const (
	FieldTimestamp = "timestamp"
	FieldHost      = "host"
	FieldService   = "service"
	FieldPID       = "pid"
	FieldIP        = "ip"
	FieldPort      = "port"
	FieldAlert     = "alert"
	FieldReason    = "reason"
	FieldMessage   = "message"
)

// LogRecord is one structured row extracted from a raw log line.
// Every field is a plain string; a field with no match is "".
type LogRecord struct {
	Timestamp string `json:"timestamp" yaml:"timestamp"`
	Host      string `json:"host" yaml:"host"`
	Service   string `json:"service" yaml:"service"`
	PID       string `json:"pid" yaml:"pid"`
	IP        string `json:"ip" yaml:"ip"`
	Port      string `json:"port" yaml:"port"`
	Alert     string `json:"alert" yaml:"alert"`
	Reason    string `json:"reason" yaml:"reason"`
	Message   string `json:"message" yaml:"message"`
}

// Field returns the value of the named column, or "" for unknown names.
func (r *LogRecord) Field(name string) string {
	switch name {
	case FieldTimestamp:
		return r.Timestamp
	case FieldHost:
		return r.Host
	case FieldService:
		return r.Service
	case FieldPID:
		return r.PID
	case FieldIP:
		return r.IP
	case FieldPort:
		return r.Port
	case FieldAlert:
		return r.Alert
	case FieldReason:
		return r.Reason
	case FieldMessage:
		return r.Message
	default:
		return ""
	}
}

// Values projects the record onto a schema's column order.
func (r *LogRecord) Values(s Schema) []string {
	out := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		out[i] = r.Field(col)
	}
	return out
}

// Schema is an ordered column projection of LogRecord.
type Schema struct {
	Name    string
	Columns []string
}

var (
	// FullSchema is the canonical output shape.
	FullSchema = Schema{
		Name: "full",
		Columns: []string{
			FieldTimestamp, FieldHost, FieldService, FieldPID, FieldIP,
			FieldPort, FieldAlert, FieldReason, FieldMessage,
		},
	}

	// ReducedSchema drops host, service, alert and reason.
	ReducedSchema = Schema{
		Name:    "reduced",
		Columns: []string{FieldTimestamp, FieldIP, FieldPort, FieldPID, FieldMessage},
	}
)

// SchemaByName resolves a schema name. An empty name selects FullSchema.
func SchemaByName(name string) (Schema, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", FullSchema.Name:
		return FullSchema, nil
	case ReducedSchema.Name:
		return ReducedSchema, nil
	default:
		return Schema{}, fmt.Errorf("unknown schema %q (available: full, reduced)", name)
	}
}
