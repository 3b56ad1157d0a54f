package logsource

import "github.com/tinytelemetry/sift/internal/model"

// LogSource is a unified interface for streaming line inputs (TCP, tailed files, stdin).
type LogSource interface {
	Lines() <-chan model.IngestEnvelope // read-only channel of log lines
	Stop()                              // graceful shutdown
	Name() string                       // "tcp", "tail:<path>", "stdin"
}
