package logsource

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tinytelemetry/sift/internal/model"
)

// FileReader loads every candidate line of a file.
type FileReader func(path string) ([]string, error)

// FileSource reads a file once and closes Lines after the last line.
type FileSource struct {
	path     string
	ch       chan model.IngestEnvelope
	cancel   context.CancelFunc
	stopOnce sync.Once
	done     chan struct{}
}

// NewFileSource loads path with read before returning, so an unreadable
// file fails here rather than as an empty stream.
func NewFileSource(ctx context.Context, path string, read FileReader) (*FileSource, error) {
	lines, err := read(path)
	if err != nil {
		return nil, fmt.Errorf("logsource: read %s: %w", path, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &FileSource{
		path:   path,
		ch:     make(chan model.IngestEnvelope, min(len(lines), DefaultTailBuffer)),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.emit(ctx, lines)
	return s, nil
}

func (s *FileSource) emit(ctx context.Context, lines []string) {
	defer close(s.done)
	defer close(s.ch)

	name := s.Name()
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		select {
		case s.ch <- model.IngestEnvelope{Source: name, Line: line}:
		case <-ctx.Done():
			return
		}
	}
}

func (s *FileSource) Lines() <-chan model.IngestEnvelope { return s.ch }

// Stop abandons any unsent lines and waits for Lines to close.
func (s *FileSource) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		<-s.done
	})
}

func (s *FileSource) Name() string { return "file:" + s.path }
