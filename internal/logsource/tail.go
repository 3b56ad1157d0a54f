package logsource

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/nxadm/tail"
	"github.com/tinytelemetry/sift/internal/model"
)

// DefaultTailBuffer is the default channel buffer size for tailed lines.
const DefaultTailBuffer = 10_000

// TailConfig holds tunable parameters for a tailed file.
type TailConfig struct {
	BufferSize int
	// Follow keeps reading as the file grows and across rotation. When
	// false the file is read once to EOF.
	Follow bool
	// FromEnd starts at the current end of the file instead of the start.
	FromEnd bool
	// Poll uses stat polling instead of inotify, which is more reliable on
	// container bind mounts.
	Poll bool
}

// TailSource follows a file and emits each new line.
type TailSource struct {
	path     string
	t        *tail.Tail
	ch       chan model.IngestEnvelope
	cancel   context.CancelFunc
	stopOnce sync.Once
	done     chan struct{}
}

// NewTailSource starts tailing path. A missing file is waited for when
// following.
func NewTailSource(ctx context.Context, path string, conf TailConfig) (*TailSource, error) {
	bufferSize := conf.BufferSize
	if bufferSize <= 0 {
		bufferSize = DefaultTailBuffer
	}

	cfg := tail.Config{
		Follow:    conf.Follow,
		ReOpen:    conf.Follow,
		MustExist: !conf.Follow,
		Poll:      conf.Poll,
		Logger:    tail.DiscardingLogger,
	}
	if conf.FromEnd {
		cfg.Location = &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd}
	}

	t, err := tail.TailFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("logsource: tail %s: %w", path, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &TailSource{
		path:   path,
		t:      t,
		ch:     make(chan model.IngestEnvelope, bufferSize),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.read(ctx)
	return s, nil
}

func (s *TailSource) read(ctx context.Context) {
	defer close(s.done)
	defer close(s.ch)

	name := s.Name()
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-s.t.Lines:
			if !ok {
				return
			}
			if line.Err != nil {
				log.Printf("logsource: error reading line from %s: %v", s.path, line.Err)
				continue
			}
			text := strings.TrimRight(strings.ToValidUTF8(line.Text, ""), "\r")
			if line.Num == 1 {
				text = strings.TrimPrefix(text, "\ufeff")
			}
			if strings.TrimSpace(text) == "" {
				continue
			}
			select {
			case s.ch <- model.IngestEnvelope{Source: name, Line: text}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *TailSource) Lines() <-chan model.IngestEnvelope { return s.ch }

// Stop ends the tail and waits for the reader to close Lines.
func (s *TailSource) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		if err := s.t.Stop(); err != nil {
			log.Printf("logsource: stop tail %s: %v", s.path, err)
		}
		<-s.done
		s.t.Cleanup()
	})
}

func (s *TailSource) Name() string { return "tail:" + s.path }
