package tcpserver

import (
	"net"
	"testing"
	"time"

	"github.com/tinytelemetry/sift/internal/model"
)

func TestNewServer_DefaultLocalhostAddress(t *testing.T) {
	t.Parallel()

	s := NewServer("")
	if got := s.Addr(); got != "127.0.0.1:4000" {
		t.Fatalf("Addr() = %q, want %q", got, "127.0.0.1:4000")
	}
}

func TestNewServer_UsesConfiguredAddressAndBuffers(t *testing.T) {
	t.Parallel()

	s := NewServer("0.0.0.0:5000", ServerConfig{
		LineChannelSize: 64,
		MaxLineSize:     2048,
	})

	if got := s.Addr(); got != "0.0.0.0:5000" {
		t.Fatalf("Addr() = %q, want %q", got, "0.0.0.0:5000")
	}
	if got := cap(s.lineChan); got != 64 {
		t.Fatalf("line channel cap = %d, want %d", got, 64)
	}
	if got := s.maxLineSize; got != 2048 {
		t.Fatalf("max line size = %d, want %d", got, 2048)
	}
}

func TestServer_ReceivesPlainLines(t *testing.T) {
	t.Parallel()

	s := NewServer("127.0.0.1:0", ServerConfig{LineChannelSize: 16})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = s.Stop() }()

	conn, err := net.Dial("tcp", s.Addr())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	payload := "Jan 12 08:32:15 web01 sshd[1234]: Failed password\r\n\n   \nsecond line\n"
	if _, err := conn.Write([]byte(payload)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	_ = conn.Close()

	want := []string{"Jan 12 08:32:15 web01 sshd[1234]: Failed password", "second line"}
	for i, line := range want {
		select {
		case env := <-s.Lines():
			if env.Source != SourceName {
				t.Errorf("envelope %d source = %q, want %q", i, env.Source, SourceName)
			}
			if env.Line != line {
				t.Errorf("envelope %d line = %q, want %q", i, env.Line, line)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for line %d", i)
		}
	}
}

func TestServer_StopClosesLinesAndIsIdempotent(t *testing.T) {
	t.Parallel()

	s := NewServer("127.0.0.1:0")
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// An idle client must not block shutdown.
	conn, err := net.Dial("tcp", s.Addr())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		_ = s.Stop()
		_ = s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on an idle connection")
	}

	var zero model.IngestEnvelope
	if env, ok := <-s.Lines(); ok {
		t.Fatalf("expected closed channel, got %+v", env)
	} else if env != zero {
		t.Fatalf("closed channel yielded %+v", env)
	}
}
