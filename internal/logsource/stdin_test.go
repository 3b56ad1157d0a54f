package logsource

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"
)

func TestStdinSourceStopClosesLines(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer func() { _ = w.Close() }()

	src := newStdinSourceWithReader(context.Background(), r)
	src.Stop()

	select {
	case _, ok := <-src.Lines():
		if ok {
			t.Fatal("expected lines channel to be closed after Stop")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for lines channel to close")
	}
}

func TestStdinSourceStopIsIdempotent(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer func() { _ = w.Close() }()

	src := newStdinSourceWithReader(context.Background(), r)
	src.Stop()
	src.Stop()
}

func TestStdinSourceSkipsBlankLinesAndTagsSource(t *testing.T) {
	t.Parallel()

	in := strings.NewReader("\ufefffirst\r\n\n  \t\nsecond\n")
	src := newStdinSourceWithReader(context.Background(), in, StdinConfig{BufferSize: 4})

	var got []string
	for env := range src.Lines() {
		if env.Source != "stdin" {
			t.Errorf("source = %q, want %q", env.Source, "stdin")
		}
		got = append(got, env.Line)
	}

	want := []string{"first", "second"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("lines = %q, want %q", got, want)
	}
}
