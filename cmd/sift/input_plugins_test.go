package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tinytelemetry/sift/internal/batch"
)

func TestBuildInputPlugins_RegistersPrimitives(t *testing.T) {
	t.Parallel()

	plugins := buildInputPlugins(InputPluginConfig{
		TCPEnabled: true,
		TCPAddr:    "127.0.0.1:4000",
		StdinPiped: true,
	})

	if len(plugins) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(plugins))
	}
	if plugins[0].Name() != "tcp" {
		t.Fatalf("plugins[0] name = %q, want %q", plugins[0].Name(), "tcp")
	}
	if plugins[1].Name() != "stdin" {
		t.Fatalf("plugins[1] name = %q, want %q", plugins[1].Name(), "stdin")
	}
	if !plugins[0].Enabled() {
		t.Fatal("expected tcp plugin to be enabled when TCPEnabled=true")
	}
	if !plugins[1].Enabled() {
		t.Fatal("expected stdin plugin to be enabled when stdin is piped")
	}
}

func TestBuildInputPlugins_FollowDisablesStdin(t *testing.T) {
	t.Parallel()

	plugins := buildInputPlugins(InputPluginConfig{
		FollowPaths: []string{"/var/log/auth.log", "/var/log/syslog"},
		StdinPiped:  true,
	})

	if len(plugins) != 4 {
		t.Fatalf("expected 4 plugins, got %d", len(plugins))
	}
	if plugins[0].Enabled() {
		t.Fatal("expected tcp plugin to be disabled when TCPEnabled=false")
	}
	if got := plugins[1].Name(); got != "tail:/var/log/auth.log" {
		t.Fatalf("plugins[1] name = %q", got)
	}
	if !plugins[2].Enabled() {
		t.Fatal("expected tail plugin to be enabled")
	}
	if plugins[3].Enabled() {
		t.Fatal("expected stdin plugin to be disabled while following files")
	}
}

func TestTailInputPlugin_BuildReadsAppendedLines(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "auth.log")
	if err := os.WriteFile(path, []byte("first\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	src, err := tailInputPlugin{path: path, poll: true}.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer src.Stop()

	select {
	case env := <-src.Lines():
		if env.Line != "first" {
			t.Fatalf("line = %q, want %q", env.Line, "first")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for tailed line")
	}
}

func TestFollowPaths_ExpandsFoldersAndKeepsMissing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"b.log", "a.txt", "skip.bin"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	missing := filepath.Join(dir, "later.log")

	got, err := followPaths([]string{dir, missing}, []string{".log", ".txt"})
	if err != nil {
		t.Fatalf("followPaths: %v", err)
	}

	want := []string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.log"), missing}
	if len(got) != len(want) {
		t.Fatalf("paths = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFlagOverrides_OnlyExplicitFlags(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("sift", flag.ContinueOnError)
	fs.String("o", "", "")
	fs.String("format", "csv", "")
	fs.Bool("serve", false, "")
	fs.String("config", "", "")
	if err := fs.Parse([]string{"-format", "yaml", "-serve", "-config", "x.yml"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	got := flagOverrides(fs)
	if len(got) != 2 {
		t.Fatalf("overrides = %v, want format and api-enabled only", got)
	}
	if got["format"] != "yaml" {
		t.Errorf("format = %v, want yaml", got["format"])
	}
	if got["api-enabled"] != true {
		t.Errorf("api-enabled = %v, want true", got["api-enabled"])
	}
}

func TestBuildInputPlugins_ReadPathsDisableStdin(t *testing.T) {
	t.Parallel()

	read := func(string) ([]string, error) { return nil, nil }
	plugins := buildInputPlugins(InputPluginConfig{
		TCPEnabled: true,
		ReadPaths:  []string{"/var/log/auth.log"},
		ReadFile:   read,
		StdinPiped: true,
	})

	if len(plugins) != 3 {
		t.Fatalf("expected 3 plugins, got %d", len(plugins))
	}
	if got := plugins[1].Name(); got != "file:/var/log/auth.log" {
		t.Fatalf("plugins[1] name = %q", got)
	}
	if !plugins[1].Enabled() {
		t.Fatal("expected file plugin to be enabled")
	}
	if plugins[2].Enabled() {
		t.Fatal("expected stdin plugin to be disabled while reading files")
	}
}

func TestPipelineInputConfig_TCPWithUnfollowedPaths(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeLog(t, filepath.Join(dir, "a.log"), "sshd[1]: Failed password\n")
	writeLog(t, filepath.Join(dir, "b.csv"), "message\nkernel: panic\n")
	writeLog(t, filepath.Join(dir, "skip.bin"), "x\n")

	cfg := appConfig{
		TCPEnabled: true,
		TCPAddr:    "127.0.0.1:0",
		Extensions: []string{".log", ".csv"},
		csvMode:    batch.CSVMessage,
	}
	p := newPipeline(cfg)

	conf, err := p.inputConfig([]string{dir}, true)
	if err != nil {
		t.Fatalf("inputConfig: %v", err)
	}
	if len(conf.FollowPaths) != 0 {
		t.Fatalf("FollowPaths = %v, want none without -follow", conf.FollowPaths)
	}
	want := []string{filepath.Join(dir, "a.log"), filepath.Join(dir, "b.csv")}
	if len(conf.ReadPaths) != len(want) {
		t.Fatalf("ReadPaths = %v, want %v", conf.ReadPaths, want)
	}
	for i := range want {
		if conf.ReadPaths[i] != want[i] {
			t.Errorf("ReadPaths[%d] = %q, want %q", i, conf.ReadPaths[i], want[i])
		}
	}

	src, err := fileInputPlugin{path: want[0], read: conf.ReadFile}.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer src.Stop()

	var got []string
	for env := range src.Lines() {
		got = append(got, env.Line)
	}
	if len(got) != 1 || got[0] != "sshd[1]: Failed password" {
		t.Fatalf("lines = %q, want the single log line", got)
	}
}

func TestPipelineInputConfig_FollowTailsPaths(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeLog(t, filepath.Join(dir, "a.log"), "x\n")

	cfg := appConfig{Follow: true, Extensions: []string{".log"}}

	conf, err := newPipeline(cfg).inputConfig([]string{dir}, false)
	if err != nil {
		t.Fatalf("inputConfig: %v", err)
	}
	if len(conf.FollowPaths) != 1 || len(conf.ReadPaths) != 0 {
		t.Fatalf("follow = %v, read = %v, want one followed path", conf.FollowPaths, conf.ReadPaths)
	}
}
