package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/tinytelemetry/sift/internal/batch"
	"github.com/tinytelemetry/sift/internal/logsource"
	"github.com/tinytelemetry/sift/internal/tcpserver"
)

// NamedLogSource aliases the shared source abstraction to keep app-layer APIs explicit.
type NamedLogSource = logsource.LogSource

// InputSourcePlugin is a small plugin primitive for wiring log inputs.
type InputSourcePlugin interface {
	Name() string
	Enabled() bool
	Build(ctx context.Context) (NamedLogSource, error)
}

// InputPluginConfig defines runtime input selection.
type InputPluginConfig struct {
	TCPEnabled  bool
	TCPAddr     string
	FollowPaths []string
	TailPoll    bool
	// ReadPaths are read once alongside the live sources.
	ReadPaths []string
	ReadFile  logsource.FileReader
	// StdinPiped reports whether stdin carries input. Stdin is only read
	// when no files are given.
	StdinPiped bool
}

func buildInputPlugins(cfg InputPluginConfig) []InputSourcePlugin {
	plugins := make([]InputSourcePlugin, 0, len(cfg.FollowPaths)+len(cfg.ReadPaths)+2)
	plugins = append(plugins, tcpInputPlugin{
		addr:    cfg.TCPAddr,
		enabled: cfg.TCPEnabled,
	})
	for _, path := range cfg.FollowPaths {
		plugins = append(plugins, tailInputPlugin{path: path, poll: cfg.TailPoll})
	}
	for _, path := range cfg.ReadPaths {
		plugins = append(plugins, fileInputPlugin{path: path, read: cfg.ReadFile})
	}
	plugins = append(plugins, stdinInputPlugin{
		enabled: cfg.StdinPiped && len(cfg.FollowPaths) == 0 && len(cfg.ReadPaths) == 0,
	})
	return plugins
}

// followPaths expands folders into their matching files. Paths that do not
// exist yet are kept: a tail waits for them and a one-shot read reports
// them.
func followPaths(roots []string, exts []string) ([]string, error) {
	var paths []string
	for _, root := range roots {
		if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
			paths = append(paths, root)
			continue
		}
		files, err := batch.Walk(root, exts)
		if err != nil {
			return nil, err
		}
		paths = append(paths, files...)
	}
	return paths, nil
}

type tcpInputPlugin struct {
	addr    string
	enabled bool
}

func (p tcpInputPlugin) Name() string { return "tcp" }

func (p tcpInputPlugin) Enabled() bool { return p.enabled }

func (p tcpInputPlugin) Build(_ context.Context) (NamedLogSource, error) {
	server := tcpserver.NewServer(p.addr)
	if err := server.Start(); err != nil {
		return nil, fmt.Errorf("start tcp server: %w", err)
	}
	return logsource.NewTCPSource(server), nil
}

type tailInputPlugin struct {
	path string
	poll bool
}

func (p tailInputPlugin) Name() string { return "tail:" + p.path }

func (p tailInputPlugin) Enabled() bool { return p.path != "" }

func (p tailInputPlugin) Build(ctx context.Context) (NamedLogSource, error) {
	return logsource.NewTailSource(ctx, p.path, logsource.TailConfig{
		Follow: true,
		Poll:   p.poll,
	})
}

type fileInputPlugin struct {
	path string
	read logsource.FileReader
}

func (p fileInputPlugin) Name() string { return "file:" + p.path }

func (p fileInputPlugin) Enabled() bool { return p.path != "" && p.read != nil }

func (p fileInputPlugin) Build(ctx context.Context) (NamedLogSource, error) {
	return logsource.NewFileSource(ctx, p.path, p.read)
}

type stdinInputPlugin struct {
	enabled bool
}

func (p stdinInputPlugin) Name() string { return "stdin" }

func (p stdinInputPlugin) Enabled() bool { return p.enabled }

func (p stdinInputPlugin) Build(ctx context.Context) (NamedLogSource, error) {
	return logsource.NewStdinSource(ctx), nil
}
