package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tinytelemetry/sift/internal/batch"
	"github.com/tinytelemetry/sift/internal/httpserver"
	"github.com/tinytelemetry/sift/internal/ingest"
	"github.com/tinytelemetry/sift/internal/logsource"
	"github.com/tinytelemetry/sift/internal/metrics"
	"github.com/tinytelemetry/sift/internal/output"
	"golang.org/x/sync/errgroup"
)

var errNoInput = errors.New("no input: pass files or folders, pipe stdin, or enable -follow, -serve or tcp-enabled")

type runMode int

const (
	modeNone runMode = iota
	modeBatch
	modeStream
	modeServe
)

func (m runMode) String() string {
	switch m {
	case modeBatch:
		return "batch"
	case modeStream:
		return "stream"
	case modeServe:
		return "serve"
	default:
		return "none"
	}
}

// selectMode picks how inputs are consumed. Streaming wins whenever a
// long-lived source is configured; plain paths are read once in parallel.
// With a TCP listener, paths given without -follow are streamed once
// alongside it.
func selectMode(cfg appConfig, args []string, stdinPiped bool) runMode {
	switch {
	case cfg.Follow && len(args) > 0:
		return modeStream
	case cfg.TCPEnabled:
		return modeStream
	case len(args) > 0:
		return modeBatch
	case stdinPiped:
		return modeStream
	case cfg.APIEnabled:
		return modeServe
	default:
		return modeNone
	}
}

// pipeline holds the components shared by every run mode.
type pipeline struct {
	cfg       appConfig
	driver    *batch.Driver
	registry  *prometheus.Registry
	collector *metrics.Collector
}

func newPipeline(cfg appConfig) *pipeline {
	reg := prometheus.NewRegistry()
	coll := metrics.NewCollector()
	coll.Register(reg)

	return &pipeline{
		cfg: cfg,
		driver: batch.NewDriver(batch.Config{
			Workers:    cfg.Workers,
			CSVMode:    cfg.csvMode,
			Extensions: cfg.Extensions,
			Extractor:  ingest.NewExtractor(cfg.extractOps...),
		}),
		registry:  reg,
		collector: coll,
	}
}

// run executes one sift invocation.
func run(cfg appConfig, args []string) error {
	cleanupLogger := configureRuntimeLogger(cfg.LogFile)
	defer cleanupLogger()

	mode := selectMode(cfg, args, logsource.StdinIsPiped())
	if mode == modeNone {
		return errNoInput
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := newPipeline(cfg)

	if cfg.APIEnabled {
		apiServer := httpserver.NewServer(cfg.APIAddr, httpserver.Config{
			Driver:        p.driver,
			Collector:     p.collector,
			Gatherer:      p.registry,
			MaxUploadSize: cfg.MaxUploadSize,
		})
		if err := apiServer.Start(); err != nil {
			return fmt.Errorf("failed to start API server: %w", err)
		}
		defer apiServer.Stop()
		log.Printf("httpserver: listening on %s", apiServer.Addr())
	}

	if mode == modeServe {
		if !cfg.Quiet {
			printStartupBanner(os.Stderr, cfg, nil, "")
		}
		<-ctx.Done()
		return nil
	}

	out, closeOut, err := openOutput(cfg.Output)
	if err != nil {
		return err
	}
	defer closeOut()

	w, err := output.New(cfg.Format, out, cfg.schema)
	if err != nil {
		return err
	}

	var summary runSummary
	switch mode {
	case modeBatch:
		summary, err = p.runBatch(ctx, args, w)
	case modeStream:
		summary, err = p.runStream(ctx, args, w)
	}
	if closeErr := w.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("closing output: %w", closeErr)
	}
	if err != nil {
		return err
	}

	if !cfg.Quiet {
		printRunSummary(os.Stderr, summary)
	}
	if summary.Files > 0 && summary.FailedFiles == summary.Files {
		return fmt.Errorf("no readable input among %d file(s)", summary.Files)
	}
	return nil
}

// runBatch reads every path once, extracts in parallel and writes records
// in input order.
func (p *pipeline) runBatch(ctx context.Context, paths []string, w output.Writer) (runSummary, error) {
	start := time.Now()
	summary := runSummary{Mode: modeBatch, Format: p.cfg.Format, Schema: p.cfg.schema.Name, Output: p.cfg.Output}

	records, results, err := p.driver.RunFiles(ctx, paths)
	if err != nil {
		return summary, err
	}

	sink := p.collector.Sink("file", nil)
	for i := range records {
		p.collector.ObserveLine("file")
		sink.Add(&records[i])
	}

	for _, res := range results {
		summary.Files++
		if res.Err != nil {
			summary.FailedFiles++
		}
	}
	if err := output.WriteAll(w, records); err != nil {
		return summary, fmt.Errorf("writing records: %w", err)
	}

	summary.Records = int64(len(records))
	summary.Elapsed = time.Since(start)
	return summary, nil
}

// runStream merges the configured live sources and writes each record as
// it is extracted, until every source closes or the context is cancelled.
func (p *pipeline) runStream(ctx context.Context, args []string, w output.Writer) (runSummary, error) {
	start := time.Now()
	summary := runSummary{Mode: modeStream, Format: p.cfg.Format, Schema: p.cfg.schema.Name, Output: p.cfg.Output}

	inputs, err := p.inputConfig(args, logsource.StdinIsPiped())
	if err != nil {
		return summary, err
	}
	plugins := buildInputPlugins(inputs)

	sources := make([]NamedLogSource, 0, len(plugins))
	for _, plugin := range plugins {
		if !plugin.Enabled() {
			continue
		}
		src, err := plugin.Build(ctx)
		if err != nil {
			log.Printf("Error initializing input plugin %q: %v", plugin.Name(), err)
			continue
		}
		sources = append(sources, src)
	}

	mux := NewSourceMultiplexer(ctx, sources, p.cfg.MuxBufferSize)
	if !mux.HasSources() {
		return summary, errors.New("no input source could be started")
	}
	mux.Start()
	defer mux.Stop()

	sink := output.NewSink(w)
	processor, err := ingest.NewEnvelopeProcessor(p.cfg.Processor, sink, "", p.cfg.extractOps...)
	if err != nil {
		return summary, err
	}

	if !p.cfg.Quiet {
		printStartupBanner(os.Stderr, p.cfg, mux.SourceNames(), processor.Name())
	}

	records, err := pump(ctx, mux, processor, p.collector)
	if err != nil {
		return summary, err
	}

	summary.Records = records
	summary.Sources = mux.Forwarded()
	summary.WriteFailures = sink.Failures()
	summary.Elapsed = time.Since(start)
	return summary, nil
}

// inputConfig resolves path arguments for streaming. With -follow they are
// tailed; otherwise they are read once through the batch readers. Missing
// paths are kept so their source reports the failure.
func (p *pipeline) inputConfig(args []string, stdinPiped bool) (InputPluginConfig, error) {
	conf := InputPluginConfig{
		TCPEnabled: p.cfg.TCPEnabled,
		TCPAddr:    p.cfg.TCPAddr,
		TailPoll:   p.cfg.TailPoll,
		StdinPiped: stdinPiped,
	}
	if len(args) == 0 {
		return conf, nil
	}

	paths, err := followPaths(args, p.cfg.Extensions)
	if err != nil {
		return conf, err
	}
	if p.cfg.Follow {
		conf.FollowPaths = paths
		return conf, nil
	}

	mode := p.driver.CSVMode()
	conf.ReadPaths = paths
	conf.ReadFile = func(path string) ([]string, error) {
		return batch.ReadFile(path, mode)
	}
	return conf, nil
}

// pump drains the multiplexer through the processor. It returns once the
// multiplexer closes; cancelling ctx stops the sources first.
func pump(ctx context.Context, mux *SourceMultiplexer, processor ingest.EnvelopeProcessor, coll *metrics.Collector) (int64, error) {
	var records int64
	done := make(chan struct{})

	// Use errgroup for concurrent goroutine lifecycle management.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(done)
		for env := range mux.Lines() {
			coll.ObserveLine(env.Source)
			res := processor.ProcessEnvelope(env)
			if res == nil {
				continue
			}
			coll.ObserveRecord(res.Source, res.Record)
			records++
		}
		return nil
	})

	g.Go(func() error {
		select {
		case <-gctx.Done():
			mux.Stop()
		case <-done:
		}
		return nil
	})

	err := g.Wait()
	return records, err
}

// openOutput returns stdout for "" or "-", otherwise creates the file.
func openOutput(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output: %w", err)
	}
	return f, func() {
		if err := f.Close(); err != nil {
			log.Printf("output: close %s: %v", path, err)
		}
	}, nil
}

// configureRuntimeLogger sends operational logs to stderr, or appends them
// to path when set. Records own stdout.
func configureRuntimeLogger(path string) func() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.SetOutput(os.Stderr)
	if path == "" {
		return func() {}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Printf("logger: %v, using stderr", err)
		return func() {}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("logger: %v, using stderr", err)
		return func() {}
	}

	log.SetOutput(f)
	return func() {
		log.SetOutput(os.Stderr)
		_ = f.Close()
	}
}
