package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tinytelemetry/sift/internal/batch"
	"github.com/tinytelemetry/sift/internal/metrics"
	"github.com/tinytelemetry/sift/internal/model"
	"github.com/tinytelemetry/sift/internal/output"
)

const (
	// DefaultAddr is used when no listen address is configured.
	DefaultAddr = "127.0.0.1:3000"

	// DefaultMaxUploadSize bounds request bodies and uploaded files.
	DefaultMaxUploadSize = 64 << 20

	formatJSON = "json"
	sourceName = "api"
)

// Config wires the server to the extraction pipeline.
type Config struct {
	Driver        *batch.Driver
	Collector     *metrics.Collector
	Gatherer      prometheus.Gatherer
	MaxUploadSize int64
}

// Server exposes log parsing over HTTP.
type Server struct {
	addr      string
	driver    *batch.Driver
	collector *metrics.Collector
	gatherer  prometheus.Gatherer
	maxUpload int64
	server    *http.Server
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
	parsed    atomic.Int64
}

// NewServer creates a new HTTP API server.
func NewServer(addr string, cfg Config) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	if cfg.Driver == nil {
		cfg.Driver = batch.NewDriver(batch.Config{})
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = DefaultMaxUploadSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:      addr,
		driver:    cfg.Driver,
		collector: cfg.Collector,
		gatherer:  cfg.Gatherer,
		maxUpload: cfg.MaxUploadSize,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/health", s.handleHealth)
	r.POST("/api/parse", s.handleParse)
	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}
	return r
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.routes(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.addr = listener.Addr().String()
	s.startTime = time.Now()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("httpserver: serve: %v", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Addr returns the listen address, resolved once started.
func (s *Server) Addr() string { return s.addr }

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"uptime":         time.Since(s.startTime).String(),
		"records_parsed": s.parsed.Load(),
	})
}

// handleParse extracts records from a raw text body or a multipart "file"
// upload. format selects json (default) or any output format; schema
// selects the column projection.
func (s *Server) handleParse(c *gin.Context) {
	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", formatJSON)))
	schema, err := model.SchemaByName(c.Query("schema"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if format != formatJSON {
		// Validate before doing any work.
		if _, err := output.New(format, nopWriter{}, schema); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)
	lines, err := s.readLines(c)
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	records, err := s.driver.Run(c.Request.Context(), lines)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	s.observe(len(lines), records)

	if format == formatJSON {
		rows := make([]map[string]string, len(records))
		for i := range records {
			row := make(map[string]string, len(schema.Columns))
			for _, col := range schema.Columns {
				row[col] = records[i].Field(col)
			}
			rows[i] = row
		}
		c.JSON(http.StatusOK, gin.H{
			"columns": schema.Columns,
			"records": rows,
			"count":   len(records),
		})
		return
	}

	c.Header("Content-Type", output.ContentType(format))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "sift."+format))
	c.Status(http.StatusOK)

	w, err := output.New(format, c.Writer, schema)
	if err != nil {
		log.Printf("httpserver: %v", err)
		return
	}
	if err := output.WriteAll(w, records); err != nil {
		log.Printf("httpserver: write response: %v", err)
		return
	}
	if err := w.Close(); err != nil {
		log.Printf("httpserver: close response: %v", err)
	}
}

func (s *Server) readLines(c *gin.Context) ([]string, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return batch.ReadText(c.Request.Body)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("missing file field: %w", err)
	}
	return s.readUpload(fh)
}

func (s *Server) readUpload(fh *multipart.FileHeader) ([]string, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(fh.Filename)) {
	case ".csv":
		return batch.ReadCSV(f, s.driver.CSVMode())
	case ".evtx":
		return batch.ReadEVTXFrom(f)
	}
	return batch.ReadText(f)
}

func (s *Server) observe(lines int, records []model.LogRecord) {
	s.parsed.Add(int64(len(records)))
	if s.collector == nil {
		return
	}
	for i := 0; i < lines; i++ {
		s.collector.ObserveLine(sourceName)
	}
	sink := s.collector.Sink(sourceName, nil)
	for i := range records {
		sink.Add(&records[i])
	}
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
