package batch

import (
	"context"
	"log"
	"strings"

	"github.com/tinytelemetry/sift/internal/ingest"
	"github.com/tinytelemetry/sift/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultChunkSize is the number of lines one worker extracts per task.
const DefaultChunkSize = 256

// Config holds tunable parameters for the batch driver.
type Config struct {
	Workers    int
	ChunkSize  int
	CSVMode    CSVMode
	Extensions []string
	Extractor  *ingest.Extractor
}

// Driver feeds lines to the field extractor and collects records in input
// order.
type Driver struct {
	extractor  *ingest.Extractor
	workers    int
	chunkSize  int
	csvMode    CSVMode
	extensions []string
}

// FileResult reports the outcome of one input file.
type FileResult struct {
	Path    string
	Records int
	Err     error
}

// NewDriver creates a driver. Zero values fall back to package defaults.
func NewDriver(cfg Config) *Driver {
	d := &Driver{
		extractor:  cfg.Extractor,
		workers:    cfg.Workers,
		chunkSize:  cfg.ChunkSize,
		csvMode:    cfg.CSVMode,
		extensions: cfg.Extensions,
	}
	if d.extractor == nil {
		d.extractor = ingest.NewExtractor()
	}
	if d.workers <= 0 {
		d.workers = model.DefaultWorkers
	}
	if d.chunkSize <= 0 {
		d.chunkSize = DefaultChunkSize
	}
	if d.extensions == nil {
		d.extensions = model.DefaultExtensions
	}
	return d
}

// CSVMode returns the mode used for CSV inputs.
func (d *Driver) CSVMode() CSVMode { return d.csvMode }

// Run extracts every non-blank line. The returned slice has one record per
// surviving line, in input order. The only error is context cancellation.
func (d *Driver) Run(ctx context.Context, lines []string) ([]model.LogRecord, error) {
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}

	out := make([]model.LogRecord, len(kept))
	if len(kept) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for start := 0; start < len(kept); start += d.chunkSize {
		end := min(start+d.chunkSize, len(kept))
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				out[i] = d.extractor.Extract(kept[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// RunFiles expands roots (files or folders), reads each file and extracts
// its lines. Unreadable files are logged and skipped; their FileResult
// carries the error. Records are concatenated in file order.
func (d *Driver) RunFiles(ctx context.Context, roots []string) ([]model.LogRecord, []FileResult, error) {
	var records []model.LogRecord
	var results []FileResult

	for _, root := range roots {
		files, err := Walk(root, d.extensions)
		if err != nil {
			log.Printf("batch: skipping %s: %v", root, err)
			results = append(results, FileResult{Path: root, Err: err})
			continue
		}
		for _, path := range files {
			if err := ctx.Err(); err != nil {
				return records, results, err
			}
			lines, err := ReadFile(path, d.csvMode)
			if err != nil {
				log.Printf("batch: skipping %s: %v", path, err)
				results = append(results, FileResult{Path: path, Err: err})
				continue
			}
			recs, err := d.Run(ctx, lines)
			if err != nil {
				return records, results, err
			}
			records = append(records, recs...)
			results = append(results, FileResult{Path: path, Records: len(recs)})
		}
	}
	return records, results, nil
}
