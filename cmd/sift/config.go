package main

import (
	"github.com/tinytelemetry/sift/internal/batch"
	"github.com/tinytelemetry/sift/internal/ingest"
	"github.com/tinytelemetry/sift/internal/model"
)

const (
	defaultBindHost          = "127.0.0.1"
	defaultTCPPort           = 4000
	defaultAPIPort           = 3000
	defaultMuxBufferSize     = DefaultMuxBuffer
	defaultWorkers           = model.DefaultWorkers
	defaultFormat            = model.DefaultFormat
	defaultSchema            = model.DefaultSchemaName
	defaultProcessor         = ingest.ProcessorModeExtract
	defaultSingleTokenReason = "empty"
	defaultMaxUploadSize     = 64 << 20
)

var defaultCSVInput = batch.CSVCells.String()

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	Output            string   `mapstructure:"output"`
	Format            string   `mapstructure:"format"`
	Schema            string   `mapstructure:"schema"`
	CSVInput          string   `mapstructure:"csv-input"`
	Workers           int      `mapstructure:"workers"`
	Processor         string   `mapstructure:"processor"`
	SingleTokenReason string   `mapstructure:"single-token-reason"`
	SyslogYear        int      `mapstructure:"syslog-year"`
	Extensions        []string `mapstructure:"extensions"`
	Follow            bool     `mapstructure:"follow"`
	TailPoll          bool     `mapstructure:"tail-poll"`
	Host              string   `mapstructure:"host"`
	TCPEnabled        bool     `mapstructure:"tcp-enabled"`
	TCPPort           int      `mapstructure:"tcp-port"`
	TCPAddr           string   `mapstructure:"tcp-addr"`
	APIEnabled        bool     `mapstructure:"api-enabled"`
	APIPort           int      `mapstructure:"api-port"`
	APIAddr           string   `mapstructure:"api-addr"`
	MaxUploadSize     int64    `mapstructure:"max-upload-size"`
	MuxBufferSize     int      `mapstructure:"mux-buffer-size"`
	LogFile           string   `mapstructure:"log-file"`
	Quiet             bool     `mapstructure:"quiet"`
	ConfigPath        string   `mapstructure:"-"` // not from config file

	// Resolved during validation.
	schema     model.Schema
	csvMode    batch.CSVMode
	tokenMode  ingest.SingleTokenReason
	extractOps []ingest.ExtractorOption
}
