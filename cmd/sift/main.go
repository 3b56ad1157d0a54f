package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"github.com/tinytelemetry/sift/internal/batch"
	"github.com/tinytelemetry/sift/internal/ingest"
	"github.com/tinytelemetry/sift/internal/model"
	"github.com/tinytelemetry/sift/internal/output"
	"github.com/tinytelemetry/sift/internal/timestamp"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

// flagKeys maps command-line flags onto config keys. A flag only overrides
// the config file and environment when it is set explicitly.
var flagKeys = map[string]string{
	"o":       "output",
	"format":  "format",
	"schema":  "schema",
	"follow":  "follow",
	"serve":   "api-enabled",
	"workers": "workers",
}

func main() {
	var configPath string
	var showVersion bool

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/sift/config.yml)")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.String("o", "", "output file (default stdout)")
	flag.String("format", defaultFormat, "output format: csv, jsonl or yaml")
	flag.String("schema", defaultSchema, "output columns: full or reduced")
	flag.Bool("follow", false, "keep reading the given files as they grow")
	flag.Bool("serve", false, "serve the HTTP parse API")
	flag.Int("workers", defaultWorkers, "parallel extraction workers")
	flag.Usage = usage
	flag.Parse()

	if showVersion {
		fmt.Printf("Sift - Security Log Field Extraction\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadConfig(configPath, flagOverrides(flag.CommandLine))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, flag.Args()); err != nil {
		if errors.Is(err, errNoInput) {
			flag.Usage()
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: sift [flags] [file or folder ...]\n\n")
	fmt.Fprintf(out, "Extracts timestamp, host, service, pid, ip, port, alert and reason\n")
	fmt.Fprintf(out, "from free-form security log lines. With no paths, reads piped stdin.\n\n")
	flag.PrintDefaults()
}

// flagOverrides returns the explicitly set flags as config key/value pairs.
func flagOverrides(fs *flag.FlagSet) map[string]any {
	overrides := make(map[string]any)
	fs.Visit(func(f *flag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		if getter, ok := f.Value.(flag.Getter); ok {
			overrides[key] = getter.Get()
			return
		}
		overrides[key] = f.Value.String()
	})
	return overrides
}

func loadConfig(configPath string, overrides map[string]any) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("SIFT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("output", "")
	v.SetDefault("format", defaultFormat)
	v.SetDefault("schema", defaultSchema)
	v.SetDefault("csv-input", defaultCSVInput)
	v.SetDefault("workers", defaultWorkers)
	v.SetDefault("processor", defaultProcessor)
	v.SetDefault("single-token-reason", defaultSingleTokenReason)
	v.SetDefault("syslog-year", 0)
	v.SetDefault("extensions", model.DefaultExtensions)
	v.SetDefault("follow", false)
	v.SetDefault("tail-poll", false)
	v.SetDefault("host", defaultBindHost)
	v.SetDefault("tcp-enabled", false)
	v.SetDefault("tcp-port", defaultTCPPort)
	v.SetDefault("api-enabled", false)
	v.SetDefault("api-port", defaultAPIPort)
	v.SetDefault("max-upload-size", defaultMaxUploadSize)
	v.SetDefault("mux-buffer-size", defaultMuxBufferSize)
	v.SetDefault("log-file", "")
	v.SetDefault("quiet", false)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		defaultConfigPath := filepath.Join(home, ".config", "sift", "config.yml")
		v.SetConfigFile(defaultConfigPath)
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	} else {
		cfg.ConfigPath = v.ConfigFileUsed()
	}

	for key, value := range overrides {
		v.Set(key, value)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	if err := validateConfig(&cfg); err != nil {
		return cfg, err
	}

	// Expand ~ in paths
	if strings.HasPrefix(cfg.Output, "~/") {
		cfg.Output = filepath.Join(home, cfg.Output[2:])
	}
	if strings.HasPrefix(cfg.LogFile, "~/") {
		cfg.LogFile = filepath.Join(home, cfg.LogFile[2:])
	}

	if cfg.Host == "" {
		cfg.Host = defaultBindHost
	}
	if cfg.TCPAddr == "" {
		cfg.TCPAddr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.TCPPort))
	}
	if cfg.APIAddr == "" {
		cfg.APIAddr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.APIPort))
	}

	return cfg, nil
}

// validateConfig rejects out-of-range values and resolves the typed
// settings the pipeline needs.
func validateConfig(cfg *appConfig) error {
	if cfg.TCPPort <= 0 || cfg.TCPPort > 65535 {
		return fmt.Errorf("invalid tcp-port: %d", cfg.TCPPort)
	}
	if cfg.APIPort <= 0 || cfg.APIPort > 65535 {
		return fmt.Errorf("invalid api-port: %d", cfg.APIPort)
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("invalid workers: %d", cfg.Workers)
	}
	if cfg.SyslogYear < -1 || cfg.SyslogYear > 9999 {
		return fmt.Errorf("invalid syslog-year: %d (want 0, -1 or a year)", cfg.SyslogYear)
	}

	schema, err := model.SchemaByName(cfg.Schema)
	if err != nil {
		return err
	}
	cfg.schema = schema

	if _, err := output.New(cfg.Format, io.Discard, schema); err != nil {
		return err
	}

	csvMode, err := batch.ParseCSVMode(cfg.CSVInput)
	if err != nil {
		return err
	}
	cfg.csvMode = csvMode

	tokenMode, err := ingest.ParseSingleTokenReason(cfg.SingleTokenReason)
	if err != nil {
		return err
	}
	cfg.tokenMode = tokenMode

	switch strings.ToLower(strings.TrimSpace(cfg.Processor)) {
	case "", ingest.ProcessorModeExtract, ingest.ProcessorModePassthrough:
	default:
		return fmt.Errorf("invalid processor: %q (want extract or passthrough)", cfg.Processor)
	}

	cfg.extractOps = []ingest.ExtractorOption{
		ingest.WithTimestampParser(timestamp.NewParser(timestamp.YearPolicy(cfg.SyslogYear))),
		ingest.WithSingleTokenReason(tokenMode),
	}
	return nil
}
