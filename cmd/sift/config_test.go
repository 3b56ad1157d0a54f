package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tinytelemetry/sift/internal/batch"
	"github.com/tinytelemetry/sift/internal/ingest"
)

func TestLoadConfig_Defaults(t *testing.T) {
	resetSiftEnv(t)

	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.yml"), nil)
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}

	if cfg.Format != "csv" {
		t.Errorf("Format = %q, want %q", cfg.Format, "csv")
	}
	if cfg.schema.Name != "full" {
		t.Errorf("schema = %q, want %q", cfg.schema.Name, "full")
	}
	if cfg.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Workers)
	}
	if cfg.csvMode != batch.CSVCells {
		t.Errorf("csvMode = %v, want cells", cfg.csvMode)
	}
	if cfg.tokenMode != ingest.ReasonEmpty {
		t.Errorf("tokenMode = %v, want empty", cfg.tokenMode)
	}
	if cfg.TCPEnabled || cfg.APIEnabled || cfg.Follow {
		t.Errorf("live inputs must be off by default: %+v", cfg)
	}
	if strings.Join(cfg.Extensions, ",") != ".txt,.log,.csv" {
		t.Errorf("Extensions = %v", cfg.Extensions)
	}
	if cfg.ConfigPath != "" {
		t.Errorf("ConfigPath = %q, want empty for a missing file", cfg.ConfigPath)
	}
	if len(cfg.extractOps) != 2 {
		t.Errorf("extractOps = %d, want 2", len(cfg.extractOps))
	}
}

func TestLoadConfig_AddressResolution(t *testing.T) {
	resetSiftEnv(t)

	tests := []struct {
		name        string
		configYAML  string
		wantHost    string
		wantTCPAddr string
		wantAPIAddr string
	}{
		{
			name: "defaults to localhost host",
			configYAML: `
tcp-port: 4100
api-port: 3100
`,
			wantHost:    "127.0.0.1",
			wantTCPAddr: "127.0.0.1:4100",
			wantAPIAddr: "127.0.0.1:3100",
		},
		{
			name: "host applies to derived tcp and api addresses",
			configYAML: `
host: 0.0.0.0
tcp-port: 4200
api-port: 3200
`,
			wantHost:    "0.0.0.0",
			wantTCPAddr: "0.0.0.0:4200",
			wantAPIAddr: "0.0.0.0:3200",
		},
		{
			name: "explicit addresses override host and ports",
			configYAML: `
host: 0.0.0.0
tcp-addr: 10.0.0.5:9999
api-addr: 10.0.0.5:8888
`,
			wantHost:    "0.0.0.0",
			wantTCPAddr: "10.0.0.5:9999",
			wantAPIAddr: "10.0.0.5:8888",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := loadConfig(writeTempConfig(t, tt.configYAML), nil)
			if err != nil {
				t.Fatalf("loadConfig returned error: %v", err)
			}
			if cfg.Host != tt.wantHost {
				t.Fatalf("Host = %q, want %q", cfg.Host, tt.wantHost)
			}
			if cfg.TCPAddr != tt.wantTCPAddr {
				t.Fatalf("TCPAddr = %q, want %q", cfg.TCPAddr, tt.wantTCPAddr)
			}
			if cfg.APIAddr != tt.wantAPIAddr {
				t.Fatalf("APIAddr = %q, want %q", cfg.APIAddr, tt.wantAPIAddr)
			}
		})
	}
}

func TestLoadConfig_Validation(t *testing.T) {
	resetSiftEnv(t)

	tests := []struct {
		name         string
		configYAML   string
		errSubstring string
	}{
		{"bad format", "format: parquet", "unknown format"},
		{"bad schema", "schema: wide", "unknown schema"},
		{"bad csv input", "csv-input: rows", "invalid csv-input"},
		{"bad token policy", "single-token-reason: both", "invalid single-token-reason"},
		{"bad year", "syslog-year: -5", "invalid syslog-year"},
		{"bad workers", "workers: 0", "invalid workers"},
		{"bad processor", "processor: otel", "invalid processor"},
		{"bad tcp port", "tcp-port: 70000", "invalid tcp-port"},
		{"bad api port", "api-port: 0", "invalid api-port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(writeTempConfig(t, tt.configYAML), nil)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errSubstring) {
				t.Fatalf("error = %q, want substring %q", err.Error(), tt.errSubstring)
			}
		})
	}
}

func TestLoadConfig_Precedence(t *testing.T) {
	resetSiftEnv(t)

	path := writeTempConfig(t, `
format: yaml
schema: reduced
workers: 3
csv-input: message
single-token-reason: tail
`)

	t.Setenv("SIFT_WORKERS", "5")
	t.Setenv("SIFT_EXTENSIONS", ".log,.out")

	cfg, err := loadConfig(path, map[string]any{"format": "jsonl", "follow": true})
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}

	if cfg.Format != "jsonl" {
		t.Errorf("Format = %q, want flag value jsonl", cfg.Format)
	}
	if !cfg.Follow {
		t.Error("Follow = false, want flag value true")
	}
	if cfg.Workers != 5 {
		t.Errorf("Workers = %d, want env value 5", cfg.Workers)
	}
	if cfg.schema.Name != "reduced" {
		t.Errorf("schema = %q, want file value reduced", cfg.schema.Name)
	}
	if cfg.csvMode != batch.CSVMessage {
		t.Errorf("csvMode = %v, want message", cfg.csvMode)
	}
	if cfg.tokenMode != ingest.ReasonTail {
		t.Errorf("tokenMode = %v, want tail", cfg.tokenMode)
	}
	if strings.Join(cfg.Extensions, ",") != ".log,.out" {
		t.Errorf("Extensions = %v, want env value", cfg.Extensions)
	}
	if cfg.ConfigPath != path {
		t.Errorf("ConfigPath = %q, want %q", cfg.ConfigPath, path)
	}
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	resetSiftEnv(t)

	if _, err := loadConfig(writeTempConfig(t, "format: [csv"), nil); err == nil {
		t.Fatal("expected parse error for malformed yaml")
	}
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(content)+"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func resetSiftEnv(t *testing.T) {
	t.Helper()

	original := make(map[string]string)
	existed := make(map[string]bool)

	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, "SIFT_") {
			continue
		}
		original[key] = value
		existed[key] = true
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
	}

	t.Cleanup(func() {
		for key := range existed {
			if err := os.Unsetenv(key); err != nil {
				t.Fatalf("cleanup unset %s: %v", key, err)
			}
		}
		for key, value := range original {
			if err := os.Setenv(key, value); err != nil {
				t.Fatalf("cleanup restore %s: %v", key, err)
			}
		}
	})
}
