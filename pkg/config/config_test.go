package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func TestBuildDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Build("", nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if cfg.Store != "csv" || cfg.DataDir != "." || cfg.Kafka.Topic != "ledger_merged" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestBuildPrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	file := filepath.Join(dir, "gastos.yaml")
	content := "store: sqlite\ndata_dir: /from/file\nlog_level: debug\ngcs:\n  prefix: p\n"
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GASTOS_DATA_DIR", "/from/env")
	t.Setenv("GASTOS_KAFKA_BROKERS", "a:9092,b:9092")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("store", "csv", "")
	flags.String("log-level", "info", "")
	if err := flags.Parse([]string{"--store", "memory"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Build(file, flags)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if cfg.Store != "memory" {
		t.Errorf("flag must win, store = %q", cfg.Store)
	}
	if cfg.DataDir != "/from/env" {
		t.Errorf("env must beat the file, data_dir = %q", cfg.DataDir)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("an unset flag must not override the file, log_level = %q", cfg.LogLevel)
	}
	if cfg.GCS.Prefix != "p" {
		t.Errorf("gcs.prefix = %q", cfg.GCS.Prefix)
	}
	if len(cfg.Kafka.Brokers) != 2 {
		t.Errorf("brokers = %v", cfg.Kafka.Brokers)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"csv", Config{Store: "csv"}, false},
		{"postgres without dsn", Config{Store: "postgres"}, true},
		{"gcs without bucket", Config{Store: "gcs"}, true},
		{"gcs", Config{Store: "gcs", GCS: GCSConfig{Bucket: "b"}}, false},
		{"unknown", Config{Store: "s3"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuildMissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())
	if _, err := Build("/does/not/exist.yaml", nil); err == nil {
		t.Error("expected error for a missing explicit config file")
	}
}
