package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Input.Delimiter != ";" || cfg.Logging.Format != "text" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Redis.Enabled || cfg.Postgres.Enabled || cfg.Kafka.Enabled {
		t.Fatalf("optional backends should default to disabled")
	}
	if cfg.Match.ExcludeSelf {
		t.Fatalf("self matches should be kept by default")
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
input:
  delimiter: ","
  encoding: windows-1252
match:
  excludeSelf: true
redis:
  enabled: true
  cacheTTL: 30s
kafka:
  topics:
    analysisCompleted: runs
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9000 || cfg.Input.Delimiter != "," || cfg.Input.Encoding != "windows-1252" {
		t.Errorf("yaml values not applied: %+v", cfg)
	}
	if !cfg.Match.ExcludeSelf || !cfg.Redis.Enabled || cfg.Redis.CacheTTL != 30*time.Second {
		t.Errorf("yaml values not applied: %+v", cfg)
	}
	if cfg.Kafka.Topics.AnalysisCompleted != "runs" || cfg.Kafka.Topics.CorrectionsUpdated != "corrections.updated" {
		t.Errorf("topic merge wrong: %+v", cfg.Kafka.Topics)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("untouched default lost")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FC_SERVER_PORT", "7070")
	t.Setenv("FC_MATCH_EXCLUDE_SELF", "true")
	t.Setenv("FC_KAFKA_BROKERS", "a:1,b:2")
	t.Setenv("FC_CORRECTIONS_PATH", "/tmp/lib.txt")
	t.Setenv("FC_METRICS_PORT", "not-a-number")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 7070 || !cfg.Match.ExcludeSelf || cfg.Corrections.Path != "/tmp/lib.txt" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "b:2" {
		t.Errorf("brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.Metrics.Port != 9090 {
		t.Errorf("invalid int override should be ignored, got %d", cfg.Metrics.Port)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("expected error for missing file")
	}
	if _, err := Load(writeConfig(t, "server: [")); err == nil {
		t.Errorf("expected parse error")
	}
	_, err := Load(writeConfig(t, "input:\n  delimiter: \";;\"\n"))
	if err == nil || !strings.Contains(err.Error(), "delimiter") {
		t.Errorf("expected delimiter validation error, got %v", err)
	}
	_, err = Load(writeConfig(t, "logging:\n  format: xml\n"))
	if err == nil || !strings.Contains(err.Error(), "logging.format") {
		t.Errorf("expected format validation error, got %v", err)
	}
}

func TestDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	want := "host=db port=5433 user=u password=p dbname=d sslmode=disable"
	if p.DSN() != want {
		t.Fatalf("DSN = %s", p.DSN())
	}
}
