package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.SampleRate != 16000 {
		t.Errorf("sample rate = %d", cfg.SampleRate)
	}
	if cfg.ChunkInterval() != time.Second {
		t.Errorf("chunk interval = %v", cfg.ChunkInterval())
	}
	if cfg.ReconnectBase() != 2*time.Second {
		t.Errorf("reconnect base = %v", cfg.ReconnectBase())
	}
	if cfg.ReconnectMaxAttempts != 5 {
		t.Errorf("reconnect max attempts = %d", cfg.ReconnectMaxAttempts)
	}
	// 16kHz mono s16le at 1s slices
	if cfg.ChunkBytes() != 32000 {
		t.Errorf("chunk bytes = %d, want 32000", cfg.ChunkBytes())
	}
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BackendURL != Default().BackendURL {
		t.Errorf("backend = %q", cfg.BackendURL)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
backend_url: https://recorder.example.mil
operator_id: op-7
chunk_interval_ms: 500
capture_command: [arecord, -f, S16_LE, -r, "16000", -c, "1", "-t", raw]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BackendURL != "https://recorder.example.mil" {
		t.Errorf("backend = %q", cfg.BackendURL)
	}
	if cfg.OperatorID != "op-7" {
		t.Errorf("operator = %q", cfg.OperatorID)
	}
	if cfg.ChunkIntervalMS != 500 {
		t.Errorf("chunk interval ms = %d", cfg.ChunkIntervalMS)
	}
	if len(cfg.CaptureCommand) == 0 || cfg.CaptureCommand[0] != "arecord" {
		t.Errorf("capture command = %v", cfg.CaptureCommand)
	}
	// Unset fields keep defaults.
	if cfg.ReconnectMaxAttempts != 5 {
		t.Errorf("reconnect max attempts = %d", cfg.ReconnectMaxAttempts)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OPSCRIBE_BACKEND_URL", "http://override:9999")
	t.Setenv("OPSCRIBE_RECONNECT_BASE_MS", "3000")
	t.Setenv("OPSCRIBE_CAPTURE_COMMAND", "sox -d -t raw -")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BackendURL != "http://override:9999" {
		t.Errorf("backend = %q", cfg.BackendURL)
	}
	if cfg.ReconnectBase() != 3*time.Second {
		t.Errorf("reconnect base = %v", cfg.ReconnectBase())
	}
	if len(cfg.CaptureCommand) != 5 || cfg.CaptureCommand[0] != "sox" {
		t.Errorf("capture command = %v", cfg.CaptureCommand)
	}
}

func TestEnvIntIgnoresGarbage(t *testing.T) {
	t.Setenv("OPSCRIBE_SAMPLE_RATE", "not-a-number")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SampleRate != 16000 {
		t.Errorf("sample rate = %d, want default", cfg.SampleRate)
	}
}
