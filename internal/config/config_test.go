package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "INTERVIEW_INACTIVITY_TIMEOUT", "INTERVIEW_MIN_SESSION_DURATION",
		"INTERVIEW_CARRYOVER_TURNS", "PIPELINE_STAGE_TIMEOUT", "STORAGE_DRIVER", "DATA_DIR",
		"CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "*" {
		t.Fatalf("unexpected cors origins: %v", cfg.Server.CORSOrigins)
	}
	if cfg.Interview.InactivityTimeout != 5*time.Minute || cfg.Interview.InactivityInterval != 30*time.Second {
		t.Fatalf("unexpected inactivity settings: %+v", cfg.Interview)
	}
	if cfg.Interview.MinSessionDuration != 10*time.Second {
		t.Fatalf("unexpected min duration: %s", cfg.Interview.MinSessionDuration)
	}
	if cfg.Interview.CarryoverTurns != 8 {
		t.Fatalf("unexpected carryover: %d", cfg.Interview.CarryoverTurns)
	}
	if cfg.Storage.Driver != "local" || cfg.Storage.DataDir != "data/sessions" {
		t.Fatalf("unexpected storage config: %+v", cfg.Storage)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("INTERVIEW_INACTIVITY_TIMEOUT", "90")
	t.Setenv("PIPELINE_STAGE_TIMEOUT", "2m")
	t.Setenv("INTERVIEW_CARRYOVER_TURNS", "-3")
	t.Setenv("STORAGE_DRIVER", "Memory")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, https://app.example.com,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://app.example.com" {
		t.Fatalf("unexpected cors origins: %v", cfg.Server.CORSOrigins)
	}
	if cfg.Interview.InactivityTimeout != 90*time.Second {
		t.Fatalf("unexpected inactivity timeout: %s", cfg.Interview.InactivityTimeout)
	}
	if cfg.Pipeline.StageTimeout != 2*time.Minute {
		t.Fatalf("unexpected stage timeout: %s", cfg.Pipeline.StageTimeout)
	}
	if cfg.Interview.CarryoverTurns != 0 {
		t.Fatalf("negative carryover should clamp to 0, got %d", cfg.Interview.CarryoverTurns)
	}
	if cfg.Storage.Driver != "memory" {
		t.Fatalf("unexpected driver: %s", cfg.Storage.Driver)
	}
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	t.Setenv("INTERVIEW_FLUSH_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}
