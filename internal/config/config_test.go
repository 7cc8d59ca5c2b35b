package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q", cfg.BindAddr)
	}
	if cfg.MetricsNamespace != "telvoice" {
		t.Fatalf("MetricsNamespace = %q", cfg.MetricsNamespace)
	}
	if cfg.GatherTimeout != 5 || cfg.EmptyGatherLimit != 2 {
		t.Fatalf("IVR defaults = %d, %d", cfg.GatherTimeout, cfg.EmptyGatherLimit)
	}
	if cfg.SidecarWorkers != 2 || cfg.SidecarBuffer != 64 {
		t.Fatalf("sidecar defaults = %d, %d", cfg.SidecarWorkers, cfg.SidecarBuffer)
	}
	if cfg.ShutdownTimeout != 15*time.Second {
		t.Fatalf("ShutdownTimeout = %v", cfg.ShutdownTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_BIND_ADDR", ":9090")
	t.Setenv("IVR_EMPTY_GATHER_LIMIT", "3")
	t.Setenv("APP_SHUTDOWN_TIMEOUT", "5s")
	t.Setenv("APP_ALLOW_ANY_ORIGIN", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":9090" || cfg.EmptyGatherLimit != 3 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.ShutdownTimeout != 5*time.Second || !cfg.AllowAnyOrigin {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("IVR_GATHER_TIMEOUT", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for zero gather timeout")
	}
}

func TestLoadRejectsUnparseable(t *testing.T) {
	t.Setenv("SIDECAR_WORKERS", "many")
	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}
