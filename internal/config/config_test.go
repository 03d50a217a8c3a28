package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	t.Setenv("DEVICE", "bench-01")
	t.Setenv("SCREENVEC_ROOT", "/data/screens")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Host != "0.0.0.0" || cfg.Port != "8080" {
		t.Errorf("host:port = %s:%s", cfg.Host, cfg.Port)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("request timeout = %s", cfg.RequestTimeout)
	}
	if !cfg.MoveRejected {
		t.Error("MoveRejected must default to true")
	}
	if cfg.ServerAddress() != "0.0.0.0:8080" {
		t.Errorf("address = %s", cfg.ServerAddress())
	}
}

func TestLoadFromEnvRequiresDevice(t *testing.T) {
	t.Setenv("DEVICE", "")
	if _, err := LoadFromEnv(); err == nil {
		t.Error("missing DEVICE must fail validation")
	}
}

func TestLoadFromEnvRejectsBadPort(t *testing.T) {
	t.Setenv("DEVICE", "bench-01")
	t.Setenv("PORT", "99999")
	if _, err := LoadFromEnv(); err == nil {
		t.Error("out-of-range PORT must fail validation")
	}
}

func TestDevicePathsLayout(t *testing.T) {
	p := NewDevicePaths("/data", "bench-01")

	if p.IncomingDir != filepath.Join("/data", "images", "bench-01", "incoming") {
		t.Errorf("incoming = %s", p.IncomingDir)
	}
	if p.StatePath != filepath.Join("/data", "state", "bench-01", "state.json") {
		t.Errorf("state = %s", p.StatePath)
	}
	if p.SVGPath("boot-menu") != filepath.Join(p.ScreensDir, "boot-menu.svg") {
		t.Errorf("svg = %s", p.SVGPath("boot-menu"))
	}
	if p.PreviewPath("boot-menu") != filepath.Join(p.ScreensDir, "boot-menu_preview_128x64.png") {
		t.Errorf("preview = %s", p.PreviewPath("boot-menu"))
	}
	if p.SourcePath("incoming/boot menu.png") != filepath.Join(p.ImagesDir, "incoming", "boot menu.png") {
		t.Errorf("source = %s", p.SourcePath("incoming/boot menu.png"))
	}
}
