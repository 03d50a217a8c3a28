package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Root               string
	Device             string
	Host               string
	Port               string
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	MoveRejected       bool
	Workers            int
	AzureAccount       string
	AzureKey           string
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// Paths returns the on-disk layout for the configured device.
func (c *Config) Paths() DevicePaths {
	return NewDevicePaths(c.Root, c.Device)
}

func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Root:               getEnvOrDefault("SCREENVEC_ROOT", "."),
		Device:             getEnvOrDefault("DEVICE", ""),
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8080"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 10*1024*1024), // 10MB
		MoveRejected:       parseBoolOrDefault("MOVE_REJECTED", true),
		Workers:            int(parseIntOrDefault("WORKERS", 0)), // 0 = NumCPU
		AzureAccount:       getEnvOrDefault("AZURE_STORAGE_ACCOUNT", ""),
		AzureKey:           getEnvOrDefault("AZURE_STORAGE_KEY", ""),
	}

	if cfg.Device == "" {
		return nil, fmt.Errorf("DEVICE must be set")
	}
	p, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid PORT: %q", cfg.Port)
	}
	if cfg.MaxRequestBodySize <= 0 {
		return nil, fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", cfg.MaxRequestBodySize)
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("REQUEST_TIMEOUT must be > 0 (got %s)", cfg.RequestTimeout)
	}
	return cfg, nil
}

// DevicePaths resolves every file and directory the pipeline touches for
// one device. The root is always passed in explicitly; nothing walks the
// filesystem looking for it.
type DevicePaths struct {
	ImagesDir    string
	IncomingDir  string
	RejectedDir  string
	ScreensDir   string
	ManifestPath string
	StatePath    string
	ShapesPath   string
}

func NewDevicePaths(root, device string) DevicePaths {
	imagesDir := filepath.Join(root, "images", device)
	stateDir := filepath.Join(root, "state", device)
	return DevicePaths{
		ImagesDir:    imagesDir,
		IncomingDir:  filepath.Join(imagesDir, "incoming"),
		RejectedDir:  filepath.Join(imagesDir, "rejected"),
		ScreensDir:   filepath.Join(imagesDir, "screens"),
		ManifestPath: filepath.Join(imagesDir, "index.json"),
		StatePath:    filepath.Join(stateDir, "state.json"),
		ShapesPath:   filepath.Join(stateDir, "shapes.json"),
	}
}

// SVGPath returns the vector artifact path for a slug.
func (p DevicePaths) SVGPath(slug string) string {
	return filepath.Join(p.ScreensDir, slug+".svg")
}

// PreviewPath returns the rasterized preview path for a slug.
func (p DevicePaths) PreviewPath(slug string) string {
	return filepath.Join(p.ScreensDir, slug+"_preview_128x64.png")
}

// SourcePath resolves a state record's relative source path.
func (p DevicePaths) SourcePath(rel string) string {
	return filepath.Join(p.ImagesDir, filepath.FromSlash(rel))
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}
