// Package config loads glidexd's runtime configuration from environment
// variables (optionally backed by a .env file), mirroring the teacher's
// cmd/api/config package's getEnv/getEnvInt/getEnvBool helper style.
package config

import (
	"fmt"
	"os"
	"runtime/debug"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds every knob glidexd reads at startup.
type Config struct {
	// Port is the HTTP API listen port.
	Port int
	// CatalogPath overrides the default $HOME/.glidex/glidex.db location
	// when non-empty.
	CatalogPath string
	// FirecrackerBinary is the path to the firecracker executable the
	// supervisor spawns.
	FirecrackerBinary string

	LogLevel string

	OtelEnabled     bool
	OtelEndpoint    string
	OtelInsecure    bool
	OtelServiceName string
	OtelEnv         string

	Version string
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getBuildVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}
	var revision string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if revision == "" {
		return "dev"
	}
	if len(revision) > 8 {
		revision = revision[:8]
	}
	if dirty {
		return revision + "-dirty"
	}
	return revision
}

// Load reads a .env file if present, then builds Config from the
// environment, filling in defaults for anything unset.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:              getEnvInt("PORT", 8080),
		CatalogPath:        getEnv("GLIDEX_CATALOG_PATH", ""),
		FirecrackerBinary:  getEnv("GLIDEX_FIRECRACKER_BINARY", "firecracker"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		OtelEnabled:        getEnvBool("OTEL_ENABLED", false),
		OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OtelInsecure:       getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OtelServiceName:    getEnv("OTEL_SERVICE_NAME", "glidexd"),
		OtelEnv:            getEnv("GLIDEX_ENV", "development"),
		Version:            getBuildVersion(),
	}
}

// Validate sanity-checks the loaded configuration.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.FirecrackerBinary == "" {
		return fmt.Errorf("firecracker binary path must not be empty")
	}
	return nil
}
