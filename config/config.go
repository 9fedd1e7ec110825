package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/wudi/doctext/logging"
)

// Config is the environment-driven configuration for the document reader.
// Every knob has a default so a bare process works out of the box.
type Config struct {
	// Cache
	CacheDir    string
	CacheMaxAge time.Duration // 0 keeps entries forever

	// OCR pipeline
	Engine      string // tesseract or vision
	Languages   []string
	DPI         int
	MaxEdge     int // longest raster edge in pixels before OCR; 0 disables scaling
	Grayscale   bool
	Workers     int
	PageTimeout time.Duration
	Retries     int

	// Extractability classification
	MinCharsPerPage  int
	MinImageCoverage float64
	SamplePages      int

	// Logging
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// Load reads DOCTEXT_* environment variables over defaults and validates
// the result.
func Load() (*Config, error) {
	cfg := &Config{
		CacheDir:         getEnv("DOCTEXT_CACHE_DIR", defaultCacheDir()),
		CacheMaxAge:      getEnvDuration("DOCTEXT_CACHE_MAX_AGE", 0),
		Engine:           getEnv("DOCTEXT_OCR_ENGINE", "tesseract"),
		Languages:        splitList(getEnv("DOCTEXT_OCR_LANGUAGES", "eng")),
		DPI:              getEnvInt("DOCTEXT_OCR_DPI", 300),
		MaxEdge:          getEnvInt("DOCTEXT_OCR_MAX_EDGE", 4000),
		Grayscale:        getEnvBool("DOCTEXT_OCR_GRAYSCALE", true),
		Workers:          getEnvInt("DOCTEXT_OCR_WORKERS", 4),
		PageTimeout:      getEnvDuration("DOCTEXT_OCR_PAGE_TIMEOUT", 2*time.Minute),
		Retries:          getEnvInt("DOCTEXT_OCR_RETRIES", 1),
		MinCharsPerPage:  getEnvInt("DOCTEXT_MIN_CHARS_PER_PAGE", 20),
		MinImageCoverage: getEnvFloat("DOCTEXT_MIN_IMAGE_COVERAGE", 0.5),
		SamplePages:      getEnvInt("DOCTEXT_SAMPLE_PAGES", 3),
		LogLevel:         getEnv("DOCTEXT_LOG_LEVEL", "info"),
		LogFormat:        getEnv("DOCTEXT_LOG_FORMAT", "console"),
		LogTimeFormat:    getEnv("DOCTEXT_LOG_TIME_FORMAT", time.RFC3339),
		LogOutput:        getEnv("DOCTEXT_LOG_OUTPUT", "stderr"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Engine {
	case "tesseract", "vision":
	default:
		return fmt.Errorf("DOCTEXT_OCR_ENGINE must be tesseract or vision, got %q", c.Engine)
	}
	if len(c.Languages) == 0 {
		return fmt.Errorf("DOCTEXT_OCR_LANGUAGES must name at least one language")
	}
	if c.DPI < 72 || c.DPI > 1200 {
		return fmt.Errorf("DOCTEXT_OCR_DPI must be within 72-1200, got %d", c.DPI)
	}
	if c.MaxEdge < 0 {
		return fmt.Errorf("DOCTEXT_OCR_MAX_EDGE must not be negative, got %d", c.MaxEdge)
	}
	if c.Workers < 1 {
		return fmt.Errorf("DOCTEXT_OCR_WORKERS must be at least 1, got %d", c.Workers)
	}
	if c.PageTimeout <= 0 {
		return fmt.Errorf("DOCTEXT_OCR_PAGE_TIMEOUT must be positive, got %s", c.PageTimeout)
	}
	if c.Retries < 0 {
		return fmt.Errorf("DOCTEXT_OCR_RETRIES must not be negative, got %d", c.Retries)
	}
	if c.MinCharsPerPage < 0 {
		return fmt.Errorf("DOCTEXT_MIN_CHARS_PER_PAGE must not be negative, got %d", c.MinCharsPerPage)
	}
	if c.MinImageCoverage < 0 || c.MinImageCoverage > 1 {
		return fmt.Errorf("DOCTEXT_MIN_IMAGE_COVERAGE must be within 0-1, got %g", c.MinImageCoverage)
	}
	if c.SamplePages < 1 {
		return fmt.Errorf("DOCTEXT_SAMPLE_PAGES must be at least 1, got %d", c.SamplePages)
	}
	if c.CacheDir == "" {
		return fmt.Errorf("DOCTEXT_CACHE_DIR must not be empty")
	}
	return nil
}

// LoggerConfig maps the logging fields onto the logging package's config.
func (c *Config) LoggerConfig() logging.Config {
	return logging.Config{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func defaultCacheDir() string {
	if base, err := os.UserCacheDir(); err == nil {
		return filepath.Join(base, "doctext")
	}
	return filepath.Join(os.TempDir(), "doctext-cache")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
