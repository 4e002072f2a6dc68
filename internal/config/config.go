// Package config loads hoverctl settings from the environment, an optional
// .env file and an optional TOML file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dgnsrekt/chart_hover/internal/chart"
	"github.com/dgnsrekt/chart_hover/internal/highlight"
	"github.com/joho/godotenv"
)

// Config holds everything the CLI and the hosts need.
type Config struct {
	// CDP connection settings
	CDPAddress    string
	CDPPort       int
	TabURLFilter  string
	EvalTimeoutMS int

	// Control API
	BindAddr         string
	PortCandidates   []string
	PortAutoFallback bool
	PreviewDir       string
	PreviewKeep      int
	// JournalDir enables the transition journal when set.
	JournalDir       string

	// Logging
	LogLevel string
	LogFile  string

	// Chart markup contract
	RootID         string
	SeriesPrefix   string
	MarkersPrefix  string
	PolylinePrefix string

	// Hover engine
	TextRadius        float64
	VectorRadius      float64
	PolylineProximity bool
	TextPriority      bool
	LoggingEnabled    bool
	RetryIntervalMS   int

	// Browser launch
	StartURL   string
	ProfileDir string
	WindowSize string
	Headless   bool

	// ConfigFile is the TOML file that was applied, if any.
	ConfigFile string
}

// Load reads configuration from environment variables and optional .env
// file, then overlays the TOML file named by HOVER_CONFIG_FILE (or the
// default path when unset).
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom is Load with an explicit TOML path. An empty path falls back to
// HOVER_CONFIG_FILE and then the default location.
func LoadFrom(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		CDPAddress:    getEnvOrDefault("CHROMIUM_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:       getEnvIntOrDefault("CHROMIUM_CDP_PORT", 9220),
		TabURLFilter:  getEnvOrDefault("HOVER_TAB_URL_FILTER", ""),
		EvalTimeoutMS: getEnvIntOrDefault("HOVER_EVAL_TIMEOUT_MS", 5000),

		BindAddr:         getEnvOrDefault("HOVER_BIND_ADDR", "127.0.0.1:8190"),
		PortCandidates:   getEnvListOrDefault("HOVER_PORT_CANDIDATES", []string{"127.0.0.1:8191", "127.0.0.1:8192", "127.0.0.1:8193"}),
		PortAutoFallback: getEnvBoolOrDefault("HOVER_PORT_AUTO_FALLBACK", true),
		PreviewDir:       getEnvOrDefault("HOVER_PREVIEW_DIR", "./previews"),
		PreviewKeep:      getEnvIntOrDefault("HOVER_PREVIEW_KEEP", 50),
		JournalDir:       getEnvOrDefault("HOVER_JOURNAL_DIR", ""),

		LogLevel: strings.ToLower(getEnvOrDefault("HOVER_LOG_LEVEL", "info")),
		LogFile:  getEnvOrDefault("HOVER_LOG_FILE", "logs/hoverctl.log"),

		RootID:         getEnvOrDefault("HOVER_ROOT_ID", "composite-chart"),
		SeriesPrefix:   getEnvOrDefault("HOVER_SERIES_PREFIX", "line-graph-"),
		MarkersPrefix:  getEnvOrDefault("HOVER_MARKERS_PREFIX", "markers-"),
		PolylinePrefix: getEnvOrDefault("HOVER_POLYLINE_PREFIX", "polyline-"),

		TextRadius:        getEnvFloatOrDefault("HOVER_TEXT_RADIUS", 5),
		VectorRadius:      getEnvFloatOrDefault("HOVER_VECTOR_RADIUS", 10),
		PolylineProximity: getEnvBoolOrDefault("HOVER_POLYLINE_PROXIMITY", true),
		TextPriority:      getEnvBoolOrDefault("HOVER_TEXT_PRIORITY", false),
		LoggingEnabled:    getEnvBoolOrDefault("HOVER_LOGGING_ENABLED", true),
		RetryIntervalMS:   getEnvIntOrDefault("HOVER_RETRY_INTERVAL_MS", 500),

		StartURL:   getEnvOrDefault("HOVER_START_URL", "about:blank"),
		ProfileDir: getEnvOrDefault("HOVER_PROFILE_DIR", "./browser_profile"),
		WindowSize: getEnvOrDefault("HOVER_WINDOW_SIZE", "1280,800"),
		Headless:   getEnvBoolOrDefault("HOVER_HEADLESS", false),
	}

	path := configPath
	if path == "" {
		path = getEnvOrDefault("HOVER_CONFIG_FILE", DefaultConfigPath())
	}
	fileCfg, found, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if found {
		fileCfg.Apply(cfg)
		cfg.ConfigFile = path
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with and clamps the rest.
func (c *Config) Validate() error {
	if c.TextRadius < 0 {
		return fmt.Errorf("config: text radius must be >= 0, got %v", c.TextRadius)
	}
	if c.VectorRadius < 0 {
		return fmt.Errorf("config: vector radius must be >= 0, got %v", c.VectorRadius)
	}
	if c.RootID == "" || c.SeriesPrefix == "" {
		return fmt.Errorf("config: root id and series prefix are required")
	}
	if c.EvalTimeoutMS < 1000 {
		c.EvalTimeoutMS = 1000
	}
	if c.RetryIntervalMS < 50 {
		c.RetryIntervalMS = 50
	}
	return nil
}

// CDPURL returns the CDP HTTP endpoint.
func (c *Config) CDPURL() string {
	return "http://" + c.CDPAddress + ":" + strconv.Itoa(c.CDPPort)
}

// EvalTimeout is EvalTimeoutMS as a duration.
func (c *Config) EvalTimeout() time.Duration {
	return time.Duration(c.EvalTimeoutMS) * time.Millisecond
}

// RetryInterval is the delay between chart lookups while it is absent.
func (c *Config) RetryInterval() time.Duration {
	return time.Duration(c.RetryIntervalMS) * time.Millisecond
}

// Selectors returns the markup contract.
func (c *Config) Selectors() chart.Selectors {
	return chart.Selectors{
		RootID:         c.RootID,
		SeriesPrefix:   c.SeriesPrefix,
		MarkersPrefix:  c.MarkersPrefix,
		PolylinePrefix: c.PolylinePrefix,
	}
}

// Highlight returns the engine settings.
func (c *Config) Highlight() highlight.Config {
	h := highlight.DefaultConfig()
	h.TextRadius = c.TextRadius
	h.VectorRadius = c.VectorRadius
	h.PolylineProximity = c.PolylineProximity
	h.TextPriority = c.TextPriority
	h.LoggingEnabled = c.LoggingEnabled
	return h
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloatOrDefault(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
