package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileConfig is the TOML file layout. Unset keys leave the environment
// value in place.
type FileConfig struct {
	Engine EngineSection `toml:"engine"`
	Markup MarkupSection `toml:"markup"`
	Server ServerSection `toml:"server"`
	CDP    CDPSection    `toml:"cdp"`
}

// EngineSection maps hover engine settings.
type EngineSection struct {
	TextRadius        *float64 `toml:"text-radius"`
	VectorRadius      *float64 `toml:"vector-radius"`
	PolylineProximity *bool    `toml:"polyline-proximity"`
	TextPriority      *bool    `toml:"text-priority"`
	Logging           *bool    `toml:"logging"`
	RetryIntervalMS   *int     `toml:"retry-interval-ms"`
}

// MarkupSection maps the chart id contract.
type MarkupSection struct {
	RootID         *string `toml:"root-id"`
	SeriesPrefix   *string `toml:"series-prefix"`
	MarkersPrefix  *string `toml:"markers-prefix"`
	PolylinePrefix *string `toml:"polyline-prefix"`
}

// ServerSection maps control API settings.
type ServerSection struct {
	BindAddr    *string `toml:"bind-addr"`
	PreviewDir  *string `toml:"preview-dir"`
	PreviewKeep *int    `toml:"preview-keep"`
	JournalDir  *string `toml:"journal-dir"`
	LogLevel    *string `toml:"log-level"`
	LogFile     *string `toml:"log-file"`
}

// CDPSection maps browser connection settings.
type CDPSection struct {
	Address       *string `toml:"address"`
	Port          *int    `toml:"port"`
	TabURLFilter  *string `toml:"tab-url-filter"`
	EvalTimeoutMS *int    `toml:"eval-timeout-ms"`
	StartURL      *string `toml:"start-url"`
	Headless      *bool   `toml:"headless"`
}

// LoadFile reads a TOML config. A missing file is not an error; found
// reports whether one was read.
func LoadFile(path string) (cfg FileConfig, found bool, err error) {
	if path == "" {
		return FileConfig{}, false, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, fmt.Errorf("failed to stat config: %w", err)
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, false, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, true, nil
}

// Apply copies every set key onto c.
func (f FileConfig) Apply(c *Config) {
	setFloat(&c.TextRadius, f.Engine.TextRadius)
	setFloat(&c.VectorRadius, f.Engine.VectorRadius)
	setBool(&c.PolylineProximity, f.Engine.PolylineProximity)
	setBool(&c.TextPriority, f.Engine.TextPriority)
	setBool(&c.LoggingEnabled, f.Engine.Logging)
	setInt(&c.RetryIntervalMS, f.Engine.RetryIntervalMS)

	setString(&c.RootID, f.Markup.RootID)
	setString(&c.SeriesPrefix, f.Markup.SeriesPrefix)
	setString(&c.MarkersPrefix, f.Markup.MarkersPrefix)
	setString(&c.PolylinePrefix, f.Markup.PolylinePrefix)

	setString(&c.BindAddr, f.Server.BindAddr)
	setString(&c.PreviewDir, f.Server.PreviewDir)
	setInt(&c.PreviewKeep, f.Server.PreviewKeep)
	setString(&c.JournalDir, f.Server.JournalDir)
	setString(&c.LogLevel, f.Server.LogLevel)
	setString(&c.LogFile, f.Server.LogFile)

	setString(&c.CDPAddress, f.CDP.Address)
	setInt(&c.CDPPort, f.CDP.Port)
	setString(&c.TabURLFilter, f.CDP.TabURLFilter)
	setInt(&c.EvalTimeoutMS, f.CDP.EvalTimeoutMS)
	setString(&c.StartURL, f.CDP.StartURL)
	setBool(&c.Headless, f.CDP.Headless)
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/hoverctl/config.toml.
func DefaultConfigPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil || home == "" {
			return ""
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "hoverctl", "config.toml")
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
