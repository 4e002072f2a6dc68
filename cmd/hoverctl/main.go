// Package main is the hoverctl CLI. It serves the hover engine against a
// live browser page or a markup file, and replays pointer positions over a
// file offline.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dgnsrekt/chart_hover/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"
)

var (
	configPath   string
	textRadius   float64
	vectorRadius float64
	textOnly     bool
	textPriority bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "hoverctl",
		Short:        "Hover highlighting for composite SVG line charts",
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "TOML config file (default: $HOVER_CONFIG_FILE or ~/.config/hoverctl/config.toml)")
	pf.Float64Var(&textRadius, "text-radius", 5, "padding around each label box")
	pf.Float64Var(&vectorRadius, "vector-radius", 10, "reach around each polyline point")
	pf.BoolVar(&textOnly, "text-only", false, "disable polyline proximity")
	pf.BoolVar(&textPriority, "text-priority", false, "check every label before any polyline")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newExtractCmd())
	rootCmd.AddCommand(newSimulateCmd())
	rootCmd.AddCommand(newPreviewCmd())
	return rootCmd
}

// loadConfig layers explicitly set flags over env and file settings.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("text-radius") {
		cfg.TextRadius = textRadius
	}
	if flags.Changed("vector-radius") {
		cfg.VectorRadius = vectorRadius
	}
	if flags.Changed("text-only") {
		cfg.PolylineProximity = !textOnly
	}
	if flags.Changed("text-priority") {
		cfg.TextPriority = textPriority
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogger installs the default slog handler. With a filename the
// output is also written to a rotating log file.
func setupLogger(level, filename string, console io.Writer) error {
	out := console
	if filename != "" {
		if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
			return err
		}
		logWriter := &lumberjack.Logger{
			Filename:   filename,
			MaxSize:    25,
			MaxBackups: 10,
			MaxAge:     14,
			Compress:   true,
		}
		out = io.MultiWriter(console, logWriter)
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	h := slog.NewTextHandler(out, &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}

// encode writes v as indented JSON or YAML.
func encode(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("invalid format: %s (must be json or yaml)", format)
}
