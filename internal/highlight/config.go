// Package highlight is the hover engine: proximity hit-testing over a chart
// index, the reversible style store and the Idle/Browsing/Focused state
// machine that drives it. It holds no global state; a Controller owns
// everything for one chart.
package highlight

import (
	"log/slog"

	"github.com/dgnsrekt/chart_hover/internal/chart"
	"github.com/gogpu/gg"
)

// Config is fixed when a Controller is built.
type Config struct {
	// TextRadius pads each label's screen box on all four sides.
	TextRadius float64
	// VectorRadius is the reach around each polyline anchor in local units.
	VectorRadius float64
	// PolylineProximity enables the distance-to-anchor predicate. Off gives
	// text-only hover.
	PolylineProximity bool
	// TextPriority checks every label before any polyline. The default
	// checks label then polyline per series.
	TextPriority bool
	// LoggingEnabled controls engine diagnostics only.
	LoggingEnabled bool

	RestStroke      string
	RestFillOpacity string
	ActiveFill      string
	ActiveScale     float64
	DefaultFontSize float64
}

// DefaultConfig returns the stock radii and colours.
func DefaultConfig() Config {
	return Config{
		TextRadius:        5,
		VectorRadius:      10,
		PolylineProximity: true,
		LoggingEnabled:    true,
		RestStroke:        "#4d4d4d",
		RestFillOpacity:   "0",
		ActiveFill:        "#000000",
		ActiveScale:       1.5,
		DefaultFontSize:   12,
	}
}

// Frame is the per-event view of the live chart: where it sits on screen
// and how screen points map into chart-local space.
type Frame interface {
	ChartBounds() (chart.Rect, bool)
	LabelBounds(s *chart.Series) (chart.Rect, bool)
	ScreenToLocal(p gg.Point) (gg.Point, bool)
}

// Styler reads and writes element styles. ok=false from InlineStyle means
// the element is gone; SetStyle on a missing element does nothing.
type Styler interface {
	InlineStyle(ref chart.ElementRef, prop chart.Property) (value string, ok bool)
	ComputedStyle(ref chart.ElementRef, prop chart.Property) string
	SetStyle(ref chart.ElementRef, prop chart.Property, value string)
}

func engineLogger(cfg Config, logger *slog.Logger) *slog.Logger {
	if !cfg.LoggingEnabled {
		return slog.New(slog.DiscardHandler)
	}
	if logger == nil {
		return slog.Default()
	}
	return logger
}
