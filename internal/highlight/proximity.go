package highlight

import (
	"math"

	"github.com/dgnsrekt/chart_hover/internal/chart"
	"github.com/gogpu/gg"
)

// Reason says which predicate selected a series.
type Reason string

const (
	ReasonText     Reason = "text"
	ReasonPolyline Reason = "polyline"
)

// Hit is a positive proximity result.
type Hit struct {
	Series *chart.Series
	Reason Reason
	// Local is the pointer in chart-local space, set for polyline hits.
	Local gg.Point
}

// HitTest returns the first series, in markup order, whose extended active
// area contains p. The polyline predicate runs only when enabled and the
// frame can map p into local space.
func HitTest(c *chart.Chart, f Frame, p gg.Point, cfg Config) (Hit, bool) {
	var (
		local   gg.Point
		canLine bool
	)
	if cfg.PolylineProximity {
		local, canLine = f.ScreenToLocal(p)
	}

	if cfg.TextPriority {
		for _, s := range c.Series {
			if nearLabel(f, s, p, cfg.TextRadius) {
				return Hit{Series: s, Reason: ReasonText}, true
			}
		}
		if canLine {
			for _, s := range c.Series {
				if nearPolyline(s, local, cfg.VectorRadius) {
					return Hit{Series: s, Reason: ReasonPolyline, Local: local}, true
				}
			}
		}
		return Hit{}, false
	}

	for _, s := range c.Series {
		if nearLabel(f, s, p, cfg.TextRadius) {
			return Hit{Series: s, Reason: ReasonText}, true
		}
		if canLine && nearPolyline(s, local, cfg.VectorRadius) {
			return Hit{Series: s, Reason: ReasonPolyline, Local: local}, true
		}
	}
	return Hit{}, false
}

func nearLabel(f Frame, s *chart.Series, p gg.Point, radius float64) bool {
	if s.Label == nil {
		return false
	}
	box, ok := f.LabelBounds(s)
	if !ok {
		return false
	}
	return box.Expand(radius).Contains(p)
}

func nearPolyline(s *chart.Series, local gg.Point, radius float64) bool {
	for _, pt := range s.Points {
		if local.Distance(pt) <= radius {
			return true
		}
	}
	return false
}

// InverseCTM builds the screen-to-local mapping from a DOMMatrix-style
// screen CTM (a b c d e f). ok is false for a singular matrix.
func InverseCTM(a, b, c, d, e, f float64) (gg.Matrix, bool) {
	m := gg.Matrix{A: a, B: c, C: e, D: b, E: d, F: f}
	det := m.A*m.E - m.B*m.D
	if math.Abs(det) < 1e-10 || math.IsNaN(det) {
		return gg.Matrix{}, false
	}
	return m.Invert(), true
}
