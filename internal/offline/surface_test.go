package offline

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgnsrekt/chart_hover/internal/chart"
	"github.com/dgnsrekt/chart_hover/internal/highlight"
	"github.com/gogpu/gg"
)

const chartMarkup = `<svg id="composite-chart" width="400" height="300" font-size="12">
  <g id="line-graph-a">
    <text x="100" y="115">Alpha</text>
    <g id="markers-a"><circle cx="200" cy="200" r="3" style="fill-opacity: 0.8"></circle></g>
    <g id="polyline-a"><polyline points="200,200 250,210" stroke="#ff0000"></polyline></g>
  </g>
  <g id="line-graph-b">
    <text x="300" y="40" text-anchor="middle" style="font-size: 16px">Beta</text>
    <g id="polyline-b"><path d="M 300 50 L 320 60"></path></g>
  </g>
</svg>`

func mustSurface(t *testing.T, markup string) *Surface {
	t.Helper()
	s, err := Parse(markup, chart.DefaultSelectors())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return s
}

func TestChartBounds(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   chart.Rect
	}{
		{
			name:   "width and height",
			markup: chartMarkup,
			want:   chart.Rect{Right: 400, Bottom: 300},
		},
		{
			name:   "viewBox",
			markup: `<svg id="composite-chart" viewBox="10 20 100 50"></svg>`,
			want:   chart.Rect{Left: 10, Top: 20, Right: 110, Bottom: 70},
		},
		{
			name:   "percentage falls back to content",
			markup: `<svg id="composite-chart" width="100%" height="100%"><g id="line-graph-x"><g id="polyline-x"><line x1="5" y1="6" x2="50" y2="60"></line></g></g></svg>`,
			want:   chart.Rect{Left: 5, Top: 6, Right: 50, Bottom: 60},
		},
		{
			name:   "circle marker past last anchor",
			markup: `<svg id="composite-chart"><g id="line-graph-x"><g id="markers-x"><circle cx="80" cy="40" r="4"></circle></g><g id="polyline-x"><line x1="5" y1="6" x2="50" y2="60"></line></g></g></svg>`,
			want:   chart.Rect{Left: 5, Top: 6, Right: 84, Bottom: 60},
		},
		{
			name:   "rect and ellipse markers",
			markup: `<svg id="composite-chart"><g id="line-graph-x"><g id="markers-x"><rect x="-10" y="2" width="4" height="4"></rect><ellipse cx="20" cy="70" rx="3" ry="5"></ellipse></g></g></svg>`,
			want:   chart.Rect{Left: -10, Top: 2, Right: 23, Bottom: 75},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := mustSurface(t, tc.markup).ChartBounds()
			if !ok || got != tc.want {
				t.Fatalf("ChartBounds() = %+v, %v; want %+v", got, ok, tc.want)
			}
		})
	}

	if _, ok := mustSurface(t, `<svg id="composite-chart"></svg>`).ChartBounds(); ok {
		t.Fatal("empty chart without size reported bounds")
	}
}

func TestLabelBounds(t *testing.T) {
	s := mustSurface(t, chartMarkup)
	a, _ := s.Chart().Lookup("line-graph-a")
	b, _ := s.Chart().Lookup("line-graph-b")

	boxA, ok := s.LabelBounds(a)
	if !ok {
		t.Fatal("LabelBounds(a) unavailable")
	}
	if boxA.Left != 100 || boxA.Top >= 115 || boxA.Bottom <= 115 || boxA.Width() <= 0 {
		t.Fatalf("LabelBounds(a) = %+v; want box starting at x=100 around baseline 115", boxA)
	}

	boxB, _ := s.LabelBounds(b)
	if mid := (boxB.Left + boxB.Right) / 2; math.Abs(mid-300) > 1e-9 {
		t.Fatalf("middle-anchored label centred at %v; want 300", mid)
	}

	s.SetStyle(a.LabelRef(), chart.FontSize, "24px")
	grown, _ := s.LabelBounds(a)
	if grown.Width() <= boxA.Width() || grown.Height() <= boxA.Height() {
		t.Fatalf("enlarged label box %+v not larger than %+v", grown, boxA)
	}
}

func TestStyler(t *testing.T) {
	s := mustSurface(t, chartMarkup)
	a, _ := s.Chart().Lookup("line-graph-a")

	if v, ok := s.InlineStyle(a.MarkerRef(0), chart.FillOpacity); !ok || v != "0.8" {
		t.Fatalf("InlineStyle(marker) = %q, %v", v, ok)
	}
	if v, ok := s.InlineStyle(a.LineRef(0), chart.Stroke); !ok || v != "" {
		t.Fatalf("InlineStyle(line) = %q, %v; want empty", v, ok)
	}
	if got := s.ComputedStyle(a.LineRef(0), chart.Stroke); got != "#ff0000" {
		t.Fatalf("ComputedStyle(line stroke) = %q", got)
	}
	if got := s.ComputedStyle(a.LabelRef(), chart.FontSize); got != "12px" {
		t.Fatalf("ComputedStyle(label font-size) = %q", got)
	}

	missing := chart.ElementRef{Series: "line-graph-a", Kind: chart.KindMarker, N: 5}
	if _, ok := s.InlineStyle(missing, chart.FillOpacity); ok {
		t.Fatal("InlineStyle on missing element reported ok")
	}
	s.SetStyle(missing, chart.FillOpacity, "0")

	s.SetStyle(a.LineRef(0), chart.Stroke, "#4d4d4d")
	if got := s.ComputedStyle(a.LineRef(0), chart.Stroke); got != "#4d4d4d" {
		t.Fatalf("ComputedStyle after write = %q", got)
	}
}

func TestControllerOverSurface(t *testing.T) {
	s := mustSurface(t, chartMarkup)
	ctrl := highlight.NewController(s.Chart(), s, highlight.DefaultConfig(), nil)
	a, _ := s.Chart().Lookup("line-graph-a")
	b, _ := s.Chart().Lookup("line-graph-b")

	tr := ctrl.Move(s, gg.Pt(205, 205))
	if tr.To != highlight.StateFocused || tr.Active != a.ID || tr.Reason != highlight.ReasonPolyline {
		t.Fatalf("Move(205,205) = %+v; want focus on %s by polyline", tr, a.ID)
	}
	if got := s.ComputedStyle(a.LabelRef(), chart.FontSize); got != "18px" {
		t.Fatalf("active font-size = %q; want 18px", got)
	}
	if got := s.ComputedStyle(b.LineRef(0), chart.Stroke); got != "#4d4d4d" {
		t.Fatalf("resting stroke = %q; want #4d4d4d", got)
	}

	tr = ctrl.Move(s, gg.Pt(300, 35))
	if tr.Active != b.ID || tr.Reason != highlight.ReasonText {
		t.Fatalf("Move(300,35) = %+v; want focus on %s by text", tr, b.ID)
	}

	ctrl.Leave()
	if got := s.ComputedStyle(a.LabelRef(), chart.FontSize); got != "12px" {
		t.Fatalf("font-size after leave = %q; want 12px", got)
	}
	if got := s.ComputedStyle(a.MarkerRef(0), chart.FillOpacity); got != "0.8" {
		t.Fatalf("fill-opacity after leave = %q; want 0.8", got)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chart.svg")
	if err := os.WriteFile(path, []byte(chartMarkup), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Open(path, chart.DefaultSelectors())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if len(s.Chart().Series) != 2 {
		t.Fatalf("series = %d; want 2", len(s.Chart().Series))
	}

	if _, err := Open(filepath.Join(dir, "missing.svg"), chart.DefaultSelectors()); err == nil {
		t.Fatal("Open(missing) succeeded")
	}
	if _, err := Parse(`<svg></svg>`, chart.DefaultSelectors()); !errors.Is(err, chart.ErrRootNotFound) {
		t.Fatalf("Parse(no root) error = %v; want ErrRootNotFound", err)
	}
}
