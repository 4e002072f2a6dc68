package highlight

import (
	"testing"

	"github.com/dgnsrekt/chart_hover/internal/chart"
	"github.com/dgnsrekt/chart_hover/internal/dom"
	"github.com/gogpu/gg"
)

const twoSeriesMarkup = `<svg id="composite-chart" width="400" height="300">
  <g id="line-graph-a">
    <text x="100" y="115" style="font-size: 12px; fill: #336699">Alpha</text>
    <g id="markers-a">
      <circle cx="200" cy="200" r="3" style="fill-opacity: 0.8"></circle>
      <rect x="248" y="208" width="4" height="4"></rect>
    </g>
    <g id="polyline-a">
      <polyline points="200,200 250,210" stroke="#ff0000"></polyline>
    </g>
  </g>
  <g id="line-graph-b">
    <text x="300" y="40">Beta</text>
    <g id="markers-b"><circle cx="300" cy="50" r="3"></circle></g>
    <g id="polyline-b"><path d="M 300 50 L 320 60" style="stroke: #00ff00"></path></g>
  </g>
</svg>`

func mustChart(t *testing.T, markup string) *chart.Chart {
	t.Helper()
	doc, err := dom.ParseString(markup)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	c, err := chart.Index(doc, chart.DefaultSelectors())
	if err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	return c
}

type styleWrite struct {
	ref   chart.ElementRef
	prop  chart.Property
	value string
}

// fakeStyler keeps inline and computed values per element and logs writes.
// It is seeded from the parsed markup.
type fakeStyler struct {
	inline   map[chart.ElementRef]map[chart.Property]string
	computed map[chart.ElementRef]map[chart.Property]string
	missing  map[chart.ElementRef]bool
	writes   []styleWrite
}

var trackedProps = []chart.Property{chart.FillOpacity, chart.Stroke, chart.FontSize, chart.Fill}

func newFakeStyler(c *chart.Chart) *fakeStyler {
	f := &fakeStyler{
		inline:   make(map[chart.ElementRef]map[chart.Property]string),
		computed: make(map[chart.ElementRef]map[chart.Property]string),
		missing:  make(map[chart.ElementRef]bool),
	}
	for _, ref := range c.Refs() {
		el, _ := c.Element(ref)
		in := make(map[chart.Property]string)
		comp := make(map[chart.Property]string)
		for _, p := range trackedProps {
			if v := el.InlineStyle(string(p)); v != "" {
				in[p] = v
			}
			comp[p] = el.ComputedStyle(string(p))
		}
		f.inline[ref] = in
		f.computed[ref] = comp
	}
	return f
}

func (f *fakeStyler) InlineStyle(ref chart.ElementRef, prop chart.Property) (string, bool) {
	if f.missing[ref] {
		return "", false
	}
	m, ok := f.inline[ref]
	if !ok {
		return "", false
	}
	return m[prop], true
}

func (f *fakeStyler) ComputedStyle(ref chart.ElementRef, prop chart.Property) string {
	if v := f.inline[ref][prop]; v != "" {
		return v
	}
	return f.computed[ref][prop]
}

func (f *fakeStyler) SetStyle(ref chart.ElementRef, prop chart.Property, value string) {
	if f.missing[ref] {
		return
	}
	m, ok := f.inline[ref]
	if !ok {
		return
	}
	f.writes = append(f.writes, styleWrite{ref: ref, prop: prop, value: value})
	if value == "" {
		delete(m, prop)
		return
	}
	m[prop] = value
}

func (f *fakeStyler) effective(ref chart.ElementRef, prop chart.Property) string {
	return f.ComputedStyle(ref, prop)
}

// fakeFrame has a fixed chart box, per-series label boxes and an optional
// screen-to-local matrix.
type fakeFrame struct {
	bounds chart.Rect
	labels map[chart.SeriesID]chart.Rect
	inv    *gg.Matrix
}

func (f fakeFrame) ChartBounds() (chart.Rect, bool) { return f.bounds, true }

func (f fakeFrame) LabelBounds(s *chart.Series) (chart.Rect, bool) {
	r, ok := f.labels[s.ID]
	return r, ok
}

func (f fakeFrame) ScreenToLocal(p gg.Point) (gg.Point, bool) {
	if f.inv == nil {
		return gg.Point{}, false
	}
	return f.inv.TransformPoint(p), true
}

func identityFrame() fakeFrame {
	m := gg.Identity()
	return fakeFrame{
		bounds: chart.Rect{Left: 0, Top: 0, Right: 400, Bottom: 300},
		labels: map[chart.SeriesID]chart.Rect{
			"line-graph-a": {Left: 100, Top: 100, Right: 150, Bottom: 120},
			"line-graph-b": {Left: 300, Top: 28, Right: 330, Bottom: 42},
		},
		inv: &m,
	}
}
