// Package offline hosts the hover engine over a parsed markup file instead of
// a live page. Screen and chart-local space coincide, label boxes come from
// font metrics and style writes land in the in-memory tree.
package offline

import (
	"fmt"
	"os"
	"strings"

	"github.com/dgnsrekt/chart_hover/internal/chart"
	"github.com/dgnsrekt/chart_hover/internal/dom"
	"github.com/dgnsrekt/chart_hover/internal/glyph"
	"github.com/gogpu/gg"
)

// Surface implements highlight.Frame and highlight.Styler for a static
// document.
type Surface struct {
	doc   *dom.Document
	chart *chart.Chart

	bounds    chart.Rect
	hasBounds bool
}

// Open reads and indexes a markup file.
func Open(path string, sel chart.Selectors) (*Surface, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open markup: %w", err)
	}
	defer f.Close()

	doc, err := dom.Parse(f)
	if err != nil {
		return nil, err
	}
	return New(doc, sel)
}

// Parse indexes in-memory markup.
func Parse(markup string, sel chart.Selectors) (*Surface, error) {
	doc, err := dom.ParseString(markup)
	if err != nil {
		return nil, err
	}
	return New(doc, sel)
}

// New indexes doc. It fails with chart.ErrRootNotFound when the chart root is
// absent.
func New(doc *dom.Document, sel chart.Selectors) (*Surface, error) {
	c, err := chart.Index(doc, sel)
	if err != nil {
		return nil, err
	}
	s := &Surface{doc: doc, chart: c}
	s.bounds, s.hasBounds = LocalBounds(c)
	return s, nil
}

// LocalBounds is the chart's extent in its own coordinate space: the root's
// declared size, else the union of its geometry and label boxes.
func LocalBounds(c *chart.Chart) (chart.Rect, bool) {
	if r, ok := declaredBounds(c.Root); ok {
		return r, true
	}
	return contentBounds(c)
}

// Chart returns the index built for the document.
func (s *Surface) Chart() *chart.Chart { return s.chart }

// Document returns the underlying tree, including any style writes.
func (s *Surface) Document() *dom.Document { return s.doc }

// ChartBounds reports the root's declared size, falling back to the extent
// of its geometry and labels.
func (s *Surface) ChartBounds() (chart.Rect, bool) {
	return s.bounds, s.hasBounds
}

// ScreenToLocal is the identity.
func (s *Surface) ScreenToLocal(p gg.Point) (gg.Point, bool) {
	return p, true
}

// LabelBounds estimates the label's box from its current font size, so an
// enlarged active label grows like it would on a page.
func (s *Surface) LabelBounds(series *chart.Series) (chart.Rect, bool) {
	if series == nil || series.Label == nil {
		return chart.Rect{}, false
	}
	return labelBox(series.Label)
}

func labelBox(el *dom.Element) (chart.Rect, bool) {
	x := firstCoord(el, "x")
	y := firstCoord(el, "y")
	size, ok := dom.LeadingFloat(el.ComputedStyle(string(chart.FontSize)))
	if !ok || size <= 0 {
		return chart.Rect{}, false
	}

	ext := glyph.Measure(strings.TrimSpace(el.Text()), size)
	left := x
	switch el.ComputedStyle("text-anchor") {
	case "middle":
		left = x - ext.Width/2
	case "end":
		left = x - ext.Width
	}
	return chart.Rect{Left: left, Top: y - ext.Ascent, Right: left + ext.Width, Bottom: y + ext.Descent}, true
}

// firstCoord reads the first value of a coordinate list attribute such as
// x="10 20".
func firstCoord(el *dom.Element, name string) float64 {
	v, ok := el.Attr(name)
	if !ok {
		return 0
	}
	f, ok := dom.LeadingFloat(v)
	if !ok {
		return 0
	}
	return f
}

func declaredBounds(root *dom.Element) (chart.Rect, bool) {
	w, wok := length(root, "width")
	h, hok := length(root, "height")
	if wok && hok {
		return chart.Rect{Right: w, Bottom: h}, true
	}

	vb, ok := root.Attr("viewBox")
	if !ok {
		return chart.Rect{}, false
	}
	var nums []float64
	for _, f := range strings.FieldsFunc(vb, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' || r == '\n' }) {
		v, ok := dom.LeadingFloat(f)
		if !ok {
			return chart.Rect{}, false
		}
		nums = append(nums, v)
	}
	if len(nums) != 4 || nums[2] <= 0 || nums[3] <= 0 {
		return chart.Rect{}, false
	}
	return chart.Rect{Left: nums[0], Top: nums[1], Right: nums[0] + nums[2], Bottom: nums[1] + nums[3]}, true
}

// length reads an absolute length attribute; percentages are not resolvable
// without a viewport.
func length(el *dom.Element, name string) (float64, bool) {
	v, ok := el.Attr(name)
	if !ok || strings.HasSuffix(strings.TrimSpace(v), "%") {
		return 0, false
	}
	f, ok := dom.LeadingFloat(v)
	return f, ok && f > 0
}

// markerBox is the extent of a circle, ellipse or rect marker. Missing
// radii and sizes count as zero; a missing centre or origin is no box.
func markerBox(el *dom.Element) (chart.Rect, bool) {
	num := func(name string) float64 {
		v, _ := el.Float(name)
		return v
	}
	switch el.Tag {
	case "circle", "ellipse":
		cx, okx := el.Float("cx")
		cy, oky := el.Float("cy")
		if !okx || !oky {
			return chart.Rect{}, false
		}
		rx, ry := num("r"), num("r")
		if el.Tag == "ellipse" {
			rx, ry = num("rx"), num("ry")
		}
		return chart.Rect{Left: cx - rx, Top: cy - ry, Right: cx + rx, Bottom: cy + ry}, true
	case "rect":
		x, okx := el.Float("x")
		y, oky := el.Float("y")
		if !okx || !oky {
			return chart.Rect{}, false
		}
		return chart.Rect{Left: x, Top: y, Right: x + num("width"), Bottom: y + num("height")}, true
	}
	return chart.Rect{}, false
}

func contentBounds(c *chart.Chart) (chart.Rect, bool) {
	var (
		r     chart.Rect
		found bool
	)
	add := func(o chart.Rect) {
		if !found {
			r, found = o, true
			return
		}
		r = r.Union(o)
	}
	for _, series := range c.Series {
		for _, p := range series.Points {
			add(chart.Rect{Left: p.X, Top: p.Y, Right: p.X, Bottom: p.Y})
		}
		for _, m := range series.Markers {
			if box, ok := markerBox(m); ok {
				add(box)
				continue
			}
			for _, p := range chart.ElementPoints(m) {
				add(chart.Rect{Left: p.X, Top: p.Y, Right: p.X, Bottom: p.Y})
			}
		}
		if series.Label != nil {
			if box, ok := labelBox(series.Label); ok {
				add(box)
			}
		}
	}
	return r, found
}

// InlineStyle returns the element's inline declaration; ok is false when the
// handle does not resolve.
func (s *Surface) InlineStyle(ref chart.ElementRef, prop chart.Property) (string, bool) {
	el, ok := s.chart.Element(ref)
	if !ok {
		return "", false
	}
	return el.InlineStyle(string(prop)), true
}

// ComputedStyle resolves the effective value through the emulated cascade.
func (s *Surface) ComputedStyle(ref chart.ElementRef, prop chart.Property) string {
	el, ok := s.chart.Element(ref)
	if !ok {
		return ""
	}
	return el.ComputedStyle(string(prop))
}

// SetStyle writes an inline declaration; "" removes it.
func (s *Surface) SetStyle(ref chart.ElementRef, prop chart.Property, value string) {
	if el, ok := s.chart.Element(ref); ok {
		el.SetInlineStyle(string(prop), value)
	}
}
