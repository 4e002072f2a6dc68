// Package preview rasterizes a chart with its current effective styles, so
// a hover state can be inspected without a browser.
package preview

import (
	"bytes"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/dgnsrekt/chart_hover/internal/chart"
	"github.com/dgnsrekt/chart_hover/internal/dom"
	"github.com/dgnsrekt/chart_hover/internal/glyph"
	"github.com/gogpu/gg"
)

// maxSide caps either canvas dimension.
const maxSide = 4096

// StyleSource answers effective style values for tracked elements. Both
// hosts' stylers satisfy it.
type StyleSource interface {
	ComputedStyle(ref chart.ElementRef, prop chart.Property) string
}

// Options control one rendering.
type Options struct {
	// Bounds is the chart-local region to draw.
	Bounds chart.Rect
	// Pointer, when set, is marked with a ring.
	Pointer *gg.Point
	// Background defaults to white.
	Background string
}

// Image is an encoded rendering.
type Image struct {
	PNG    []byte
	Width  int
	Height int
}

// Render draws lines, then markers, then labels for every series, in
// markup order.
func Render(c *chart.Chart, styles StyleSource, opts Options) (Image, error) {
	w := int(math.Ceil(opts.Bounds.Width()))
	h := int(math.Ceil(opts.Bounds.Height()))
	if w <= 0 || h <= 0 {
		return Image{}, fmt.Errorf("preview: empty bounds %+v", opts.Bounds)
	}
	if w > maxSide || h > maxSide {
		return Image{}, fmt.Errorf("preview: bounds %dx%d exceed %d", w, h, maxSide)
	}

	r := &renderer{
		dc:     gg.NewContext(w, h),
		styles: styles,
		origin: gg.Pt(opts.Bounds.Left, opts.Bounds.Top),
	}
	defer r.dc.Close()

	bg := gg.White
	if col, ok := parseColor(opts.Background); ok {
		bg = col
	}
	r.dc.ClearWithColor(bg)

	for _, s := range c.Series {
		for i, el := range s.Lines {
			r.line(s.LineRef(i), el)
		}
	}
	for _, s := range c.Series {
		for i, el := range s.Markers {
			r.marker(s.MarkerRef(i), el)
		}
	}
	for _, s := range c.Series {
		if s.Label != nil {
			r.label(s.LabelRef(), s.Label)
		}
	}
	if opts.Pointer != nil {
		r.pointer(*opts.Pointer)
	}
	if r.err != nil {
		return Image{}, r.err
	}

	var buf bytes.Buffer
	if err := r.dc.EncodePNG(&buf); err != nil {
		return Image{}, fmt.Errorf("preview: encode: %w", err)
	}
	return Image{PNG: buf.Bytes(), Width: w, Height: h}, nil
}

type renderer struct {
	dc     *gg.Context
	styles StyleSource
	origin gg.Point
	err    error
}

func (r *renderer) at(x, y float64) (float64, float64) {
	return x - r.origin.X, y - r.origin.Y
}

func (r *renderer) check(err error) {
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("preview: draw: %w", err)
	}
}

func (r *renderer) line(ref chart.ElementRef, el *dom.Element) {
	col, ok := parseColor(r.styles.ComputedStyle(ref, chart.Stroke))
	if !ok || !r.trace(el) {
		r.dc.ClearPath()
		return
	}
	width, ok := dom.LeadingFloat(el.ComputedStyle("stroke-width"))
	if !ok || width <= 0 {
		width = 1
	}
	r.dc.SetColor(col.Color())
	r.dc.SetLineWidth(width)
	r.check(r.dc.Stroke())
}

// trace appends el's outline to the current path.
func (r *renderer) trace(el *dom.Element) bool {
	switch el.Tag {
	case "path":
		d, _ := el.Attr("d")
		cmds := chart.ParsePath(d)
		for _, cmd := range cmds {
			x, y := r.at(cmd.Pt.X, cmd.Pt.Y)
			if cmd.Op == chart.MoveTo {
				r.dc.MoveTo(x, y)
			} else {
				r.dc.LineTo(x, y)
			}
		}
		return len(cmds) > 1
	default:
		pts := chart.ElementPoints(el)
		for i, p := range pts {
			x, y := r.at(p.X, p.Y)
			if i == 0 {
				r.dc.MoveTo(x, y)
			} else {
				r.dc.LineTo(x, y)
			}
		}
		if el.Tag == "polygon" && len(pts) > 2 {
			r.dc.ClosePath()
		}
		return len(pts) > 1
	}
}

func (r *renderer) marker(ref chart.ElementRef, el *dom.Element) {
	opacity, ok := dom.LeadingFloat(r.styles.ComputedStyle(ref, chart.FillOpacity))
	if !ok {
		opacity = 1
	}
	col, ok := parseColor(el.ComputedStyle("fill"))
	if !ok || opacity <= 0 {
		return
	}
	col.A *= clamp01(opacity)

	num := func(name string) float64 {
		v, _ := el.Float(name)
		return v
	}
	switch el.Tag {
	case "circle":
		x, y := r.at(num("cx"), num("cy"))
		r.dc.DrawCircle(x, y, num("r"))
	case "ellipse":
		x, y := r.at(num("cx"), num("cy"))
		r.dc.DrawEllipse(x, y, num("rx"), num("ry"))
	case "rect":
		x, y := r.at(num("x"), num("y"))
		r.dc.DrawRectangle(x, y, num("width"), num("height"))
	default:
		if !r.trace(el) {
			r.dc.ClearPath()
			return
		}
		if el.Tag != "polygon" {
			r.dc.ClosePath()
		}
	}
	r.dc.SetColor(col.Color())
	r.check(r.dc.Fill())
}

func (r *renderer) label(ref chart.ElementRef, el *dom.Element) {
	text := strings.TrimSpace(el.Text())
	size, ok := dom.LeadingFloat(r.styles.ComputedStyle(ref, chart.FontSize))
	if text == "" || !ok || size <= 0 {
		return
	}
	face := glyph.Face(size)
	if face == nil {
		slog.Debug("preview label skipped without outline font", "ref", ref.String())
		return
	}
	col, ok := parseColor(r.styles.ComputedStyle(ref, chart.Fill))
	if !ok {
		return
	}

	lx, _ := el.Float("x")
	ly, _ := el.Float("y")
	x, y := r.at(lx, ly)
	switch el.ComputedStyle("text-anchor") {
	case "middle":
		x -= glyph.Measure(text, size).Width / 2
	case "end":
		x -= glyph.Measure(text, size).Width
	}
	r.dc.SetFont(face)
	r.dc.SetColor(col.Color())
	r.dc.DrawString(text, x, y)
}

func (r *renderer) pointer(p gg.Point) {
	x, y := r.at(p.X, p.Y)
	r.dc.SetRGBA(0.86, 0.08, 0.24, 0.9)
	r.dc.SetLineWidth(1.5)
	r.dc.DrawCircle(x, y, 4)
	r.check(r.dc.Stroke())
}
