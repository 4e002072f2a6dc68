package chart

import (
	"math"
	"strings"

	"github.com/dgnsrekt/chart_hover/internal/dom"
	"github.com/gogpu/gg"
)

// Rect is an axis-aligned box in screen space.
type Rect struct {
	Left, Top, Right, Bottom float64
}

// Expand grows the box by d on all four sides.
func (r Rect) Expand(d float64) Rect {
	return Rect{Left: r.Left - d, Top: r.Top - d, Right: r.Right + d, Bottom: r.Bottom + d}
}

// Contains reports whether p lies inside r, boundary included.
func (r Rect) Contains(p gg.Point) bool {
	return p.X >= r.Left && p.X <= r.Right && p.Y >= r.Top && p.Y <= r.Bottom
}

func (r Rect) Width() float64  { return r.Right - r.Left }
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// Union returns the smallest box covering both.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		Left:   math.Min(r.Left, o.Left),
		Top:    math.Min(r.Top, o.Top),
		Right:  math.Max(r.Right, o.Right),
		Bottom: math.Max(r.Bottom, o.Bottom),
	}
}

// ExtractPoints collects, for every series under root, the anchor points of
// its polyline group. Series without a polyline group map to an empty list.
func ExtractPoints(root *dom.Element, sel Selectors) map[SeriesID][]gg.Point {
	out := make(map[SeriesID][]gg.Point)
	seen := make(map[SeriesID]*Series)
	for _, el := range root.QueryIDPrefix(sel.SeriesPrefix) {
		id := seriesID(el, seen)
		seen[id] = nil
		out[id] = SeriesPoints(el, sel)
	}
	return out
}

// SeriesPoints extracts the points of one series element.
func SeriesPoints(series *dom.Element, sel Selectors) []gg.Point {
	points := []gg.Point{}
	group := series.FirstIDPrefix(sel.PolylinePrefix)
	if group == nil {
		return points
	}
	for _, el := range group.QueryTags(LineTags...) {
		points = append(points, ElementPoints(el)...)
	}
	return points
}

// ElementPoints returns the anchor points of a single line, polyline or path.
func ElementPoints(el *dom.Element) []gg.Point {
	switch el.Tag {
	case "line":
		x1, _ := attrNumber(el, "x1")
		y1, _ := attrNumber(el, "y1")
		x2, _ := attrNumber(el, "x2")
		y2, _ := attrNumber(el, "y2")
		return finite(gg.Pt(x1, y1), gg.Pt(x2, y2))
	case "polyline", "polygon":
		v, _ := el.Attr("points")
		return ParsePoints(v)
	case "path":
		v, _ := el.Attr("d")
		var pts []gg.Point
		for _, cmd := range ParsePath(v) {
			pts = append(pts, cmd.Pt)
		}
		return pts
	}
	return nil
}

// attrNumber reads a numeric attribute; missing or unparsable yields NaN so
// the resulting point is dropped.
func attrNumber(el *dom.Element, name string) (float64, bool) {
	v, ok := el.Float(name)
	if !ok {
		return math.NaN(), false
	}
	return v, true
}

func finite(pts ...gg.Point) []gg.Point {
	out := pts[:0]
	for _, p := range pts {
		if isFinite(p.X) && isFinite(p.Y) {
			out = append(out, p)
		}
	}
	return out
}

func isFinite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// ParsePoints parses a points attribute: whitespace between pairs, a comma
// inside each pair. Malformed pairs are skipped.
func ParsePoints(s string) []gg.Point {
	var out []gg.Point
	for _, pair := range strings.Fields(s) {
		xs, ys, ok := strings.Cut(pair, ",")
		if !ok {
			continue
		}
		x, okx := dom.LeadingFloat(xs)
		y, oky := dom.LeadingFloat(ys)
		if !okx || !oky {
			continue
		}
		out = append(out, finite(gg.Pt(x, y))...)
	}
	return out
}

// PathOp is a path command kept by ParsePath.
type PathOp byte

const (
	MoveTo PathOp = 'M'
	LineTo PathOp = 'L'
)

// PathCommand is one absolute move-to or line-to anchor.
type PathCommand struct {
	Op PathOp
	Pt gg.Point
}

// ParsePath scans a path's d attribute for absolute M and L commands and
// returns their endpoint, one per command letter. Everything else (curves,
// arcs, relative commands, implicit repeats) is ignored; a command without
// two numbers after it is skipped.
func ParsePath(d string) []PathCommand {
	var out []PathCommand
	for i := 0; i < len(d); i++ {
		op := d[i]
		if op != 'M' && op != 'L' {
			continue
		}
		x, next, ok := scanNumber(d, i+1)
		if !ok {
			continue
		}
		y, end, ok := scanNumber(d, next)
		if !ok {
			continue
		}
		out = append(out, PathCommand{Op: PathOp(op), Pt: gg.Pt(x, y)})
		i = end - 1
	}
	return out
}

// scanNumber skips separators (whitespace, one comma) from pos and reads a
// number made of digits, '.', and '-'.
func scanNumber(s string, pos int) (float64, int, bool) {
	comma := false
	for pos < len(s) {
		c := s[pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			pos++
			continue
		}
		if c == ',' && !comma {
			comma = true
			pos++
			continue
		}
		break
	}
	start := pos
	for pos < len(s) && (s[pos] == '-' || s[pos] == '.' || (s[pos] >= '0' && s[pos] <= '9')) {
		pos++
	}
	if start == pos {
		return 0, pos, false
	}
	v, ok := dom.LeadingFloat(s[start:pos])
	if !ok || !isFinite(v) {
		return 0, pos, false
	}
	return v, pos, true
}
