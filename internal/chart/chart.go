// Package chart indexes a composite line chart once at startup: the ordered
// series, the element handles each series owns, and the polyline geometry
// used for proximity tests.
package chart

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dgnsrekt/chart_hover/internal/dom"
	"github.com/gogpu/gg"
)

// ErrRootNotFound is returned by Index while the chart root is not present.
var ErrRootNotFound = errors.New("chart root not found")

// SeriesID identifies a series by its element id.
type SeriesID string

// Property is a style property tracked by the hover engine.
type Property string

const (
	FillOpacity Property = "fill-opacity"
	Stroke      Property = "stroke"
	FontSize    Property = "font-size"
	Fill        Property = "fill"
)

// Selectors describe the markup contract.
type Selectors struct {
	RootID         string
	SeriesPrefix   string
	MarkersPrefix  string
	PolylinePrefix string
}

// DefaultSelectors returns the ids the chart generator emits.
func DefaultSelectors() Selectors {
	return Selectors{
		RootID:         "composite-chart",
		SeriesPrefix:   "line-graph-",
		MarkersPrefix:  "markers-",
		PolylinePrefix: "polyline-",
	}
}

var (
	// MarkerTags are the shapes recognized inside a markers group.
	MarkerTags = []string{"circle", "rect", "ellipse", "polygon", "path"}
	// LineTags are the shapes recognized inside a polyline group.
	LineTags = []string{"path", "line", "polyline"}
)

// Kind is the role an element plays within its series.
type Kind int

const (
	KindLabel Kind = iota
	KindMarker
	KindLine
)

func (k Kind) String() string {
	switch k {
	case KindLabel:
		return "label"
	case KindMarker:
		return "marker"
	case KindLine:
		return "line"
	}
	return "unknown"
}

// ElementRef is a stable handle to one element of a series. The browser
// bridge tags live elements with the same string form.
type ElementRef struct {
	Series SeriesID
	Kind   Kind
	N      int
}

func (r ElementRef) String() string {
	if r.Kind == KindLabel {
		return string(r.Series) + "/label"
	}
	return string(r.Series) + "/" + r.Kind.String() + "/" + strconv.Itoa(r.N)
}

// ParseRef is the inverse of ElementRef.String.
func ParseRef(s string) (ElementRef, error) {
	if id, ok := strings.CutSuffix(s, "/label"); ok && id != "" {
		return ElementRef{Series: SeriesID(id), Kind: KindLabel}, nil
	}
	i := strings.LastIndex(s, "/")
	if i <= 0 {
		return ElementRef{}, fmt.Errorf("chart: malformed element ref %q", s)
	}
	n, err := strconv.Atoi(s[i+1:])
	if err != nil || n < 0 {
		return ElementRef{}, fmt.Errorf("chart: malformed element ref %q", s)
	}
	rest := s[:i]
	j := strings.LastIndex(rest, "/")
	if j <= 0 {
		return ElementRef{}, fmt.Errorf("chart: malformed element ref %q", s)
	}
	ref := ElementRef{Series: SeriesID(rest[:j]), N: n}
	switch rest[j+1:] {
	case "marker":
		ref.Kind = KindMarker
	case "line":
		ref.Kind = KindLine
	default:
		return ElementRef{}, fmt.Errorf("chart: unknown element kind in ref %q", s)
	}
	return ref, nil
}

// Series is one line graph of the composite chart.
type Series struct {
	ID    SeriesID
	Index int

	Element *dom.Element
	Label   *dom.Element
	Markers []*dom.Element
	Lines   []*dom.Element

	// Points are the polyline anchor points in chart-local coordinates.
	Points []gg.Point
}

// LabelRef returns the handle of the label text.
func (s *Series) LabelRef() ElementRef {
	return ElementRef{Series: s.ID, Kind: KindLabel}
}

// MarkerRef returns the handle of the i-th marker shape.
func (s *Series) MarkerRef(i int) ElementRef {
	return ElementRef{Series: s.ID, Kind: KindMarker, N: i}
}

// LineRef returns the handle of the i-th line shape.
func (s *Series) LineRef(i int) ElementRef {
	return ElementRef{Series: s.ID, Kind: KindLine, N: i}
}

// Chart is the immutable index built at initialization.
type Chart struct {
	Root      *dom.Element
	Series    []*Series
	Selectors Selectors

	byID map[SeriesID]*Series
}

// Index locates the chart root in doc and builds the series index together
// with the extracted geometry. It returns ErrRootNotFound when the root is
// absent so callers can retry.
func Index(doc *dom.Document, sel Selectors) (*Chart, error) {
	root := doc.ByID(sel.RootID)
	if root == nil {
		return nil, fmt.Errorf("%w: #%s", ErrRootNotFound, sel.RootID)
	}

	c := &Chart{Root: root, Selectors: sel, byID: make(map[SeriesID]*Series)}
	for i, el := range root.QueryIDPrefix(sel.SeriesPrefix) {
		s := &Series{
			ID:      seriesID(el, c.byID),
			Index:   i,
			Element: el,
			Label:   el.FirstTag("text"),
			Points:  SeriesPoints(el, sel),
		}
		if g := el.FirstIDPrefix(sel.MarkersPrefix); g != nil {
			s.Markers = g.QueryTags(MarkerTags...)
		}
		if g := el.FirstIDPrefix(sel.PolylinePrefix); g != nil {
			s.Lines = g.QueryTags(LineTags...)
		}
		c.Series = append(c.Series, s)
		c.byID[s.ID] = s
	}
	return c, nil
}

// seriesID keeps ids unique when markup repeats one.
func seriesID(el *dom.Element, seen map[SeriesID]*Series) SeriesID {
	id := SeriesID(el.ID())
	if _, dup := seen[id]; !dup {
		return id
	}
	for n := 2; ; n++ {
		alt := SeriesID(fmt.Sprintf("%s#%d", id, n))
		if _, dup := seen[alt]; !dup {
			return alt
		}
	}
}

// Lookup finds a series by id.
func (c *Chart) Lookup(id SeriesID) (*Series, bool) {
	s, ok := c.byID[id]
	return s, ok
}

// Element resolves a handle to its element.
func (c *Chart) Element(ref ElementRef) (*dom.Element, bool) {
	s, ok := c.byID[ref.Series]
	if !ok {
		return nil, false
	}
	switch ref.Kind {
	case KindLabel:
		return s.Label, s.Label != nil
	case KindMarker:
		if ref.N >= 0 && ref.N < len(s.Markers) {
			return s.Markers[ref.N], true
		}
	case KindLine:
		if ref.N >= 0 && ref.N < len(s.Lines) {
			return s.Lines[ref.N], true
		}
	}
	return nil, false
}

// Refs lists every element handle of the chart in series order.
func (c *Chart) Refs() []ElementRef {
	var out []ElementRef
	for _, s := range c.Series {
		if s.Label != nil {
			out = append(out, s.LabelRef())
		}
		for i := range s.Markers {
			out = append(out, s.MarkerRef(i))
		}
		for i := range s.Lines {
			out = append(out, s.LineRef(i))
		}
	}
	return out
}
