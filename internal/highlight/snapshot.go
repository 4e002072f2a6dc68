package highlight

import (
	"strconv"

	"github.com/dgnsrekt/chart_hover/internal/chart"
	"github.com/dgnsrekt/chart_hover/internal/dom"
)

// MarkerStyle is the baseline of a marker shape.
type MarkerStyle struct {
	FillOpacity string `json:"fill_opacity"`
}

// LineStyle is the baseline of a line shape.
type LineStyle struct {
	Stroke string `json:"stroke"`
}

// LabelStyle is the baseline of a series label.
type LabelStyle struct {
	FontSize string `json:"font_size"`
	Fill     string `json:"fill"`
}

// Baseline is one captured element, as exposed to callers.
type Baseline struct {
	Ref    string                    `json:"ref"`
	Kind   string                    `json:"kind"`
	Values map[chart.Property]string `json:"values"`
}

// Store captures each element's effective style the first time the engine
// touches it and can put it back. Entries are never replaced or removed.
type Store struct {
	styler Styler
	cfg    Config

	markers map[chart.ElementRef]MarkerStyle
	lines   map[chart.ElementRef]LineStyle
	labels  map[chart.ElementRef]LabelStyle
	order   []chart.ElementRef
}

// NewStore returns an empty store writing through styler.
func NewStore(styler Styler, cfg Config) *Store {
	return &Store{
		styler:  styler,
		cfg:     cfg,
		markers: make(map[chart.ElementRef]MarkerStyle),
		lines:   make(map[chart.ElementRef]LineStyle),
		labels:  make(map[chart.ElementRef]LabelStyle),
	}
}

// effective is the inline value when set, else the computed one.
func (st *Store) effective(ref chart.ElementRef, prop chart.Property) (string, bool) {
	v, ok := st.styler.InlineStyle(ref, prop)
	if !ok {
		return "", false
	}
	if v != "" {
		return v, true
	}
	return st.styler.ComputedStyle(ref, prop), true
}

// Capture records every not-yet-seen element of s.
func (st *Store) Capture(s *chart.Series) {
	if s.Label != nil {
		ref := s.LabelRef()
		if _, seen := st.labels[ref]; !seen {
			size, ok := st.effective(ref, chart.FontSize)
			if ok {
				fill, _ := st.effective(ref, chart.Fill)
				st.labels[ref] = LabelStyle{FontSize: size, Fill: fill}
				st.order = append(st.order, ref)
			}
		}
	}
	for i := range s.Markers {
		ref := s.MarkerRef(i)
		if _, seen := st.markers[ref]; seen {
			continue
		}
		if v, ok := st.effective(ref, chart.FillOpacity); ok {
			st.markers[ref] = MarkerStyle{FillOpacity: v}
			st.order = append(st.order, ref)
		}
	}
	for i := range s.Lines {
		ref := s.LineRef(i)
		if _, seen := st.lines[ref]; seen {
			continue
		}
		if v, ok := st.effective(ref, chart.Stroke); ok {
			st.lines[ref] = LineStyle{Stroke: v}
			st.order = append(st.order, ref)
		}
	}
}

// ApplyRest dims s: markers hidden, lines grey, label back to baseline.
func (st *Store) ApplyRest(s *chart.Series) {
	st.Capture(s)
	for i := range s.Markers {
		st.styler.SetStyle(s.MarkerRef(i), chart.FillOpacity, st.cfg.RestFillOpacity)
	}
	for i := range s.Lines {
		st.styler.SetStyle(s.LineRef(i), chart.Stroke, st.cfg.RestStroke)
	}
	if s.Label != nil {
		ref := s.LabelRef()
		snap := st.labels[ref]
		st.styler.SetStyle(ref, chart.FontSize, snap.FontSize)
		st.styler.SetStyle(ref, chart.Fill, snap.Fill)
	}
}

// ApplyActive emphasizes s: label scaled and black, markers and lines back
// to baseline.
func (st *Store) ApplyActive(s *chart.Series) {
	st.Capture(s)
	if s.Label != nil {
		ref := s.LabelRef()
		snap := st.labels[ref]
		size, ok := dom.LeadingFloat(snap.FontSize)
		if !ok || size == 0 {
			size, ok = dom.LeadingFloat(st.styler.ComputedStyle(ref, chart.FontSize))
		}
		if !ok || size == 0 {
			size = st.cfg.DefaultFontSize
		}
		st.styler.SetStyle(ref, chart.FontSize, formatPx(size*st.cfg.ActiveScale))
		st.styler.SetStyle(ref, chart.Fill, st.cfg.ActiveFill)
	}
	for i := range s.Markers {
		ref := s.MarkerRef(i)
		st.styler.SetStyle(ref, chart.FillOpacity, st.markers[ref].FillOpacity)
	}
	for i := range s.Lines {
		ref := s.LineRef(i)
		st.styler.SetStyle(ref, chart.Stroke, st.lines[ref].Stroke)
	}
}

// RevertAll writes every captured baseline back.
func (st *Store) RevertAll() {
	for _, ref := range st.order {
		switch ref.Kind {
		case chart.KindLabel:
			snap := st.labels[ref]
			st.styler.SetStyle(ref, chart.FontSize, snap.FontSize)
			st.styler.SetStyle(ref, chart.Fill, snap.Fill)
		case chart.KindMarker:
			st.styler.SetStyle(ref, chart.FillOpacity, st.markers[ref].FillOpacity)
		case chart.KindLine:
			st.styler.SetStyle(ref, chart.Stroke, st.lines[ref].Stroke)
		}
	}
}

// Len reports how many elements have been captured.
func (st *Store) Len() int { return len(st.order) }

// Label returns the captured baseline of a label.
func (st *Store) Label(ref chart.ElementRef) (LabelStyle, bool) {
	v, ok := st.labels[ref]
	return v, ok
}

// Marker returns the captured baseline of a marker.
func (st *Store) Marker(ref chart.ElementRef) (MarkerStyle, bool) {
	v, ok := st.markers[ref]
	return v, ok
}

// Line returns the captured baseline of a line.
func (st *Store) Line(ref chart.ElementRef) (LineStyle, bool) {
	v, ok := st.lines[ref]
	return v, ok
}

// Baselines copies the table in capture order.
func (st *Store) Baselines() []Baseline {
	out := make([]Baseline, 0, len(st.order))
	for _, ref := range st.order {
		b := Baseline{Ref: ref.String(), Kind: ref.Kind.String(), Values: map[chart.Property]string{}}
		switch ref.Kind {
		case chart.KindLabel:
			b.Values[chart.FontSize] = st.labels[ref].FontSize
			b.Values[chart.Fill] = st.labels[ref].Fill
		case chart.KindMarker:
			b.Values[chart.FillOpacity] = st.markers[ref].FillOpacity
		case chart.KindLine:
			b.Values[chart.Stroke] = st.lines[ref].Stroke
		}
		out = append(out, b)
	}
	return out
}

func formatPx(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}
