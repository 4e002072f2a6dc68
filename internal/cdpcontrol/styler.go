package cdpcontrol

import (
	"github.com/dgnsrekt/chart_hover/internal/chart"
	"github.com/dgnsrekt/chart_hover/internal/highlight"
)

// PageStyler mirrors style writes onto the parsed copy of the chart and
// queues them for the page. Reads answer from the mirror, with computed
// values taken from what the page reported at install time.
type PageStyler struct {
	chart    *chart.Chart
	computed map[chart.ElementRef]map[chart.Property]string
	pending  []styleWrite
}

var _ highlight.Styler = (*PageStyler)(nil)

func newPageStyler(c *chart.Chart, styles map[string]elementStyles) *PageStyler {
	s := &PageStyler{chart: c, computed: make(map[chart.ElementRef]map[chart.Property]string)}
	for raw, rec := range styles {
		ref, err := chart.ParseRef(raw)
		if err != nil {
			continue
		}
		m := make(map[chart.Property]string, len(rec.Computed))
		for p, v := range rec.Computed {
			m[chart.Property(p)] = v
		}
		s.computed[ref] = m
	}
	return s
}

func (s *PageStyler) InlineStyle(ref chart.ElementRef, prop chart.Property) (string, bool) {
	el, ok := s.chart.Element(ref)
	if !ok {
		return "", false
	}
	return el.InlineStyle(string(prop)), true
}

// ComputedStyle prefers a pending inline value, then the page-reported
// computed value, then the emulated cascade over the mirror.
func (s *PageStyler) ComputedStyle(ref chart.ElementRef, prop chart.Property) string {
	el, ok := s.chart.Element(ref)
	if !ok {
		return ""
	}
	if v := el.InlineStyle(string(prop)); v != "" {
		return v
	}
	if v := s.computed[ref][prop]; v != "" {
		return v
	}
	return el.ComputedStyle(string(prop))
}

func (s *PageStyler) SetStyle(ref chart.ElementRef, prop chart.Property, value string) {
	el, ok := s.chart.Element(ref)
	if !ok {
		return
	}
	el.SetInlineStyle(string(prop), value)
	s.pending = append(s.pending, styleWrite{ref.String(), string(prop), value})
}

// Pending reports how many writes await the next flush.
func (s *PageStyler) Pending() int { return len(s.pending) }

// take hands over the queued writes.
func (s *PageStyler) take() []styleWrite {
	w := s.pending
	s.pending = nil
	return w
}
