package highlight

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/dgnsrekt/chart_hover/internal/chart"
	"github.com/gogpu/gg"
)

func effectiveSnapshot(c *chart.Chart, f *fakeStyler) map[chart.ElementRef]map[chart.Property]string {
	out := make(map[chart.ElementRef]map[chart.Property]string)
	for _, ref := range c.Refs() {
		out[ref] = make(map[chart.Property]string)
		for _, p := range trackedProps {
			out[ref][p] = f.effective(ref, p)
		}
	}
	return out
}

func assertRest(t *testing.T, f *fakeStyler, s *chart.Series) {
	t.Helper()
	for i := range s.Markers {
		if got := f.effective(s.MarkerRef(i), chart.FillOpacity); got != "0" {
			t.Fatalf("%s marker %d fill-opacity = %q; want 0", s.ID, i, got)
		}
	}
	for i := range s.Lines {
		if got := f.effective(s.LineRef(i), chart.Stroke); got != "#4d4d4d" {
			t.Fatalf("%s line %d stroke = %q; want #4d4d4d", s.ID, i, got)
		}
	}
}

func TestControllerTransitions(t *testing.T) {
	c := mustChart(t, twoSeriesMarkup)
	styler := newFakeStyler(c)
	ctrl := NewController(c, styler, DefaultConfig(), nil)
	frame := identityFrame()
	a, _ := c.Lookup("line-graph-a")
	b, _ := c.Lookup("line-graph-b")
	before := effectiveSnapshot(c, styler)

	tr := ctrl.Move(frame, gg.Pt(500, 500))
	if tr.To != StateIdle || tr.Writes != 0 {
		t.Fatalf("outside move = %+v; want idle with no writes", tr)
	}

	tr = ctrl.Move(frame, gg.Pt(10, 10))
	if tr.From != StateIdle || tr.To != StateBrowsing {
		t.Fatalf("enter = %s -> %s; want idle -> browsing", tr.From, tr.To)
	}
	if tr.Writes != 9 {
		t.Fatalf("enter writes = %d; want 9", tr.Writes)
	}
	assertRest(t, styler, a)
	assertRest(t, styler, b)

	tr = ctrl.Move(frame, gg.Pt(96, 110))
	if tr.To != StateFocused || tr.Active != a.ID || tr.Reason != ReasonText {
		t.Fatalf("focus = %+v; want focused on %s by text", tr, a.ID)
	}
	if got := styler.effective(a.LabelRef(), chart.FontSize); got != "18px" {
		t.Fatalf("active label font-size = %q; want 18px", got)
	}
	assertRest(t, styler, b)

	tr = ctrl.Move(frame, gg.Pt(96, 110))
	if tr.Writes != 0 || tr.Changed() {
		t.Fatalf("re-delivery = %+v; want no writes and no change", tr)
	}

	styler.writes = nil
	tr = ctrl.Move(frame, gg.Pt(332, 30))
	if tr.Previous != a.ID || tr.Active != b.ID {
		t.Fatalf("switch = %+v; want %s -> %s", tr, a.ID, b.ID)
	}
	lastA, firstB := -1, len(styler.writes)
	for i, w := range styler.writes {
		switch w.ref.Series {
		case a.ID:
			lastA = i
		case b.ID:
			if i < firstB {
				firstB = i
			}
		}
	}
	if lastA < 0 || lastA > firstB {
		t.Fatalf("writes out of order: last %s write %d, first %s write %d", a.ID, lastA, b.ID, firstB)
	}
	assertRest(t, styler, a)
	if got := styler.effective(a.LabelRef(), chart.FontSize); got != "12px" {
		t.Fatalf("previous label font-size = %q; want 12px", got)
	}
	if got := styler.effective(b.LabelRef(), chart.FontSize); got != "24px" {
		t.Fatalf("active label font-size = %q; want 24px", got)
	}

	tr = ctrl.Move(frame, gg.Pt(10, 10))
	if tr.To != StateBrowsing || tr.Active != "" {
		t.Fatalf("release = %+v; want browsing", tr)
	}
	assertRest(t, styler, b)

	tr = ctrl.Move(frame, gg.Pt(-1, 10))
	if tr.To != StateIdle {
		t.Fatalf("leave = %s; want idle", tr.To)
	}
	after := effectiveSnapshot(c, styler)
	for ref, props := range before {
		for p, v := range props {
			if after[ref][p] != v {
				t.Fatalf("%s %s = %q after round trip; want %q", ref, p, after[ref][p], v)
			}
		}
	}
}

func TestControllerLeaveWhileFocused(t *testing.T) {
	c := mustChart(t, twoSeriesMarkup)
	styler := newFakeStyler(c)
	ctrl := NewController(c, styler, DefaultConfig(), nil)
	before := effectiveSnapshot(c, styler)

	ctrl.Move(identityFrame(), gg.Pt(96, 110))
	if st := ctrl.State(); st.State() != StateFocused || st.Active == nil {
		t.Fatalf("state = %+v; want focused", st)
	}

	tr := ctrl.Leave()
	if tr.From != StateFocused || tr.To != StateIdle || tr.Previous != "line-graph-a" {
		t.Fatalf("Leave() = %+v", tr)
	}
	st := ctrl.State()
	if st.PointerInsideChart || st.Active != nil {
		t.Fatalf("state after leave = %+v", st)
	}
	after := effectiveSnapshot(c, styler)
	for ref, props := range before {
		for p, v := range props {
			if after[ref][p] != v {
				t.Fatalf("%s %s = %q; want %q", ref, p, after[ref][p], v)
			}
		}
	}

	if tr := ctrl.Leave(); tr.Writes != 0 {
		t.Fatalf("second Leave() wrote %d styles", tr.Writes)
	}
}

func TestControllerEnterAndFocusSameEvent(t *testing.T) {
	c := mustChart(t, twoSeriesMarkup)
	styler := newFakeStyler(c)
	ctrl := NewController(c, styler, DefaultConfig(), nil)

	tr := ctrl.Move(identityFrame(), gg.Pt(205, 205))
	if tr.From != StateIdle || tr.To != StateFocused || tr.Reason != ReasonPolyline {
		t.Fatalf("Move() = %+v; want idle -> focused by polyline", tr)
	}
	b, _ := c.Lookup("line-graph-b")
	assertRest(t, styler, b)
}

func TestControllerLoggingDisabled(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c := mustChart(t, twoSeriesMarkup)
	cfg := DefaultConfig()
	cfg.LoggingEnabled = false

	ctrl := NewController(c, newFakeStyler(c), cfg, logger)
	ctrl.Move(identityFrame(), gg.Pt(96, 110))
	if buf.Len() != 0 {
		t.Fatalf("expected no diagnostics, got %q", buf.String())
	}

	cfg.LoggingEnabled = true
	ctrl = NewController(c, newFakeStyler(c), cfg, logger)
	ctrl.Move(identityFrame(), gg.Pt(96, 110))
	if buf.Len() == 0 {
		t.Fatal("expected diagnostics with logging enabled")
	}
}

func TestControllerHandle(t *testing.T) {
	c := mustChart(t, twoSeriesMarkup)
	ctrl := NewController(c, newFakeStyler(c), DefaultConfig(), nil)

	tr := ctrl.Handle(PointerEvent{Point: gg.Pt(96, 110), Frame: identityFrame()})
	if tr.To != StateFocused {
		t.Fatalf("Handle(move) = %+v; want focused", tr)
	}
	tr = ctrl.Handle(PointerEvent{Leave: true})
	if tr.To != StateIdle || tr.Previous != "line-graph-a" {
		t.Fatalf("Handle(leave) = %+v; want idle", tr)
	}
}
