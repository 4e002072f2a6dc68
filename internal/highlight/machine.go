package highlight

import (
	"log/slog"

	"github.com/dgnsrekt/chart_hover/internal/chart"
	"github.com/gogpu/gg"
)

// State is the coarse hover state.
type State int

const (
	StateIdle State = iota
	StateBrowsing
	StateFocused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBrowsing:
		return "browsing"
	case StateFocused:
		return "focused"
	}
	return "unknown"
}

// HoverState is the mutable part of a Controller. Active is nil whenever
// PointerInsideChart is false.
type HoverState struct {
	PointerInsideChart bool
	Active             *chart.Series
}

// State derives the coarse state.
func (h HoverState) State() State {
	switch {
	case !h.PointerInsideChart:
		return StateIdle
	case h.Active == nil:
		return StateBrowsing
	default:
		return StateFocused
	}
}

// Transition describes the effect of one event.
type Transition struct {
	From     State          `json:"from"`
	To       State          `json:"to"`
	Previous chart.SeriesID `json:"previous,omitempty"`
	Active   chart.SeriesID `json:"active,omitempty"`
	Reason   Reason         `json:"reason,omitempty"`
	Point    gg.Point       `json:"point"`
	Writes   int            `json:"writes"`
}

// Changed reports whether the state or the focused series moved.
func (t Transition) Changed() bool {
	return t.From != t.To || t.Previous != t.Active
}

// MarshalText lets State appear by name in JSON and YAML.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// countingStyler counts writes so a Transition can report them.
type countingStyler struct {
	Styler
	writes int
}

func (c *countingStyler) SetStyle(ref chart.ElementRef, prop chart.Property, value string) {
	c.writes++
	c.Styler.SetStyle(ref, prop, value)
}

// Controller runs the hover state machine for one chart. It is not safe for
// concurrent use; hosts serialize events onto it.
type Controller struct {
	chart  *chart.Chart
	styler *countingStyler
	store  *Store
	cfg    Config
	logger *slog.Logger

	state HoverState
}

// NewController builds an Idle controller. No style is read or written
// until the first event inside the chart.
func NewController(c *chart.Chart, styler Styler, cfg Config, logger *slog.Logger) *Controller {
	cs := &countingStyler{Styler: styler}
	return &Controller{
		chart:  c,
		styler: cs,
		store:  NewStore(cs, cfg),
		cfg:    cfg,
		logger: engineLogger(cfg, logger),
	}
}

// Move processes one pointer position in screen space.
func (c *Controller) Move(f Frame, p gg.Point) (t Transition) {
	t = c.begin(p)
	defer c.finish(&t)

	bounds, ok := f.ChartBounds()
	if !ok || !bounds.Contains(p) {
		if c.state.PointerInsideChart {
			c.leave()
		}
		return t
	}

	if !c.state.PointerInsideChart {
		c.state.PointerInsideChart = true
		for _, s := range c.chart.Series {
			c.store.ApplyRest(s)
		}
		c.logger.Debug("highlight pointer entered chart", "x", p.X, "y", p.Y)
	}

	hit, found := HitTest(c.chart, f, p, c.cfg)
	switch {
	case found && hit.Series != c.state.Active:
		if prev := c.state.Active; prev != nil {
			c.store.ApplyRest(prev)
		}
		c.store.ApplyActive(hit.Series)
		c.state.Active = hit.Series
		t.Reason = hit.Reason
		c.logger.Debug("highlight series focused", "series", hit.Series.ID, "reason", hit.Reason)
	case found:
		t.Reason = hit.Reason
	case c.state.Active != nil:
		c.store.ApplyRest(c.state.Active)
		c.logger.Debug("highlight series released", "series", c.state.Active.ID)
		c.state.Active = nil
	}
	return t
}

// PointerEvent is one delivery from a pointer bridge. A Leave event carries
// no position; a move carries the frame observed with it.
type PointerEvent struct {
	Leave bool
	Point gg.Point
	Frame Frame
}

// Handle dispatches ev to Move or Leave.
func (c *Controller) Handle(ev PointerEvent) Transition {
	if ev.Leave || ev.Frame == nil {
		return c.Leave()
	}
	return c.Move(ev.Frame, ev.Point)
}

// Leave forces the pointer-left-chart transition.
func (c *Controller) Leave() (t Transition) {
	t = c.begin(gg.Point{})
	defer c.finish(&t)
	if c.state.PointerInsideChart {
		c.leave()
	}
	return t
}

func (c *Controller) leave() {
	c.store.RevertAll()
	c.state = HoverState{}
	c.logger.Debug("highlight pointer left chart", "restored", c.store.Len())
}

func (c *Controller) begin(p gg.Point) Transition {
	c.styler.writes = 0
	return Transition{From: c.state.State(), Previous: activeID(c.state.Active), Point: p}
}

func (c *Controller) finish(t *Transition) {
	t.To = c.state.State()
	t.Active = activeID(c.state.Active)
	t.Writes = c.styler.writes
}

func activeID(s *chart.Series) chart.SeriesID {
	if s == nil {
		return ""
	}
	return s.ID
}

// HitTest runs the proximity predicates without touching state.
func (c *Controller) HitTest(f Frame, p gg.Point) (Hit, bool) {
	return HitTest(c.chart, f, p, c.cfg)
}

// State returns a copy of the hover state.
func (c *Controller) State() HoverState { return c.state }

// Chart returns the index the controller was built over.
func (c *Controller) Chart() *chart.Chart { return c.chart }

// Store exposes the captured baselines.
func (c *Controller) Store() *Store { return c.store }

// Config returns the controller's settings.
func (c *Controller) Config() Config { return c.cfg }
