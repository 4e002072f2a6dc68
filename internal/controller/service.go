// Package controller runs the hover engine for one chart on behalf of a
// host. Every pointer event, API call and retry is handled on a single
// goroutine, so transitions are applied strictly in delivery order.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgnsrekt/chart_hover/internal/cdpcontrol"
	"github.com/dgnsrekt/chart_hover/internal/chart"
	"github.com/dgnsrekt/chart_hover/internal/highlight"
	"github.com/dgnsrekt/chart_hover/internal/journal"
	"github.com/dgnsrekt/chart_hover/internal/relay"
	"github.com/dgnsrekt/chart_hover/internal/snapshot"
	"github.com/gogpu/gg"
)

// InitResult is the outcome of one initialization attempt.
type InitResult int

const (
	InitPending InitResult = iota
	InitReady
)

func (r InitResult) String() string {
	if r == InitReady {
		return "ready"
	}
	return "pending"
}

// Options configure a Service.
type Options struct {
	Highlight     highlight.Config
	RetryInterval time.Duration
	// Source labels previews, e.g. the file or page URL.
	Source string
	Logger *slog.Logger
	// Journal, when set, receives every state change.
	Journal Journal
}

// Journal records transitions. *journal.Writer satisfies it.
type Journal interface {
	Write(e journal.Entry) error
}

// StateInfo is the externally visible hover state.
type StateInfo struct {
	Ready              bool           `json:"ready"`
	State              string         `json:"state"`
	PointerInsideChart bool           `json:"pointer_inside_chart"`
	Active             chart.SeriesID `json:"active,omitempty"`
	Pointer            *gg.Point      `json:"pointer,omitempty"`
	SeriesCount        int            `json:"series_count"`
	Baselines          int            `json:"baselines"`
}

// SeriesInfo summarizes one indexed series.
type SeriesInfo struct {
	ID      chart.SeriesID `json:"id"`
	Index   int            `json:"index"`
	Label   string         `json:"label,omitempty"`
	Markers int            `json:"markers"`
	Lines   int            `json:"lines"`
	Points  []gg.Point     `json:"points"`
}

// HitResult is a dry-run proximity check.
type HitResult struct {
	Found  bool             `json:"found"`
	Series chart.SeriesID   `json:"series,omitempty"`
	Reason highlight.Reason `json:"reason,omitempty"`
}

type job func(ctx context.Context)

// Service owns the controller for one chart.
type Service struct {
	host   Host
	opts   Options
	broker *relay.Broker
	snaps  *snapshot.Store
	logger *slog.Logger

	jobs    chan job
	stopped chan struct{}

	// Owned by the Run goroutine.
	ctrl    *highlight.Controller
	styler  highlight.Styler
	pointer *gg.Point
}

// NewService builds a service. broker and snaps may be nil.
func NewService(host Host, broker *relay.Broker, snaps *snapshot.Store, opts Options) *Service {
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 500 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		host:    host,
		opts:    opts,
		broker:  broker,
		snaps:   snaps,
		logger:  logger,
		jobs:    make(chan job),
		stopped: make(chan struct{}),
	}
}

// Run initializes the chart, retrying while it is absent, and then
// processes events until ctx ends or the host's event stream closes.
func (s *Service) Run(ctx context.Context) error {
	defer close(s.stopped)

	retry := time.NewTimer(0)
	defer retry.Stop()
	retryC := retry.C

	var events <-chan highlight.PointerEvent
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-retryC:
			if s.initialize(ctx) == InitReady {
				retryC = nil
				events = s.host.Events()
				continue
			}
			retry.Reset(s.opts.RetryInterval)
		case fn := <-s.jobs:
			fn(ctx)
		case ev, ok := <-events:
			if !ok {
				return cdpcontrol.NewError(cdpcontrol.CodeCDPUnavailable, "pointer bridge closed", nil)
			}
			s.handle(ctx, ev)
		}
	}
}

// initialize makes one attempt. Any failure is pending; only ctx bounds
// the retries.
func (s *Service) initialize(ctx context.Context) InitResult {
	c, styler, err := s.host.Init(ctx)
	if err != nil {
		if errors.Is(err, chart.ErrRootNotFound) {
			s.logger.Debug("chart not rendered yet", "retry_in", s.opts.RetryInterval)
		} else {
			s.logger.Warn("chart initialization failed", "error", err, "retry_in", s.opts.RetryInterval)
		}
		return InitPending
	}

	s.ctrl = highlight.NewController(c, styler, s.opts.Highlight, s.logger)
	s.styler = styler
	s.logger.Info("chart ready", "series", len(c.Series))
	s.publish(relay.FeedReady, map[string]any{"series": len(c.Series)})
	if s.opts.Journal != nil {
		if err := s.opts.Journal.Write(journal.Entry{Source: s.opts.Source, Event: relay.FeedReady}); err != nil {
			s.logger.Debug("journal write failed", "error", err)
		}
	}
	return InitReady
}

// handle feeds one event to the controller and remembers where the pointer
// is in chart-local space.
func (s *Service) handle(ctx context.Context, ev highlight.PointerEvent) highlight.Transition {
	tr := s.ctrl.Handle(ev)
	if tr.To != highlight.StateIdle && ev.Frame != nil {
		if local, ok := ev.Frame.ScreenToLocal(ev.Point); ok {
			s.pointer = &local
		}
	}
	s.apply(ctx, tr)
	return tr
}

// apply publishes a transition and flushes its style writes to the host.
func (s *Service) apply(ctx context.Context, tr highlight.Transition) {
	if tr.To == highlight.StateIdle {
		s.pointer = nil
	}
	if tr.Changed() {
		s.publish(relay.FeedTransition, tr)
		s.record(tr)
	}
	if tr.Writes == 0 {
		return
	}
	if err := s.host.Commit(ctx); err != nil {
		s.logger.Warn("style commit failed", "error", err, "writes", tr.Writes)
	}
}

func (s *Service) record(tr highlight.Transition) {
	if s.opts.Journal == nil {
		return
	}
	err := s.opts.Journal.Write(journal.Entry{
		Source:   s.opts.Source,
		Event:    relay.FeedTransition,
		From:     tr.From.String(),
		To:       tr.To.String(),
		Previous: string(tr.Previous),
		Active:   string(tr.Active),
		Reason:   string(tr.Reason),
		X:        tr.Point.X,
		Y:        tr.Point.Y,
		Writes:   tr.Writes,
	})
	if err != nil {
		s.logger.Debug("journal write failed", "error", err)
	}
}

func (s *Service) publish(feed string, v any) {
	if s.broker == nil {
		return
	}
	if err := s.broker.PublishJSON(feed, v); err != nil {
		s.logger.Warn("relay publish failed", "feed", feed, "error", err)
	}
}

// do runs fn on the event goroutine and waits for it. ctx only bounds the
// hand-off: once Run has taken the job it runs to completion, and do waits
// for it so fn's results are never read while it is still writing them.
func (s *Service) do(ctx context.Context, fn func(ctx context.Context)) error {
	done := make(chan struct{})
	wrapped := func(runCtx context.Context) {
		defer close(done)
		fn(runCtx)
	}
	select {
	case s.jobs <- wrapped:
	case <-s.stopped:
		return cdpcontrol.NewError(cdpcontrol.CodeCDPUnavailable, "hover service stopped", nil)
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}

// doReady is do for operations that need an initialized chart.
func (s *Service) doReady(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	if qerr := s.do(ctx, func(runCtx context.Context) {
		if s.ctrl == nil {
			err = &cdpcontrol.CodedError{Code: cdpcontrol.CodeChartNotFound, Message: "chart is not initialized yet"}
			return
		}
		err = fn(runCtx)
	}); qerr != nil {
		return qerr
	}
	return err
}

func (s *Service) requireNonEmpty(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return &cdpcontrol.CodedError{Code: cdpcontrol.CodeValidation, Message: fieldName + " is required"}
	}
	return nil
}

// State reports readiness and the current hover state.
func (s *Service) State(ctx context.Context) (StateInfo, error) {
	var out StateInfo
	err := s.do(ctx, func(context.Context) {
		if s.ctrl == nil {
			out = StateInfo{State: highlight.StateIdle.String()}
			return
		}
		st := s.ctrl.State()
		out = StateInfo{
			Ready:              true,
			State:              st.State().String(),
			PointerInsideChart: st.PointerInsideChart,
			SeriesCount:        len(s.ctrl.Chart().Series),
			Baselines:          s.ctrl.Store().Len(),
		}
		if st.Active != nil {
			out.Active = st.Active.ID
		}
		if s.pointer != nil {
			p := *s.pointer
			out.Pointer = &p
		}
	})
	return out, err
}

// ListSeries returns every series in markup order.
func (s *Service) ListSeries(ctx context.Context) ([]SeriesInfo, error) {
	var out []SeriesInfo
	err := s.doReady(ctx, func(context.Context) error {
		for _, series := range s.ctrl.Chart().Series {
			out = append(out, seriesInfo(series))
		}
		return nil
	})
	return out, err
}

// GetSeries returns one series by id.
func (s *Service) GetSeries(ctx context.Context, id string) (SeriesInfo, error) {
	if err := s.requireNonEmpty(id, "series_id"); err != nil {
		return SeriesInfo{}, err
	}
	var out SeriesInfo
	err := s.doReady(ctx, func(context.Context) error {
		series, ok := s.ctrl.Chart().Lookup(chart.SeriesID(strings.TrimSpace(id)))
		if !ok {
			return &cdpcontrol.CodedError{Code: cdpcontrol.CodeChartNotFound, Message: fmt.Sprintf("series %q not found", id)}
		}
		out = seriesInfo(series)
		return nil
	})
	return out, err
}

func seriesInfo(series *chart.Series) SeriesInfo {
	info := SeriesInfo{
		ID:      series.ID,
		Index:   series.Index,
		Markers: len(series.Markers),
		Lines:   len(series.Lines),
		Points:  series.Points,
	}
	if series.Label != nil {
		info.Label = strings.TrimSpace(series.Label.Text())
	}
	return info
}

// MovePointer injects a pointer position in screen space, as if the bridge
// had delivered it.
func (s *Service) MovePointer(ctx context.Context, x, y float64) (highlight.Transition, error) {
	var out highlight.Transition
	err := s.doReady(ctx, func(runCtx context.Context) error {
		p := gg.Pt(x, y)
		f, err := s.host.Frame(runCtx, p)
		if err != nil {
			return err
		}
		out = s.handle(runCtx, highlight.PointerEvent{Point: p, Frame: f})
		return nil
	})
	return out, err
}

// HitTest runs the proximity predicates at a position without changing any
// state.
func (s *Service) HitTest(ctx context.Context, x, y float64) (HitResult, error) {
	var out HitResult
	err := s.doReady(ctx, func(runCtx context.Context) error {
		p := gg.Pt(x, y)
		f, err := s.host.Frame(runCtx, p)
		if err != nil {
			return err
		}
		if bounds, ok := f.ChartBounds(); !ok || !bounds.Contains(p) {
			return nil
		}
		hit, found := s.ctrl.HitTest(f, p)
		if found {
			out = HitResult{Found: true, Series: hit.Series.ID, Reason: hit.Reason}
		}
		return nil
	})
	return out, err
}

// Leave forces the pointer out of the chart and restores every baseline.
func (s *Service) Leave(ctx context.Context) (highlight.Transition, error) {
	var out highlight.Transition
	err := s.doReady(ctx, func(runCtx context.Context) error {
		out = s.handle(runCtx, highlight.PointerEvent{Leave: true})
		return nil
	})
	return out, err
}

// Baselines lists the captured original styles in capture order.
func (s *Service) Baselines(ctx context.Context) ([]highlight.Baseline, error) {
	var out []highlight.Baseline
	err := s.doReady(ctx, func(context.Context) error {
		out = s.ctrl.Store().Baselines()
		return nil
	})
	return out, err
}
