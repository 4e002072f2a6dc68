package controller

import (
	"context"

	"github.com/dgnsrekt/chart_hover/internal/chart"
	"github.com/dgnsrekt/chart_hover/internal/highlight"
	"github.com/dgnsrekt/chart_hover/internal/offline"
	"github.com/gogpu/gg"
)

// Host is where the chart lives. Init fails with an error wrapping
// chart.ErrRootNotFound while the chart has not been rendered yet.
type Host interface {
	Init(ctx context.Context) (*chart.Chart, highlight.Styler, error)
	Frame(ctx context.Context, p gg.Point) (highlight.Frame, error)
	Events() <-chan highlight.PointerEvent
	Commit(ctx context.Context) error
	Close() error
}

// StaticHost serves a parsed markup file. It never produces pointer events
// on its own; positions arrive through the service.
type StaticHost struct {
	surface *offline.Surface
	source  string
}

// NewStaticHost wraps an indexed surface. source is reported in previews.
func NewStaticHost(surface *offline.Surface, source string) *StaticHost {
	return &StaticHost{surface: surface, source: source}
}

func (h *StaticHost) Init(ctx context.Context) (*chart.Chart, highlight.Styler, error) {
	return h.surface.Chart(), h.surface, nil
}

func (h *StaticHost) Frame(ctx context.Context, p gg.Point) (highlight.Frame, error) {
	return h.surface, nil
}

func (h *StaticHost) Events() <-chan highlight.PointerEvent { return nil }

func (h *StaticHost) Commit(ctx context.Context) error { return nil }

func (h *StaticHost) Close() error { return nil }

// Surface exposes the underlying document.
func (h *StaticHost) Surface() *offline.Surface { return h.surface }

// Source names the file being served.
func (h *StaticHost) Source() string { return h.source }
