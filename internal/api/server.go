package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/dgnsrekt/chart_hover/internal/cdpcontrol"
	"github.com/dgnsrekt/chart_hover/internal/controller"
	"github.com/dgnsrekt/chart_hover/internal/highlight"
	"github.com/dgnsrekt/chart_hover/internal/relay"
	"github.com/dgnsrekt/chart_hover/internal/snapshot"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// EventsKeepAlive is the comment interval on the SSE transition feed.
const EventsKeepAlive = 15 * time.Second

type Service interface {
	State(ctx context.Context) (controller.StateInfo, error)
	ListSeries(ctx context.Context) ([]controller.SeriesInfo, error)
	GetSeries(ctx context.Context, id string) (controller.SeriesInfo, error)
	MovePointer(ctx context.Context, x, y float64) (highlight.Transition, error)
	HitTest(ctx context.Context, x, y float64) (controller.HitResult, error)
	Leave(ctx context.Context) (highlight.Transition, error)
	Baselines(ctx context.Context) ([]highlight.Baseline, error)
	CreatePreview(ctx context.Context, notes string) (snapshot.PreviewMeta, error)
	ListPreviews(ctx context.Context) ([]snapshot.PreviewMeta, error)
	GetPreview(ctx context.Context, id string) (snapshot.PreviewMeta, error)
	ReadPreviewImage(ctx context.Context, id string) ([]byte, string, error)
	DeletePreview(ctx context.Context, id string) error
}

// NewServer mounts the control API. broker may be nil, in which case the
// event feed is not served.
func NewServer(svc Service, broker *relay.Broker) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("chart_hover control API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs/events", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(eventsDocsHTML)); err != nil {
			slog.Debug("events docs response write failed", "error", err)
		}
	})
	if broker != nil {
		router.Get("/api/v1/events", relay.SSEHandler(broker, EventsKeepAlive))
	}

	registerHealthHandlers(api, svc)
	registerHoverHandlers(api, svc)
	registerPreviewHandlers(api, svc)
	router.Get("/docs", docsHandler(api.OpenAPI()))

	return router
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *cdpcontrol.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case cdpcontrol.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case cdpcontrol.CodeChartNotFound, cdpcontrol.CodeSnapshotNotFound:
			return huma.Error404NotFound(coded.Message)
		case cdpcontrol.CodeEvalTimeout:
			return huma.Error504GatewayTimeout(coded.Message)
		case cdpcontrol.CodeCDPUnavailable:
			return huma.Error502BadGateway(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return huma.Error504GatewayTimeout(err.Error())
	}
	return huma.Error500InternalServerError(err.Error())
}
