package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/chart_hover/internal/controller"
	"github.com/dgnsrekt/chart_hover/internal/highlight"
)

// transitionBody is highlight.Transition with states spelled out.
type transitionBody struct {
	From     string  `json:"from" enum:"idle,browsing,focused"`
	To       string  `json:"to" enum:"idle,browsing,focused"`
	Previous string  `json:"previous,omitempty"`
	Active   string  `json:"active,omitempty"`
	Reason   string  `json:"reason,omitempty"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Writes   int     `json:"writes" doc:"Style writes this event caused"`
	Changed  bool    `json:"changed"`
}

func toTransitionBody(tr highlight.Transition) transitionBody {
	return transitionBody{
		From:     tr.From.String(),
		To:       tr.To.String(),
		Previous: string(tr.Previous),
		Active:   string(tr.Active),
		Reason:   string(tr.Reason),
		X:        tr.Point.X,
		Y:        tr.Point.Y,
		Writes:   tr.Writes,
		Changed:  tr.Changed(),
	}
}

type pointInput struct {
	Body struct {
		X float64 `json:"x" doc:"Screen X in CSS pixels" example:"205"`
		Y float64 `json:"y" doc:"Screen Y in CSS pixels" example:"205"`
	}
}

type transitionOutput struct {
	Body transitionBody
}

func registerHealthHandlers(api huma.API, svc Service) {
	type healthOutput struct {
		Body struct {
			Status string `json:"status"`
			Ready  bool   `json:"ready"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/health", Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			st, err := svc.State(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &healthOutput{}
			out.Body.Status = "ok"
			out.Body.Ready = st.Ready
			return out, nil
		})
}

func registerHoverHandlers(api huma.API, svc Service) {
	type stateOutput struct {
		Body controller.StateInfo
	}
	huma.Register(api, huma.Operation{OperationID: "get-state", Method: http.MethodGet, Path: "/api/v1/state", Summary: "Get hover state", Tags: []string{"Hover"}},
		func(ctx context.Context, input *struct{}) (*stateOutput, error) {
			st, err := svc.State(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			return &stateOutput{Body: st}, nil
		})

	type listSeriesOutput struct {
		Body struct {
			Series []controller.SeriesInfo `json:"series"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-series", Method: http.MethodGet, Path: "/api/v1/series", Summary: "List indexed series", Tags: []string{"Chart"}},
		func(ctx context.Context, input *struct{}) (*listSeriesOutput, error) {
			series, err := svc.ListSeries(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &listSeriesOutput{}
			out.Body.Series = series
			if out.Body.Series == nil {
				out.Body.Series = []controller.SeriesInfo{}
			}
			return out, nil
		})

	type seriesIDInput struct {
		SeriesID string `path:"series_id"`
	}
	type seriesOutput struct {
		Body controller.SeriesInfo
	}
	huma.Register(api, huma.Operation{OperationID: "get-series", Method: http.MethodGet, Path: "/api/v1/series/{series_id}", Summary: "Get one series", Tags: []string{"Chart"}},
		func(ctx context.Context, input *seriesIDInput) (*seriesOutput, error) {
			series, err := svc.GetSeries(ctx, input.SeriesID)
			if err != nil {
				return nil, mapErr(err)
			}
			return &seriesOutput{Body: series}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "move-pointer", Method: http.MethodPost, Path: "/api/v1/pointer", Summary: "Inject a pointer move", Description: "Processes the position exactly like a move delivered by the page bridge and applies the resulting style writes.", Tags: []string{"Hover"}},
		func(ctx context.Context, input *pointInput) (*transitionOutput, error) {
			tr, err := svc.MovePointer(ctx, input.Body.X, input.Body.Y)
			if err != nil {
				return nil, mapErr(err)
			}
			return &transitionOutput{Body: toTransitionBody(tr)}, nil
		})

	type hitOutput struct {
		Body controller.HitResult
	}
	huma.Register(api, huma.Operation{OperationID: "hit-test", Method: http.MethodPost, Path: "/api/v1/hit-test", Summary: "Dry-run proximity check", Description: "Reports which series a pointer at the position would focus, without changing state.", Tags: []string{"Hover"}},
		func(ctx context.Context, input *pointInput) (*hitOutput, error) {
			hit, err := svc.HitTest(ctx, input.Body.X, input.Body.Y)
			if err != nil {
				return nil, mapErr(err)
			}
			return &hitOutput{Body: hit}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "leave", Method: http.MethodPost, Path: "/api/v1/leave", Summary: "Force pointer leave", Description: "Restores every captured baseline style.", Tags: []string{"Hover"}},
		func(ctx context.Context, input *struct{}) (*transitionOutput, error) {
			tr, err := svc.Leave(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			return &transitionOutput{Body: toTransitionBody(tr)}, nil
		})

	type baselinesOutput struct {
		Body struct {
			Baselines []highlight.Baseline `json:"baselines"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-baselines", Method: http.MethodGet, Path: "/api/v1/baselines", Summary: "List captured baseline styles", Tags: []string{"Hover"}},
		func(ctx context.Context, input *struct{}) (*baselinesOutput, error) {
			baselines, err := svc.Baselines(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &baselinesOutput{}
			out.Body.Baselines = baselines
			if out.Body.Baselines == nil {
				out.Body.Baselines = []highlight.Baseline{}
			}
			return out, nil
		})
}
