package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/chart_hover/internal/snapshot"
)

func registerPreviewHandlers(api huma.API, svc Service) {
	type createPreviewOutput struct {
		Body struct {
			Preview snapshot.PreviewMeta `json:"preview"`
			URL     string               `json:"url"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "create-preview", Method: http.MethodPost, Path: "/api/v1/previews", Summary: "Render a preview", Description: "Rasterizes the chart with its current effective styles and stores the PNG.", Tags: []string{"Previews"}},
		func(ctx context.Context, input *struct {
			Body struct {
				Notes string `json:"notes,omitempty" doc:"Free-form annotation for the preview"`
			}
		}) (*createPreviewOutput, error) {
			meta, err := svc.CreatePreview(ctx, input.Body.Notes)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &createPreviewOutput{}
			out.Body.Preview = meta
			out.Body.URL = "/api/v1/previews/" + meta.ID + "/image"
			return out, nil
		})

	type listPreviewsOutput struct {
		Body struct {
			Previews []snapshot.PreviewMeta `json:"previews"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-previews", Method: http.MethodGet, Path: "/api/v1/previews", Summary: "List previews", Tags: []string{"Previews"}},
		func(ctx context.Context, input *struct{}) (*listPreviewsOutput, error) {
			metas, err := svc.ListPreviews(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &listPreviewsOutput{}
			out.Body.Previews = metas
			if out.Body.Previews == nil {
				out.Body.Previews = []snapshot.PreviewMeta{}
			}
			return out, nil
		})

	type previewIDInput struct {
		PreviewID string `path:"preview_id"`
	}
	type getPreviewOutput struct {
		Body snapshot.PreviewMeta
	}
	huma.Register(api, huma.Operation{OperationID: "get-preview", Method: http.MethodGet, Path: "/api/v1/previews/{preview_id}", Summary: "Get preview metadata", Tags: []string{"Previews"}},
		func(ctx context.Context, input *previewIDInput) (*getPreviewOutput, error) {
			meta, err := svc.GetPreview(ctx, input.PreviewID)
			if err != nil {
				return nil, mapErr(err)
			}
			return &getPreviewOutput{Body: meta}, nil
		})

	type previewImageOutput struct {
		ContentType string `header:"Content-Type"`
		Body        []byte
	}
	huma.Register(api, huma.Operation{
		OperationID: "get-preview-image",
		Method:      http.MethodGet,
		Path:        "/api/v1/previews/{preview_id}/image",
		Summary:     "Get preview image",
		Tags:        []string{"Previews"},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "Preview image",
				Content: map[string]*huma.MediaType{
					"image/png": {
						Schema: &huma.Schema{Type: "string", Format: "binary"},
					},
				},
			},
		},
	}, func(ctx context.Context, input *previewIDInput) (*previewImageOutput, error) {
		data, format, err := svc.ReadPreviewImage(ctx, input.PreviewID)
		if err != nil {
			return nil, mapErr(err)
		}
		return &previewImageOutput{ContentType: "image/" + format, Body: data}, nil
	})

	type deletePreviewOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "delete-preview", Method: http.MethodDelete, Path: "/api/v1/previews/{preview_id}", Summary: "Delete preview", Tags: []string{"Previews"}},
		func(ctx context.Context, input *previewIDInput) (*deletePreviewOutput, error) {
			if err := svc.DeletePreview(ctx, input.PreviewID); err != nil {
				return nil, mapErr(err)
			}
			out := &deletePreviewOutput{}
			out.Body.Status = "deleted"
			return out, nil
		})
}
