package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgnsrekt/chart_hover/internal/cdpcontrol"
	"github.com/dgnsrekt/chart_hover/internal/offline"
	"github.com/dgnsrekt/chart_hover/internal/preview"
	"github.com/dgnsrekt/chart_hover/internal/snapshot"
)

// CreatePreview renders the chart with its current effective styles and
// stores the image.
func (s *Service) CreatePreview(ctx context.Context, notes string) (snapshot.PreviewMeta, error) {
	if s.snaps == nil {
		return snapshot.PreviewMeta{}, &cdpcontrol.CodedError{Code: cdpcontrol.CodeValidation, Message: "preview storage is not configured"}
	}

	var (
		img  preview.Image
		meta snapshot.PreviewMeta
	)
	err := s.doReady(ctx, func(context.Context) error {
		c := s.ctrl.Chart()
		bounds, ok := offline.LocalBounds(c)
		if !ok {
			return &cdpcontrol.CodedError{Code: cdpcontrol.CodeEvalFailure, Message: "chart has no drawable extent"}
		}
		var err error
		img, err = preview.Render(c, s.styler, preview.Options{Bounds: bounds, Pointer: s.pointer})
		if err != nil {
			return &cdpcontrol.CodedError{Code: cdpcontrol.CodeEvalFailure, Message: "render preview", Cause: err}
		}

		st := s.ctrl.State()
		meta = snapshot.PreviewMeta{
			ID:     snapshot.NewID(),
			Format: "png",
			Width:  img.Width,
			Height: img.Height,
			Source: s.opts.Source,
			State:  st.State().String(),
			Notes:  strings.TrimSpace(notes),
		}
		if st.Active != nil {
			meta.Active = string(st.Active.ID)
		}
		if s.pointer != nil {
			meta.Pointer = &snapshot.Pointer{X: s.pointer.X, Y: s.pointer.Y}
		}
		return nil
	})
	if err != nil {
		return snapshot.PreviewMeta{}, err
	}

	meta.SizeBytes = len(img.PNG)
	meta.CreatedAt = time.Now().UTC()
	if err := s.snaps.Save(meta, img.PNG); err != nil {
		return snapshot.PreviewMeta{}, &cdpcontrol.CodedError{Code: cdpcontrol.CodeEvalFailure, Message: fmt.Sprintf("save preview: %v", err)}
	}
	return meta, nil
}

func (s *Service) ListPreviews(ctx context.Context) ([]snapshot.PreviewMeta, error) {
	if s.snaps == nil {
		return []snapshot.PreviewMeta{}, nil
	}
	return s.snaps.List()
}

func (s *Service) GetPreview(ctx context.Context, id string) (snapshot.PreviewMeta, error) {
	if err := s.requireNonEmpty(id, "preview_id"); err != nil {
		return snapshot.PreviewMeta{}, err
	}
	if s.snaps == nil {
		return snapshot.PreviewMeta{}, previewError(snapshot.ErrNotFound)
	}
	meta, err := s.snaps.Get(strings.TrimSpace(id))
	if err != nil {
		return snapshot.PreviewMeta{}, previewError(err)
	}
	return meta, nil
}

func (s *Service) ReadPreviewImage(ctx context.Context, id string) ([]byte, string, error) {
	if err := s.requireNonEmpty(id, "preview_id"); err != nil {
		return nil, "", err
	}
	if s.snaps == nil {
		return nil, "", previewError(snapshot.ErrNotFound)
	}
	data, format, err := s.snaps.ReadImage(strings.TrimSpace(id))
	if err != nil {
		return nil, "", previewError(err)
	}
	return data, format, nil
}

func (s *Service) DeletePreview(ctx context.Context, id string) error {
	if err := s.requireNonEmpty(id, "preview_id"); err != nil {
		return err
	}
	if s.snaps == nil {
		return previewError(snapshot.ErrNotFound)
	}
	if err := s.snaps.Delete(strings.TrimSpace(id)); err != nil {
		return previewError(err)
	}
	return nil
}

func previewError(err error) error {
	switch {
	case errors.Is(err, snapshot.ErrInvalidID):
		return &cdpcontrol.CodedError{Code: cdpcontrol.CodeValidation, Message: err.Error()}
	case errors.Is(err, snapshot.ErrNotFound):
		return &cdpcontrol.CodedError{Code: cdpcontrol.CodeSnapshotNotFound, Message: err.Error()}
	}
	return &cdpcontrol.CodedError{Code: cdpcontrol.CodeEvalFailure, Message: err.Error()}
}
