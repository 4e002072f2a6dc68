package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dgnsrekt/chart_hover/internal/cdpcontrol"
	"github.com/dgnsrekt/chart_hover/internal/controller"
	"github.com/dgnsrekt/chart_hover/internal/highlight"
	"github.com/dgnsrekt/chart_hover/internal/relay"
	"github.com/dgnsrekt/chart_hover/internal/snapshot"
	"github.com/gogpu/gg"
)

type stubService struct {
	ready     bool
	moves     []gg.Point
	err       error
	previewID string
}

func (s *stubService) State(ctx context.Context) (controller.StateInfo, error) {
	return controller.StateInfo{Ready: s.ready, State: "idle", SeriesCount: 2}, nil
}
func (s *stubService) ListSeries(ctx context.Context) ([]controller.SeriesInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	return nil, nil
}
func (s *stubService) GetSeries(ctx context.Context, id string) (controller.SeriesInfo, error) {
	if s.err != nil {
		return controller.SeriesInfo{}, s.err
	}
	return controller.SeriesInfo{ID: "line-graph-a", Label: "Alpha", Points: []gg.Point{gg.Pt(1, 2)}}, nil
}
func (s *stubService) MovePointer(ctx context.Context, x, y float64) (highlight.Transition, error) {
	s.moves = append(s.moves, gg.Pt(x, y))
	return highlight.Transition{
		From: highlight.StateIdle, To: highlight.StateFocused,
		Active: "line-graph-a", Reason: highlight.ReasonPolyline,
		Point: gg.Pt(x, y), Writes: 9,
	}, nil
}
func (s *stubService) HitTest(ctx context.Context, x, y float64) (controller.HitResult, error) {
	return controller.HitResult{Found: true, Series: "line-graph-b", Reason: highlight.ReasonText}, nil
}
func (s *stubService) Leave(ctx context.Context) (highlight.Transition, error) {
	return highlight.Transition{From: highlight.StateFocused, To: highlight.StateIdle, Previous: "line-graph-a"}, nil
}
func (s *stubService) Baselines(ctx context.Context) ([]highlight.Baseline, error) { return nil, nil }
func (s *stubService) CreatePreview(ctx context.Context, notes string) (snapshot.PreviewMeta, error) {
	return snapshot.PreviewMeta{ID: s.previewID, Format: "png", Notes: notes}, nil
}
func (s *stubService) ListPreviews(ctx context.Context) ([]snapshot.PreviewMeta, error) {
	return nil, nil
}
func (s *stubService) GetPreview(ctx context.Context, id string) (snapshot.PreviewMeta, error) {
	if id != s.previewID {
		return snapshot.PreviewMeta{}, &cdpcontrol.CodedError{Code: cdpcontrol.CodeSnapshotNotFound, Message: "preview not found"}
	}
	return snapshot.PreviewMeta{ID: id, Format: "png"}, nil
}
func (s *stubService) ReadPreviewImage(ctx context.Context, id string) ([]byte, string, error) {
	return []byte("\x89PNG"), "png", nil
}
func (s *stubService) DeletePreview(ctx context.Context, id string) error { return nil }

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestDocsListsHoverRoutes(t *testing.T) {
	h := NewServer(&stubService{}, nil)
	w := serve(h, http.MethodGet, "/docs", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	if !strings.Contains(body, `data-theme="dark"`) || !strings.Contains(body, `/docs/events`) {
		t.Fatalf("docs missing dark theme marker or feed link")
	}
	for _, want := range []string{
		`<code>POST</code>/api/v1/pointer`,
		`#/operations/hit-test`,
		`<code>DELETE</code>/api/v1/previews/{preview_id}`,
		"Force pointer leave",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("docs missing route entry %q", want)
		}
	}
	if strings.Index(body, "/api/v1/baselines") > strings.Index(body, "/api/v1/state") {
		t.Fatal("docs routes not sorted by path")
	}
	if w := serve(h, http.MethodGet, "/docs/events", ""); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "/api/v1/events") {
		t.Fatalf("events docs status = %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	w := serve(NewServer(&stubService{ready: true}, nil), http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var got struct {
		Status string `json:"status"`
		Ready  bool   `json:"ready"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Status != "ok" || !got.Ready {
		t.Fatalf("health = %+v", got)
	}
}

func TestMovePointer(t *testing.T) {
	svc := &stubService{}
	w := serve(NewServer(svc, nil), http.MethodPost, "/api/v1/pointer", `{"x": 205, "y": 210}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if len(svc.moves) != 1 || svc.moves[0] != gg.Pt(205, 210) {
		t.Fatalf("moves = %v", svc.moves)
	}
	var got transitionBody
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	want := transitionBody{From: "idle", To: "focused", Active: "line-graph-a", Reason: "polyline", X: 205, Y: 210, Writes: 9, Changed: true}
	if got != want {
		t.Fatalf("transition = %+v; want %+v", got, want)
	}
}

func TestHitTestAndLeave(t *testing.T) {
	h := NewServer(&stubService{}, nil)
	w := serve(h, http.MethodPost, "/api/v1/hit-test", `{"x": 300, "y": 35}`)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"series":"line-graph-b"`) {
		t.Fatalf("hit-test = %d %s", w.Code, w.Body.String())
	}
	w = serve(h, http.MethodPost, "/api/v1/leave", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"to":"idle"`) {
		t.Fatalf("leave = %d %s", w.Code, w.Body.String())
	}
}

func TestEmptyListsAreArrays(t *testing.T) {
	h := NewServer(&stubService{}, nil)
	for path, key := range map[string]string{
		"/api/v1/series":    `"series":[]`,
		"/api/v1/baselines": `"baselines":[]`,
		"/api/v1/previews":  `"previews":[]`,
	} {
		w := serve(h, http.MethodGet, path, "")
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), key) {
			t.Fatalf("GET %s = %d %s; want %s", path, w.Code, w.Body.String(), key)
		}
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{code: cdpcontrol.CodeValidation, want: http.StatusBadRequest},
		{code: cdpcontrol.CodeChartNotFound, want: http.StatusNotFound},
		{code: cdpcontrol.CodeSnapshotNotFound, want: http.StatusNotFound},
		{code: cdpcontrol.CodeCDPUnavailable, want: http.StatusBadGateway},
		{code: cdpcontrol.CodeEvalTimeout, want: http.StatusGatewayTimeout},
		{code: cdpcontrol.CodeEvalFailure, want: http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			svc := &stubService{err: &cdpcontrol.CodedError{Code: tc.code, Message: "boom"}}
			w := serve(NewServer(svc, nil), http.MethodGet, "/api/v1/series/line-graph-a", "")
			if w.Code != tc.want {
				t.Fatalf("status = %d; want %d", w.Code, tc.want)
			}
		})
	}
}

func TestPreviewEndpoints(t *testing.T) {
	id := snapshot.NewID()
	h := NewServer(&stubService{previewID: id}, nil)

	w := serve(h, http.MethodPost, "/api/v1/previews", `{"notes": "hello"}`)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"url":"/api/v1/previews/`+id+`/image"`) {
		t.Fatalf("create = %d %s", w.Code, w.Body.String())
	}
	if w := serve(h, http.MethodGet, "/api/v1/previews/"+id, ""); w.Code != http.StatusOK {
		t.Fatalf("get = %d", w.Code)
	}
	if w := serve(h, http.MethodGet, "/api/v1/previews/"+snapshot.NewID(), ""); w.Code != http.StatusNotFound {
		t.Fatalf("get unknown = %d; want 404", w.Code)
	}
	w = serve(h, http.MethodGet, "/api/v1/previews/"+id+"/image", "")
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" || !strings.HasPrefix(w.Body.String(), "\x89PNG") {
		t.Fatalf("image = %d %q", w.Code, w.Header().Get("Content-Type"))
	}
	if w := serve(h, http.MethodDelete, "/api/v1/previews/"+id, ""); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "deleted") {
		t.Fatalf("delete = %d", w.Code)
	}
}

func TestEventsRoute(t *testing.T) {
	if w := serve(NewServer(&stubService{}, nil), http.MethodGet, "/api/v1/events", ""); w.Code != http.StatusNotFound {
		t.Fatalf("events without broker = %d; want 404", w.Code)
	}

	h := NewServer(&stubService{}, relay.NewBroker())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q; want text/event-stream", ct)
	}
}

func TestOpenAPIListsHoverOperations(t *testing.T) {
	w := serve(NewServer(&stubService{}, nil), http.MethodGet, "/openapi.json", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	for _, op := range []string{"move-pointer", "hit-test", "list-baselines", "create-preview"} {
		if !strings.Contains(w.Body.String(), op) {
			t.Fatalf("openapi.json missing %s", op)
		}
	}
}
