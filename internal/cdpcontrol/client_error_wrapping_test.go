package cdpcontrol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/chromedp/cdproto/target"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func withDefaultHTTPClient(t *testing.T, transport http.RoundTripper) {
	t.Helper()
	origClient := http.DefaultClient
	t.Cleanup(func() {
		http.DefaultClient = origClient
	})
	http.DefaultClient = &http.Client{
		Transport: transport,
	}
}

func listResponse(body string) roundTripFunc {
	return func(req *http.Request) (*http.Response, error) {
		if req.URL.Path == "/json/list" {
			return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(body))}, nil
		}
		return &http.Response{StatusCode: http.StatusNotFound, Body: io.NopCloser(strings.NewReader(``))}, nil
	}
}

func TestSyncTabsLockedWrapsListTargetsError(t *testing.T) {
	withDefaultHTTPClient(t, roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusInternalServerError,
			Body:       io.NopCloser(strings.NewReader(`oops`)),
		}, nil
	}))

	c := &Client{
		cdp:  newRawCDP("http://example.com"),
		tabs: map[target.ID]*tabSession{},
	}

	err := c.syncTabsLocked(context.Background())
	if err == nil {
		t.Fatal("expected syncTabsLocked() to fail")
	}

	var codedErr *CodedError
	if !errors.As(err, &codedErr) {
		t.Fatalf("expected *CodedError, got %T", err)
	}
	if codedErr.Code != CodeCDPUnavailable {
		t.Fatalf("error code = %s; want %s", codedErr.Code, CodeCDPUnavailable)
	}
	if !strings.Contains(codedErr.Message, "failed to list targets") {
		t.Fatalf("error message = %q; want to contain %q", codedErr.Message, "failed to list targets")
	}
}

func TestResolvePageAppliesTabFilter(t *testing.T) {
	withDefaultHTTPClient(t, listResponse(`[
		{"id":"b-worker","type":"service_worker","url":"http://charts.local/sw.js"},
		{"id":"c-other","type":"page","url":"http://example.com/"},
		{"id":"d-chart","type":"page","url":"http://charts.local/Revenue.html","title":"Revenue"},
		{"id":"e-chart","type":"page","url":"http://CHARTS.local/second.html"}
	]`))

	c := &Client{
		cdp:       newRawCDP("http://example.com"),
		tabFilter: "charts.local",
		tabs:      map[target.ID]*tabSession{},
	}

	_, info, err := c.resolvePage(context.Background())
	if err != nil {
		t.Fatalf("resolvePage() error = %v", err)
	}
	if info.TargetID != "d-chart" || info.Title != "Revenue" {
		t.Fatalf("resolvePage() = %+v; want d-chart", info)
	}

	pages, err := c.ListPages(context.Background())
	if err != nil {
		t.Fatalf("ListPages() error = %v", err)
	}
	if len(pages) != 2 || pages[0].TargetID != "d-chart" || pages[1].TargetID != "e-chart" {
		t.Fatalf("ListPages() = %+v", pages)
	}
}

func TestResolvePageWithoutMatch(t *testing.T) {
	withDefaultHTTPClient(t, listResponse(`[{"id":"x","type":"page","url":"http://example.com/"}]`))

	c := &Client{
		cdp:       newRawCDP("http://example.com"),
		tabFilter: "charts.local",
		tabs:      map[target.ID]*tabSession{},
	}
	_, _, err := c.resolvePage(context.Background())
	var codedErr *CodedError
	if !errors.As(err, &codedErr) || codedErr.Code != CodeChartNotFound {
		t.Fatalf("resolvePage() error = %v; want %s", err, CodeChartNotFound)
	}
}

func TestShouldRetry(t *testing.T) {
	c := &Client{}
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "cdp unavailable", err: newError(CodeCDPUnavailable, "x", nil), want: true},
		{name: "transient eval", err: newError(CodeEvalFailure, "x", errors.New("websocket: close sent")), want: true},
		{name: "script eval", err: newError(CodeEvalFailure, "x", errors.New("ReferenceError")), want: false},
		{name: "socket closed", err: newError(CodeEvalFailure, "x", fmt.Errorf("eval: %w", errSocketClosed)), want: true},
		{name: "stale session", err: newError(CodeEvalFailure, "x", &protocolError{Method: "Runtime.evaluate", Code: -32001, Message: "Session with given id not found."}), want: true},
		{name: "protocol rejection", err: newError(CodeEvalFailure, "x", &protocolError{Method: "Runtime.evaluate", Code: -32602, Message: "Invalid parameters"}), want: false},
		{name: "chart missing", err: newError(CodeChartNotFound, "x", nil), want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
	}
	for _, tc := range tests {
		if got := c.shouldRetry(tc.err); got != tc.want {
			t.Fatalf("%s: shouldRetry() = %v; want %v", tc.name, got, tc.want)
		}
	}
}
