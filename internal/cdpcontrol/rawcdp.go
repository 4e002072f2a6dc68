package cdpcontrol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// errSocketClosed is returned to callers still waiting when the websocket
// goes away.
var errSocketClosed = errors.New("rawcdp: connection closed")

// protocolError is an error object returned by the browser for a command.
type protocolError struct {
	Method  string
	Code    int
	Message string
}

func (e *protocolError) Error() string {
	return fmt.Sprintf("rawcdp: %s: %s (%d)", e.Method, e.Message, e.Code)
}

type reply struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// rawCDP speaks the DevTools protocol over one browser-level websocket
// using flattened sessions. It carries only the commands the hover bridge
// needs: target attach and detach, Runtime bindings and evaluation.
type rawCDP struct {
	httpBase string

	mu      sync.Mutex
	conn    net.Conn
	done    chan struct{}
	writeMu sync.Mutex
	seq     atomic.Int64

	pendingMu sync.Mutex
	pending   map[int64]chan reply

	eventMu  sync.RWMutex
	handlers map[string][]eventHandler
}

type eventHandler struct {
	id int64
	fn func(sessionID string, params json.RawMessage)
}

func newRawCDP(httpBase string) *rawCDP {
	return &rawCDP{
		httpBase: strings.TrimRight(httpBase, "/"),
		pending:  make(map[int64]chan reply),
		handlers: make(map[string][]eventHandler),
	}
}

// connect resolves the browser websocket from /json/version and dials it.
func (r *rawCDP) connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil {
		return nil
	}

	var version struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := r.getJSON(ctx, "/json/version", &version); err != nil {
		return fmt.Errorf("rawcdp: browser ws url: %w", err)
	}
	if version.WebSocketDebuggerURL == "" {
		return errors.New("rawcdp: browser reported no webSocketDebuggerUrl")
	}

	slog.Debug("rawcdp connecting", "ws_url", version.WebSocketDebuggerURL)
	conn, _, _, err := ws.Dial(ctx, version.WebSocketDebuggerURL)
	if err != nil {
		return fmt.Errorf("rawcdp: dial: %w", err)
	}
	r.conn = conn
	r.done = make(chan struct{})
	go r.readLoop(conn, r.done)
	return nil
}

// disconnected is closed when the read loop stops. Nil before connect.
func (r *rawCDP) disconnected() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

func (r *rawCDP) close() {
	r.mu.Lock()
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()
	if conn != nil {
		if err := conn.Close(); err != nil {
			slog.Debug("rawcdp close failed", "error", err)
		}
	}
}

func (r *rawCDP) readLoop(conn net.Conn, done chan struct{}) {
	defer close(done)
	defer r.failPending()

	for {
		data, err := wsutil.ReadServerText(conn)
		if err != nil {
			slog.Debug("rawcdp read loop exit", "error", err)
			return
		}
		var msg struct {
			ID        int64           `json:"id"`
			Method    string          `json:"method"`
			SessionID string          `json:"sessionId"`
			Params    json.RawMessage `json:"params"`
			reply
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Debug("rawcdp undecodable message", "error", err)
			continue
		}
		switch {
		case msg.ID > 0:
			if ch := r.takePending(msg.ID); ch != nil {
				ch <- msg.reply
			}
		case msg.Method != "":
			r.dispatchEvent(msg.Method, msg.SessionID, msg.Params)
		}
	}
}

func (r *rawCDP) takePending(id int64) chan reply {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()
	ch, ok := r.pending[id]
	if !ok {
		return nil
	}
	delete(r.pending, id)
	return ch
}

func (r *rawCDP) failPending() {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()
	for id, ch := range r.pending {
		close(ch)
		delete(r.pending, id)
	}
}

// call sends method on sessionID (empty for the browser session) and
// decodes the result into out when out is non-nil.
func (r *rawCDP) call(ctx context.Context, sessionID, method string, params, out any) error {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil {
		return errors.New("rawcdp: not connected")
	}

	id := r.seq.Add(1)
	data, err := json.Marshal(struct {
		ID        int64  `json:"id"`
		Method    string `json:"method"`
		SessionID string `json:"sessionId,omitempty"`
		Params    any    `json:"params,omitempty"`
	}{id, method, sessionID, params})
	if err != nil {
		return fmt.Errorf("rawcdp: marshal %s: %w", method, err)
	}

	ch := make(chan reply, 1)
	r.pendingMu.Lock()
	r.pending[id] = ch
	r.pendingMu.Unlock()

	r.writeMu.Lock()
	err = wsutil.WriteClientText(conn, data)
	r.writeMu.Unlock()
	if err != nil {
		r.takePending(id)
		return fmt.Errorf("rawcdp: send %s: %w", method, err)
	}

	var rep reply
	select {
	case got, ok := <-ch:
		if !ok {
			return errSocketClosed
		}
		rep = got
	case <-ctx.Done():
		r.takePending(id)
		return ctx.Err()
	}
	if rep.Error != nil {
		return &protocolError{Method: method, Code: rep.Error.Code, Message: rep.Error.Message}
	}
	if out == nil || len(rep.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(rep.Result, out); err != nil {
		return fmt.Errorf("rawcdp: decode %s: %w", method, err)
	}
	return nil
}

func (r *rawCDP) attachToTarget(ctx context.Context, targetID string) (string, error) {
	var res struct {
		SessionID string `json:"sessionId"`
	}
	params := map[string]any{"targetId": targetID, "flatten": true}
	if err := r.call(ctx, "", "Target.attachToTarget", params, &res); err != nil {
		return "", err
	}
	if res.SessionID == "" {
		return "", fmt.Errorf("rawcdp: attach to %s returned no session", targetID)
	}
	return res.SessionID, nil
}

func (r *rawCDP) detachFromTarget(ctx context.Context, sessionID string) error {
	return r.call(ctx, "", "Target.detachFromTarget", map[string]any{"sessionId": sessionID}, nil)
}

// evaluate runs js in the session and returns a string result. Non-string
// values come back as their JSON text.
func (r *rawCDP) evaluate(ctx context.Context, sessionID, js string) (string, error) {
	var res struct {
		Result struct {
			Value json.RawMessage `json:"value"`
		} `json:"result"`
		ExceptionDetails *struct {
			Text      string `json:"text"`
			Exception *struct {
				Description string `json:"description"`
			} `json:"exception"`
		} `json:"exceptionDetails"`
	}
	params := map[string]any{"expression": js, "returnByValue": true, "awaitPromise": true}
	if err := r.call(ctx, sessionID, "Runtime.evaluate", params, &res); err != nil {
		return "", err
	}
	if ex := res.ExceptionDetails; ex != nil {
		msg := ex.Text
		if ex.Exception != nil && ex.Exception.Description != "" {
			msg = ex.Exception.Description
		}
		return "", fmt.Errorf("rawcdp: eval exception: %s", msg)
	}
	var s string
	if err := json.Unmarshal(res.Result.Value, &s); err != nil {
		return string(res.Result.Value), nil
	}
	return s, nil
}

// enableRuntime must precede addBinding; bindingCalled events only flow
// while the Runtime domain is enabled.
func (r *rawCDP) enableRuntime(ctx context.Context, sessionID string) error {
	return r.call(ctx, sessionID, "Runtime.enable", nil, nil)
}

func (r *rawCDP) addBinding(ctx context.Context, sessionID, name string) error {
	if err := r.call(ctx, sessionID, "Runtime.addBinding", map[string]any{"name": name}, nil); err != nil {
		return fmt.Errorf("rawcdp: add binding %s: %w", name, err)
	}
	return nil
}

func (r *rawCDP) removeBinding(ctx context.Context, sessionID, name string) error {
	return r.call(ctx, sessionID, "Runtime.removeBinding", map[string]any{"name": name}, nil)
}

// listTargets reads /json/list. Entries without an id are skipped.
func (r *rawCDP) listTargets(ctx context.Context) ([]*target.Info, error) {
	var entries []struct {
		ID    string `json:"id"`
		Type  string `json:"type"`
		Title string `json:"title"`
		URL   string `json:"url"`
	}
	if err := r.getJSON(ctx, "/json/list", &entries); err != nil {
		return nil, err
	}
	out := make([]*target.Info, 0, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			continue
		}
		out = append(out, &target.Info{TargetID: target.ID(e.ID), Type: e.Type, Title: e.Title, URL: e.URL})
	}
	return out, nil
}

func (r *rawCDP) getJSON(ctx context.Context, path string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.httpBase+path, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rawcdp: %s: HTTP %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// registerEventHandler subscribes fn to a CDP event method. Handlers run on
// the read loop and must not block.
func (r *rawCDP) registerEventHandler(method string, fn func(sessionID string, params json.RawMessage)) func() {
	id := r.seq.Add(1)
	r.eventMu.Lock()
	r.handlers[method] = append(r.handlers[method], eventHandler{id: id, fn: fn})
	r.eventMu.Unlock()
	return func() {
		r.eventMu.Lock()
		defer r.eventMu.Unlock()
		hs := r.handlers[method]
		for i, h := range hs {
			if h.id == id {
				r.handlers[method] = append(hs[:i:i], hs[i+1:]...)
				return
			}
		}
	}
}

func (r *rawCDP) dispatchEvent(method, sessionID string, params json.RawMessage) {
	r.eventMu.RLock()
	hs := append([]eventHandler(nil), r.handlers[method]...)
	r.eventMu.RUnlock()
	for _, h := range hs {
		h.fn(sessionID, params)
	}
}
