// Package cdpcontrol hosts the hover engine in a live Chromium page over the
// DevTools protocol. A small bridge script forwards pointer moves through a
// Runtime binding; style writes come back as one batched evaluation.
package cdpcontrol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/dgnsrekt/chart_hover/internal/chart"
	"github.com/dgnsrekt/chart_hover/internal/dom"
	"github.com/dgnsrekt/chart_hover/internal/highlight"
	"github.com/gogpu/gg"
)

// DefaultBinding is the page-global function the bridge calls.
const DefaultBinding = "__chartHoverEmit"

// transientHints are substrings in error causes that indicate a transient
// failure worth retrying (e.g. broken connection, closed session).
var transientHints = []string{
	"context canceled",
	"target closed",
	"session closed",
	"websocket",
	"connection reset",
	"broken pipe",
	"eof",
	"connection refused",
	"connection closed",
}

type tabSession struct {
	info      PageInfo
	mu        sync.Mutex
	sessionID string // CDP session ID from Target.attachToTarget
}

// Client drives one chart page. Init, Frame and Commit are called from a
// single host goroutine; bridge events arrive on Events.
type Client struct {
	cdpURL      string
	tabFilter   string
	evalTimeout time.Duration
	binding     string
	sel         chart.Selectors

	mu          sync.Mutex
	cdp         *rawCDP
	tabs        map[target.ID]*tabSession
	unsubscribe func()

	styler *PageStyler
	events *eventQueue
}

type evalEnvelope struct {
	OK           bool            `json:"ok"`
	Data         json.RawMessage `json:"data,omitempty"`
	ErrorCode    string          `json:"error_code,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// NewClient targets the first page whose URL contains tabFilter (any page
// when empty).
func NewClient(cdpURL, tabFilter string, evalTimeout time.Duration, sel chart.Selectors) *Client {
	return &Client{
		cdpURL:      cdpURL,
		tabFilter:   strings.ToLower(strings.TrimSpace(tabFilter)),
		evalTimeout: evalTimeout,
		binding:     DefaultBinding,
		sel:         sel,
		tabs:        make(map[target.ID]*tabSession),
		events:      newEventQueue(),
	}
}

func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) error {
	if c.cdpURL == "" {
		return newError(CodeCDPUnavailable, "missing CDP URL", nil)
	}

	slog.Info("cdpcontrol connect start", "cdp_url", c.cdpURL)
	c.cleanupLocked()

	c.cdp = newRawCDP(c.cdpURL)
	if err := c.cdp.connect(ctx); err != nil {
		c.cdp = nil
		return newError(CodeCDPUnavailable, "connect to CDP failed", err)
	}
	c.unsubscribe = c.cdp.registerEventHandler("Runtime.bindingCalled", c.handleBinding)
	go c.watchSocket(c.cdp)

	if err := c.syncTabsLocked(ctx); err != nil {
		slog.Error("cdpcontrol initial tab sync failed", "error", err)
		c.cleanupLocked()
		return err
	}

	slog.Info("cdpcontrol connect ok", "cdp_url", c.cdpURL, "pages", len(c.tabs))
	return nil
}

// watchSocket ends event delivery when the browser socket drops on its own.
// Bindings die with the socket, so the host has to start over.
func (c *Client) watchSocket(cdp *rawCDP) {
	done := cdp.disconnected()
	if done == nil {
		return
	}
	<-done
	c.mu.Lock()
	lost := c.cdp == cdp
	c.mu.Unlock()
	if lost {
		slog.Warn("cdpcontrol browser connection lost", "cdp_url", c.cdpURL)
		c.events.close()
	}
}

// Close uninstalls the bridge, detaches and stops event delivery.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cdp != nil {
		if session := c.currentSessionLocked(); session != nil {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			if _, err := c.cdp.evaluate(ctx, session.sessionID, jsUninstall()); err != nil {
				slog.Debug("cdpcontrol bridge uninstall failed", "error", err)
			}
			if err := c.cdp.removeBinding(ctx, session.sessionID, c.binding); err != nil {
				slog.Debug("cdpcontrol remove binding failed", "error", err)
			}
			cancel()
		}
	}
	c.cleanupLocked()
	c.events.close()
	return nil
}

func (c *Client) cleanupLocked() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	// Detach from any active sessions without closing targets.
	if c.cdp != nil {
		for targetID, session := range c.tabs {
			if session == nil {
				continue
			}
			session.mu.Lock()
			if session.sessionID != "" {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				if err := c.cdp.detachFromTarget(ctx, session.sessionID); err != nil {
					slog.Debug("cdpcontrol detach cleanup failed", "target_id", targetID, "error", err)
				}
				cancel()
				session.sessionID = ""
			}
			session.mu.Unlock()
		}
		c.cdp.close()
		c.cdp = nil
	}
	c.tabs = make(map[target.ID]*tabSession)
}

func (c *Client) currentSessionLocked() *tabSession {
	for _, s := range c.tabs {
		if s != nil && s.sessionID != "" {
			return s
		}
	}
	return nil
}

// ListPages returns the page targets matching the tab filter.
func (c *Client) ListPages(ctx context.Context) ([]PageInfo, error) {
	if err := c.refreshTabs(ctx); err != nil {
		slog.Warn("cdpcontrol list pages failed", "error", err)
		return nil, err
	}

	c.mu.Lock()
	pages := make([]PageInfo, 0, len(c.tabs))
	for _, s := range c.tabs {
		if s != nil {
			pages = append(pages, s.info)
		}
	}
	c.mu.Unlock()

	sortPages(pages)
	return pages, nil
}

// Init installs the bridge and indexes the live chart. While the chart root
// is absent it returns an error wrapping chart.ErrRootNotFound.
func (c *Client) Init(ctx context.Context) (*chart.Chart, highlight.Styler, error) {
	var res installResult
	if err := c.evalOnPage(ctx, jsInstall(c.binding, c.sel), &res); err != nil {
		return nil, nil, err
	}
	if !res.Found {
		return nil, nil, fmt.Errorf("page: %w", chart.ErrRootNotFound)
	}

	doc, err := dom.ParseString(res.Markup)
	if err != nil {
		return nil, nil, newError(CodeEvalFailure, "parse chart markup", err)
	}
	ch, err := chart.Index(doc, c.sel)
	if err != nil {
		return nil, nil, newError(CodeEvalFailure, "index chart markup", err)
	}
	c.styler = newPageStyler(ch, res.Styles)
	slog.Info("cdpcontrol bridge installed", "series", len(ch.Series), "elements", len(res.Styles))
	return ch, c.styler, nil
}

// Frame asks the bridge for the current geometry around an injected
// pointer position.
func (c *Client) Frame(ctx context.Context, p gg.Point) (highlight.Frame, error) {
	var f PageFrame
	if err := c.evalOnPage(ctx, jsFrame(p.X, p.Y), &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Events delivers bridge pointer events in page order. The channel closes
// after Close or when the browser connection drops.
func (c *Client) Events() <-chan highlight.PointerEvent {
	return c.events.out
}

// Commit writes the styles queued since the last commit in one evaluation.
// Writes to elements that left the page are skipped.
func (c *Client) Commit(ctx context.Context) error {
	if c.styler == nil || c.styler.Pending() == 0 {
		return nil
	}
	writes := c.styler.take()
	var res applyResult
	if err := c.evalOnPage(ctx, jsApplyStyles(writes), &res); err != nil {
		return err
	}
	if res.Missing > 0 {
		slog.Debug("cdpcontrol style writes skipped", "missing", res.Missing, "applied", res.Applied)
	}
	return nil
}

// handleBinding runs on the CDP read loop.
func (c *Client) handleBinding(sessionID string, params json.RawMessage) {
	var call struct {
		Name    string `json:"name"`
		Payload string `json:"payload"`
	}
	if err := json.Unmarshal(params, &call); err != nil || call.Name != c.binding {
		return
	}

	ev, err := decodeBridgeMessage(call.Payload)
	if err != nil {
		slog.Debug("cdpcontrol bad bridge payload", "session_id", sessionID, "error", err)
		return
	}
	c.events.push(ev)
}

func decodeBridgeMessage(payload string) (highlight.PointerEvent, error) {
	var msg bridgeMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return highlight.PointerEvent{}, err
	}
	switch msg.Type {
	case "leave":
		return highlight.PointerEvent{Leave: true}, nil
	case "move":
		frame := msg.PageFrame
		return highlight.PointerEvent{Point: gg.Pt(msg.X, msg.Y), Frame: &frame}, nil
	default:
		return highlight.PointerEvent{}, fmt.Errorf("unknown bridge message %q", msg.Type)
	}
}

func (c *Client) evalOnPage(ctx context.Context, js string, out any) error {
	session, info, err := c.resolvePage(ctx)
	if err == nil {
		err = c.evalOnSession(ctx, session, info.TargetID, js, out)
	}
	if err == nil {
		return nil
	}
	if !c.shouldRetry(err) {
		return err
	}

	slog.Warn("cdpcontrol eval retry after transient failure", "error", err)
	if c.asCode(err, CodeCDPUnavailable) {
		if recErr := c.reconnect(ctx); recErr != nil {
			slog.Error("cdpcontrol reconnect failed during retry", "error", recErr)
			return recErr
		}
	} else if syncErr := c.refreshTabs(ctx); syncErr != nil {
		slog.Warn("cdpcontrol tab refresh failed during retry", "error", syncErr)
	}

	session, info, err = c.resolvePage(ctx)
	if err != nil {
		return err
	}
	return c.evalOnSession(ctx, session, info.TargetID, js, out)
}

func (c *Client) evalOnSession(ctx context.Context, session *tabSession, targetID, js string, out any) error {
	c.mu.Lock()
	cdp := c.cdp
	c.mu.Unlock()
	if cdp == nil {
		return newError(CodeCDPUnavailable, "CDP client not connected", nil)
	}

	sessionID, err := c.ensureSession(ctx, cdp, session, targetID)
	if err != nil {
		return err
	}

	evalCtx, evalCancel := context.WithTimeout(ctx, c.evalTimeout)
	defer evalCancel()

	raw, err := cdp.evaluate(evalCtx, sessionID, js)
	if err != nil {
		slog.Warn("cdpcontrol eval failed", "target_id", targetID, "error", err)
		// Reset session so a fresh attach happens on retry.
		session.mu.Lock()
		session.sessionID = ""
		session.mu.Unlock()

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(evalCtx.Err(), context.DeadlineExceeded) {
			return newError(CodeEvalTimeout, "evaluation timed out", err)
		}
		return newError(CodeEvalFailure, "evaluation failed", err)
	}
	return decodeEnvelope(raw, out)
}

func decodeEnvelope(raw string, out any) error {
	var env evalEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return newError(CodeEvalFailure, "invalid evaluation envelope", err)
	}
	if !env.OK {
		code := env.ErrorCode
		if code == "" {
			code = CodeEvalFailure
		}
		return newError(code, env.ErrorMessage, nil)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return newError(CodeEvalFailure, "invalid evaluation data", err)
	}
	return nil
}

// ensureSession returns a CDP session ID for the target, attaching and
// enabling the binding if needed.
func (c *Client) ensureSession(ctx context.Context, cdp *rawCDP, session *tabSession, targetID string) (string, error) {
	session.mu.Lock()
	defer session.mu.Unlock()

	if session.sessionID != "" {
		return session.sessionID, nil
	}

	sid, err := cdp.attachToTarget(ctx, targetID)
	if err != nil {
		return "", newError(CodeCDPUnavailable, "attach to target failed", err)
	}
	if err := cdp.enableRuntime(ctx, sid); err != nil {
		return "", newError(CodeCDPUnavailable, "enable runtime failed", err)
	}
	if err := cdp.addBinding(ctx, sid, c.binding); err != nil {
		return "", newError(CodeCDPUnavailable, "add binding failed", err)
	}
	session.sessionID = sid
	slog.Debug("cdpcontrol session attached", "target_id", targetID, "session_id", sid)
	return sid, nil
}

// resolvePage picks the chart page, refreshing the target list once when
// nothing is known yet.
func (c *Client) resolvePage(ctx context.Context) (*tabSession, PageInfo, error) {
	if session, ok := c.firstPage(); ok {
		return session, session.info, nil
	}
	if err := c.refreshTabs(ctx); err != nil {
		return nil, PageInfo{}, err
	}
	if session, ok := c.firstPage(); ok {
		return session, session.info, nil
	}
	return nil, PageInfo{}, newError(CodeChartNotFound, "no page matches tab filter "+c.tabFilter, nil)
}

func (c *Client) firstPage() (*tabSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s := c.currentSessionLocked(); s != nil {
		return s, true
	}
	pages := make([]PageInfo, 0, len(c.tabs))
	for _, s := range c.tabs {
		pages = append(pages, s.info)
	}
	if len(pages) == 0 {
		return nil, false
	}
	sortPages(pages)
	return c.tabs[target.ID(pages[0].TargetID)], true
}

func (c *Client) refreshTabs(ctx context.Context) error {
	if err := c.ensureConnected(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.syncTabsLocked(ctx)
}

func (c *Client) reconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Client) syncTabsLocked(ctx context.Context) error {
	if c.cdp == nil {
		return newError(CodeCDPUnavailable, "CDP client not connected", nil)
	}

	targets, err := c.cdp.listTargets(ctx)
	if err != nil {
		return newError(CodeCDPUnavailable, "failed to list targets", err)
	}

	expected := make(map[target.ID]PageInfo)
	for _, t := range targets {
		if t.Type != "page" {
			continue
		}
		if c.tabFilter != "" && !strings.Contains(strings.ToLower(t.URL), c.tabFilter) {
			continue
		}
		expected[t.TargetID] = PageInfo{
			TargetID: string(t.TargetID),
			URL:      t.URL,
			Title:    t.Title,
		}
	}

	for targetID := range c.tabs {
		if _, ok := expected[targetID]; !ok {
			delete(c.tabs, targetID)
		}
	}
	for targetID, info := range expected {
		if session := c.tabs[targetID]; session != nil {
			session.info = info
			continue
		}
		c.tabs[targetID] = &tabSession{info: info}
	}

	slog.Debug("cdpcontrol tab sync", "targets", len(targets), "pages", len(c.tabs))
	return nil
}

func (c *Client) ensureConnected(ctx context.Context) error {
	c.mu.Lock()
	connected := c.cdp != nil
	c.mu.Unlock()
	if connected {
		return nil
	}
	return c.reconnect(ctx)
}

func (c *Client) shouldRetry(err error) bool {
	var coded *CodedError
	if !errors.As(err, &coded) {
		return false
	}

	switch coded.Code {
	case CodeCDPUnavailable:
		return true
	case CodeEvalFailure:
		if coded.Cause == nil {
			return false
		}
		if errors.Is(coded.Cause, errSocketClosed) {
			return true
		}
		var perr *protocolError
		if errors.As(coded.Cause, &perr) {
			return strings.Contains(strings.ToLower(perr.Message), "session")
		}
		cause := strings.ToLower(coded.Cause.Error())
		for _, hint := range transientHints {
			if strings.Contains(cause, hint) {
				return true
			}
		}
	}
	return false
}

func (c *Client) asCode(err error, code string) bool {
	var coded *CodedError
	if !errors.As(err, &coded) {
		return false
	}
	return coded.Code == code
}

func sortPages(pages []PageInfo) {
	slices.SortFunc(pages, func(a, b PageInfo) int {
		return strings.Compare(a.TargetID, b.TargetID)
	})
}
