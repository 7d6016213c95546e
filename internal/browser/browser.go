// Package browser owns the shared headless Chrome instance used for rendered
// page fetches. The browser is started lazily on first use, reused across all
// fetches of a run, and must be closed explicitly when the run finishes.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/kommuneai/crawler/internal/logger"
)

const (
	// networkIdlePeriod is how long the page must go without network
	// activity before the document is considered settled.
	networkIdlePeriod = 500 * time.Millisecond
	networkIdlePoll   = 100 * time.Millisecond
)

// Browser is an explicitly owned handle to one headless Chrome process.
// Every fetch opens its own tab; tabs are never shared between requests.
type Browser struct {
	mu        sync.Mutex
	userAgent string
	logger    logger.Interface

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// New creates an unstarted browser handle. The Chrome process is launched on
// the first HTML call.
func New(userAgent string, log logger.Interface) *Browser {
	return &Browser{
		userAgent: userAgent,
		logger:    log.WithComponent("browser"),
	}
}

// ensureStarted launches the headless Chrome process if it is not running.
func (b *Browser) ensureStarted() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browserCtx != nil {
		return nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.UserAgent(b.userAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Run with no actions forces the browser process to start now, so a
	// broken Chrome installation surfaces here instead of mid-crawl.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("failed to start headless browser: %w", err)
	}

	b.allocCancel = allocCancel
	b.browserCtx = browserCtx
	b.browserCancel = browserCancel
	b.logger.Info("Headless browser started")
	return nil
}

// HTML navigates a fresh tab to pageURL, waits for the document body and for
// the network to go idle, and returns the rendered document HTML. The tab is
// closed regardless of outcome. Network idle is approximated from CDP loading
// events; the timeout (30s per tenant default) bounds the whole fetch, so a
// page that never settles still returns once the deadline expires.
func (b *Browser) HTML(ctx context.Context, pageURL string, timeout time.Duration) (string, error) {
	if err := b.ensureStarted(); err != nil {
		return "", err
	}

	b.mu.Lock()
	browserCtx := b.browserCtx
	b.mu.Unlock()

	tabCtx, closeTab := chromedp.NewContext(browserCtx)
	defer closeTab()

	tabCtx, cancel := context.WithTimeout(tabCtx, timeout)
	defer cancel()

	// Abort the navigation early when the caller's context is done.
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-tabCtx.Done():
		}
	}()

	// The listener must be attached before navigation starts so the
	// initial document request is counted as inflight.
	idle := trackNetworkIdle(tabCtx)

	var html string
	err := chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		idle,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", pageURL, err)
	}
	return html, nil
}

// idleTracker counts inflight page requests from CDP loading events.
type idleTracker struct {
	mu       sync.Mutex
	inflight map[network.RequestID]struct{}
	lastSeen time.Time
	now      func() time.Time
}

func newIdleTracker() *idleTracker {
	t := &idleTracker{
		inflight: make(map[network.RequestID]struct{}),
		now:      time.Now,
	}
	t.lastSeen = t.now()
	return t
}

func (t *idleTracker) observe(ev any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.inflight[e.RequestID] = struct{}{}
		t.lastSeen = t.now()
	case *network.EventLoadingFinished:
		delete(t.inflight, e.RequestID)
		t.lastSeen = t.now()
	case *network.EventLoadingFailed:
		delete(t.inflight, e.RequestID)
		t.lastSeen = t.now()
	}
}

// settled reports whether no request is inflight and no loading event has
// arrived for the quiet period.
func (t *idleTracker) settled(quiet time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight) == 0 && t.now().Sub(t.lastSeen) >= quiet
}

// trackNetworkIdle starts counting inflight requests on ctx and returns an
// action that blocks until no request has started or finished for
// networkIdlePeriod. WebSocket and EventSource streams never finish, so a
// page holding one open is cut off by the surrounding navigation timeout.
func trackNetworkIdle(ctx context.Context) chromedp.Action {
	tracker := newIdleTracker()
	chromedp.ListenTarget(ctx, tracker.observe)

	return chromedp.ActionFunc(func(ctx context.Context) error {
		ticker := time.NewTicker(networkIdlePoll)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
			if tracker.settled(networkIdlePeriod) {
				return nil
			}
		}
	})
}

// Close shuts down the browser process. Safe to call when never started or
// more than once.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browserCtx == nil {
		return
	}

	b.browserCancel()
	b.allocCancel()
	b.browserCtx = nil
	b.browserCancel = nil
	b.allocCancel = nil
	b.logger.Info("Headless browser closed")
}
