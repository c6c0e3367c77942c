// Package browser drives the map page in a headless Chrome: it pushes notice
// lists into the page, listens for the page's redraw callback and screenshots
// the map element.
package browser

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"procurement_digest_bot/internal/domain/notice"
	"procurement_digest_bot/internal/domain/snapshot"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

const (
	openTimeout    = 60 * time.Second
	actionTimeout  = 30 * time.Second
	pngDataURLHead = "data:image/png;base64,"
)

// Options describes the page contract. The page must define
// window[UpdateFunction](notices) and call window[RenderBinding](payload)
// once the new notices are drawn.
type Options struct {
	PageURL        string
	UpdateFunction string
	RenderBinding  string
	Headless       bool
}

// MapSurface is a long-lived browser tab showing the map page.
type MapSurface struct {
	opts       Options
	logger     *logrus.Entry
	onRendered func(payload string)

	mu          sync.Mutex // one browser action at a time
	ctx         context.Context
	allocCancel context.CancelFunc
	tabCancel   context.CancelFunc
}

func NewMapSurface(opts Options, logger *logrus.Entry) *MapSurface {
	return &MapSurface{opts: opts, logger: logger}
}

// OnRendered registers the redraw callback. It runs on the browser event
// goroutine and must not block. Set it before Open.
func (s *MapSurface) OnRendered(fn func(payload string)) {
	s.onRendered = fn
}

// Open starts the browser, installs the redraw binding and loads the page.
func (s *MapSurface) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx != nil {
		return nil
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(),
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", s.opts.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.WindowSize(1280, 900),
		)...,
	)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		called, ok := ev.(*runtime.EventBindingCalled)
		if !ok || called.Name != s.opts.RenderBinding {
			return
		}
		s.logger.WithField("payload", called.Payload).Debug("Map reported redraw")
		if s.onRendered != nil {
			s.onRendered(called.Payload)
		}
	})

	// The first Run starts the browser and ties it to the context it gets,
	// so it must not be a timeout context.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return fmt.Errorf("failed to start browser: %w", err)
	}

	runCtx, cancel := s.bounded(ctx, tabCtx, openTimeout)
	defer cancel()

	err := chromedp.Run(runCtx,
		runtime.AddBinding(s.opts.RenderBinding), // survives reloads
		chromedp.Navigate(s.opts.PageURL),
		chromedp.WaitReady("body"),
	)
	if err != nil {
		tabCancel()
		allocCancel()
		return fmt.Errorf("failed to open map page %s: %w", s.opts.PageURL, err)
	}

	s.ctx = tabCtx
	s.allocCancel = allocCancel
	s.tabCancel = tabCancel
	s.logger.WithField("url", s.opts.PageURL).Info("Map page opened")
	return nil
}

// NoticesUpdated pushes the notice list into the page. The page redraws
// asynchronously and reports back through the render binding.
func (s *MapSurface) NoticesUpdated(ctx context.Context, notices []notice.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return fmt.Errorf("map page is not open")
	}

	script, err := updateScript(s.opts.UpdateFunction, notices)
	if err != nil {
		return err
	}

	runCtx, cancel := s.bounded(ctx, s.ctx, actionTimeout)
	defer cancel()

	var applied bool
	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, &applied)); err != nil {
		return fmt.Errorf("failed to push notices to the map: %w", err)
	}
	if !applied {
		return fmt.Errorf("map page does not define %s()", s.opts.UpdateFunction)
	}
	return nil
}

// Capture screenshots the element with the given id as a PNG data URL.
func (s *MapSurface) Capture(ctx context.Context, surfaceID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return "", fmt.Errorf("%w: map page is not open", snapshot.ErrCapture)
	}

	runCtx, cancel := s.bounded(ctx, s.ctx, actionTimeout)
	defer cancel()

	// NodeVisible waits forever on a missing node, so look first.
	var exists bool
	if err := chromedp.Run(runCtx, chromedp.Evaluate(existsScript(surfaceID), &exists)); err != nil {
		return "", fmt.Errorf("%w: %v", snapshot.ErrCapture, err)
	}
	if !exists {
		return "", fmt.Errorf("%w: no element with id %q", snapshot.ErrCapture, surfaceID)
	}

	var buf []byte
	if err := chromedp.Run(runCtx, chromedp.Screenshot(elementByID(surfaceID), &buf, chromedp.NodeVisible, chromedp.ByJSPath)); err != nil {
		return "", fmt.Errorf("%w: %v", snapshot.ErrCapture, err)
	}
	if len(buf) == 0 {
		return "", fmt.Errorf("%w: empty screenshot of %q", snapshot.ErrCapture, surfaceID)
	}
	return encodePNG(buf), nil
}

// Close shuts the tab and the browser process.
func (s *MapSurface) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return
	}
	s.tabCancel()
	s.allocCancel()
	s.ctx = nil
	s.logger.Info("Map browser closed")
}

// bounded derives a context from the tab that also ends when the caller's ctx does.
func (s *MapSurface) bounded(caller, tab context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithTimeout(tab, timeout)
	stop := context.AfterFunc(caller, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func updateScript(function string, notices []notice.Record) (string, error) {
	if notices == nil {
		notices = []notice.Record{}
	}
	payload, err := json.Marshal(notices)
	if err != nil {
		return "", fmt.Errorf("failed to encode notices for the map: %w", err)
	}
	name, _ := json.Marshal(function)
	return fmt.Sprintf(`(function() {
	var update = window[%s];
	if (typeof update !== "function") { return false; }
	update(%s);
	return true;
})()`, name, payload), nil
}

// elementByID selects by id without going through a CSS selector, so ids
// like "1map" or "a.b" work.
func elementByID(surfaceID string) string {
	id, _ := json.Marshal(surfaceID)
	return fmt.Sprintf(`document.getElementById(%s)`, id)
}

func existsScript(surfaceID string) string {
	return elementByID(surfaceID) + " !== null"
}

func encodePNG(buf []byte) string {
	return pngDataURLHead + base64.StdEncoding.EncodeToString(buf)
}
