// internal/browser/session.go

// Package browser owns the Chrome process and exposes the loaded document
// through the dom accessor interfaces. Everything element-level works by
// tagging the target node with a temporary data-corfex-id attribute and
// addressing it through that tag, so a handle keeps pointing at the exact
// node it was resolved from even when the surrounding DOM shifts.
package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vmaturana/corfex-cli/internal/config"
)

// Session is one live Chrome instance with a single page target.
type Session struct {
	ID string

	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	logger *zap.Logger
	page   *Page
}

// NewSession launches Chrome and attaches to a fresh page target. The
// returned session must be closed by the caller.
func NewSession(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)

	s := &Session{
		ID:     uuid.NewString(),
		logger: logger.Named("browser"),
	}
	s.allocCtx, s.allocCancel = chromedp.NewExecAllocator(ctx, opts...)
	s.browserCtx, s.browserCancel = chromedp.NewContext(s.allocCtx)

	// Force the browser process up now so launch failures surface here and
	// not inside the first navigation.
	if err := chromedp.Run(s.browserCtx); err != nil {
		s.browserCancel()
		s.allocCancel()
		return nil, fmt.Errorf("browser: launching chrome: %w", err)
	}

	s.page = newPage(s.browserCtx, s.logger)
	s.logger.Info("Browser session started.",
		zap.String("session_id", s.ID),
		zap.Bool("headless", cfg.Headless),
		zap.Int("width", cfg.WindowWidth),
		zap.Int("height", cfg.WindowHeight))
	return s, nil
}

// Page returns the accessor for the session's page target.
func (s *Session) Page() *Page { return s.page }

// Close tears down the page target and the Chrome process.
func (s *Session) Close() {
	s.logger.Info("Closing browser session.", zap.String("session_id", s.ID))
	s.browserCancel()
	s.allocCancel()
}
