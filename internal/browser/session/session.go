// internal/browser/session/session.go
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formcheck/internal/browser/driver"
)

// Session is one headless Chromium owned by exactly one test case. It must
// be released with Close, which is idempotent.
type Session struct {
	id     string
	logger *zap.Logger

	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	drv         *driver.CDP

	closeOnce sync.Once
	closeErr  error
	onClose   func()
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Driver returns the remote driver bound to this session's tab.
func (s *Session) Driver() driver.Driver {
	return s.drv
}

// Context returns the chromedp tab context. It is done once the session is
// closed.
func (s *Session) Context() context.Context {
	return s.tabCtx
}

// Close shuts down the tab and then the browser process. ctx bounds the
// graceful part; the process is killed regardless once ctx is done.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.logger.Debug("Closing browser session.")

		done := make(chan error, 1)
		go func() {
			done <- chromedp.Cancel(s.tabCtx)
		}()

		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				s.closeErr = fmt.Errorf("failed to close browser tab: %w", err)
			}
		case <-ctx.Done():
			s.closeErr = fmt.Errorf("timed out closing browser tab: %w", ctx.Err())
		}

		s.tabCancel()
		s.allocCancel()

		if s.onClose != nil {
			s.onClose()
		}
		s.logger.Info("Browser session closed.")
	})
	return s.closeErr
}
