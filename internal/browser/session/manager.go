// internal/browser/session/manager.go
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formcheck/internal/browser/driver"
	"github.com/xkilldash9x/formcheck/internal/config"
)

const closeTimeout = 10 * time.Second

// Manager launches one browser per session and tracks the open ones so a
// run can release everything on shutdown.
type Manager struct {
	cfg    config.BrowserConfig
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	wg       sync.WaitGroup
}

// NewManager creates a manager. Browsers are launched lazily by NewSession.
func NewManager(cfg config.BrowserConfig, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cfg:      cfg,
		logger:   logger.Named("browser_manager"),
		sessions: make(map[string]*Session),
	}
}

// Flags returns the Chromium command-line switches for cfg, keyed without
// the leading dashes.
func Flags(cfg config.BrowserConfig) map[string]interface{} {
	flags := map[string]interface{}{
		"headless":               cfg.Headless,
		"no-sandbox":             true,
		"disable-gpu":            true,
		"disable-dev-shm-usage":  true,
		"window-size":            fmt.Sprintf("%d,%d", cfg.ViewportWidth, cfg.ViewportHeight),
		"disable-popup-blocking": true,
	}
	for _, arg := range cfg.Args {
		name, value := parseArg(arg)
		if name != "" {
			flags[name] = value
		}
	}
	return flags
}

// parseArg turns "--name=value" into ("name", "value") and "--name" into
// ("name", true).
func parseArg(arg string) (string, interface{}) {
	arg = strings.TrimLeft(strings.TrimSpace(arg), "-")
	if name, value, ok := strings.Cut(arg, "="); ok {
		return name, value
	}
	return arg, true
}

// AllocatorOptions builds the exec allocator options for cfg.
func AllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for name, value := range Flags(cfg) {
		opts = append(opts, chromedp.Flag(name, value))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

// NewSession launches a fresh browser, opens a tab sized to the configured
// viewport and returns it registered with the manager.
func (m *Manager) NewSession(ctx context.Context) (*Session, error) {
	id := uuid.NewString()
	logger := m.logger.With(zap.String("session_id", id))

	// The browser must outlive the caller's ctx; only launch is bounded by it.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), AllocatorOptions(m.cfg)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logger.Sugar().Debugf),
		chromedp.WithErrorf(logger.Sugar().Warnf),
	)

	s := &Session{
		id:          id,
		logger:      logger,
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
	}

	launchCtx, cancel := context.WithTimeout(ctx, m.cfg.LaunchTimeout)
	defer cancel()

	// The first Run starts the process and is tied to the context it gets,
	// so it runs on tabCtx itself and the launch budget is enforced here.
	started := make(chan error, 1)
	go func() {
		started <- chromedp.Run(tabCtx)
	}()
	select {
	case err := <-started:
		if err != nil {
			tabCancel()
			allocCancel()
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
	case <-launchCtx.Done():
		tabCancel()
		allocCancel()
		<-started
		return nil, fmt.Errorf("failed to launch browser within %s: %w", m.cfg.LaunchTimeout, launchCtx.Err())
	}

	runCtx, runCancel := driver.CombineContext(tabCtx, launchCtx)
	defer runCancel()
	if err := chromedp.Run(runCtx, chromedp.EmulateViewport(int64(m.cfg.ViewportWidth), int64(m.cfg.ViewportHeight))); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}
	s.drv = driver.NewCDP(tabCtx, logger)

	m.wg.Add(1)
	s.onClose = func() {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		m.wg.Done()
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	logger.Info("Browser session started.",
		zap.Bool("headless", m.cfg.Headless),
		zap.Int("viewport_width", m.cfg.ViewportWidth),
		zap.Int("viewport_height", m.cfg.ViewportHeight),
	)
	return s, nil
}

// Active returns the number of sessions not yet closed.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown closes every session still open and waits for them to finish.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	open := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		open = append(open, s)
	}
	m.mu.Unlock()

	if len(open) > 0 {
		m.logger.Warn("Closing sessions left open at shutdown.", zap.Int("count", len(open)))
	}
	for _, s := range open {
		go func(s *Session) {
			closeCtx, cancel := context.WithTimeout(ctx, closeTimeout)
			defer cancel()
			if err := s.Close(closeCtx); err != nil {
				m.logger.Warn("Error closing session during shutdown.", zap.String("session_id", s.ID()), zap.Error(err))
			}
		}(s)
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for sessions to close: %w", ctx.Err())
	}
}
