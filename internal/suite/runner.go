// Package suite runs the form scenario for every test case row.
package suite

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/formcheck/internal/browser/action"
	"github.com/xkilldash9x/formcheck/internal/browser/driver"
	"github.com/xkilldash9x/formcheck/internal/browser/session"
	"github.com/xkilldash9x/formcheck/internal/cases"
	"github.com/xkilldash9x/formcheck/internal/config"
	"github.com/xkilldash9x/formcheck/internal/observability"
	"github.com/xkilldash9x/formcheck/internal/reporting"
)

const (
	captureTimeout = 15 * time.Second
	releaseTimeout = 15 * time.Second
)

// Browser is a live session owned by one case.
type Browser interface {
	ID() string
	Driver() driver.Driver
	Close(ctx context.Context) error
}

// SessionFactory hands out a fresh Browser per case.
type SessionFactory interface {
	NewSession(ctx context.Context) (Browser, error)
}

// ContentServer hosts the application under test for the duration of a run.
type ContentServer interface {
	Start(ctx context.Context) error
	URL() string
	Shutdown(ctx context.Context) error
}

type managerSessions struct {
	m *session.Manager
}

func (s managerSessions) NewSession(ctx context.Context) (Browser, error) {
	sess, err := s.m.NewSession(ctx)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// ChromeSessions adapts a session.Manager to SessionFactory.
func ChromeSessions(m *session.Manager) SessionFactory {
	return managerSessions{m: m}
}

// Options configures a Runner. Config, Sessions and Sink are required.
type Options struct {
	Config   config.Interface
	Logger   *zap.Logger
	Sessions SessionFactory
	Sink     reporting.Sink
	// Server is optional; without it suite.base_url must point at a running app.
	Server ContentServer
	// Scenario defaults to FormScenario with the configured default skill.
	Scenario Scenario
}

// Runner owns the run-scoped resources and executes cases.
type Runner struct {
	cfg      config.Interface
	logger   *zap.Logger
	sessions SessionFactory
	sink     reporting.Sink
	server   ContentServer
	scenario Scenario

	mu      sync.Mutex
	baseURL string
	started bool
}

// New validates opts and creates a Runner.
func New(opts Options) (*Runner, error) {
	if opts.Config == nil {
		return nil, errors.New("suite: config is required")
	}
	if opts.Sessions == nil {
		return nil, errors.New("suite: session factory is required")
	}
	if opts.Sink == nil {
		return nil, errors.New("suite: reporting sink is required")
	}
	if opts.Server == nil && opts.Config.Suite().BaseURL == "" {
		return nil, errors.New("suite: base URL is required when no content server is given")
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.GetLogger()
	}
	scenario := opts.Scenario
	if scenario == nil {
		scenario = FormScenario(opts.Config.Suite().DefaultSkill)
	}
	return &Runner{
		cfg:      opts.Config,
		logger:   logger.Named("suite"),
		sessions: opts.Sessions,
		sink:     opts.Sink,
		server:   opts.Server,
		scenario: scenario,
		baseURL:  opts.Config.Suite().BaseURL,
	}, nil
}

// Start brings up the content server, if any, and waits the settle delay.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}
	if r.server != nil {
		if err := r.server.Start(ctx); err != nil {
			return fmt.Errorf("start content server: %w", err)
		}
		if r.baseURL == "" {
			r.baseURL = r.server.URL()
		}
		if delay := r.cfg.Server().SettleDelay; delay > 0 {
			r.logger.Debug("Waiting for content server to settle.", zap.Duration("delay", delay))
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				_ = r.server.Shutdown(context.WithoutCancel(ctx))
				return ctx.Err()
			}
		}
	}
	r.started = true
	r.logger.Info("Suite started.", zap.String("base_url", r.baseURL))
	return nil
}

// Stop shuts the content server down.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return nil
	}
	r.started = false
	if r.server == nil {
		return nil
	}
	return r.server.Shutdown(ctx)
}

// BaseURL is the root URL cases navigate under.
func (r *Runner) BaseURL() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.baseURL
}

// Actions builds the action layer for one case over drv.
func (r *Runner) Actions(drv driver.Driver, caseName string, logger *zap.Logger) *action.Wrapper {
	b := r.cfg.Browser()
	return action.New(drv, r.sink, logger,
		action.WithCaseName(caseName),
		action.WithElementTimeout(b.ElementTimeout),
		action.WithAlertTimeout(b.AlertTimeout),
		action.WithPollInterval(b.PollInterval),
	)
}

// RunCase runs the scenario for row in its own session. A failed case gets
// one "orchestration-failure <case>" screenshot; the session is always
// released.
func (r *Runner) RunCase(ctx context.Context, row cases.Row) CaseResult {
	name := row.Name()
	res := CaseResult{Name: name, Row: row}
	start := time.Now()

	caseCtx, cancel := context.WithTimeout(ctx, r.cfg.Suite().CaseTimeout)
	defer cancel()

	logger := r.logger.With(zap.String("case", name))
	logger.Info("Starting case.")

	b, err := r.sessions.NewSession(caseCtx)
	if err != nil {
		res.Err = fmt.Errorf("acquire browser session: %w", err)
		logger.Error("Case failed before start.", zap.Error(res.Err))
		res.Duration = time.Since(start)
		return res
	}
	res.SessionID = b.ID()
	logger = observability.ForCase(r.logger, name, b.ID())

	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if err := b.Close(releaseCtx); err != nil {
			logger.Warn("Failed to release browser session.", zap.Error(err))
		}
	}()

	a := r.Actions(b.Driver(), name, logger)
	if err := r.scenario(caseCtx, a, r.BaseURL(), row); err != nil {
		res.Err = err
		r.CaptureFailure(ctx, a, name)
		if kind, ok := action.KindOf(err); ok {
			logger.Error("Case failed.", zap.Stringer("kind", kind), zap.Error(err))
		} else {
			logger.Error("Case failed.", zap.Error(err))
		}
		res.Duration = time.Since(start)
		return res
	}

	res.Duration = time.Since(start)
	logger.Info("Case passed.", zap.Duration("duration", res.Duration))
	return res
}

// CaptureFailure takes the single orchestration-level screenshot for a
// failed case. It runs even if ctx has already expired.
func (r *Runner) CaptureFailure(ctx context.Context, a action.Actions, caseName string) {
	captureCtx, cancel := context.WithTimeout(driver.Detach(ctx), captureTimeout)
	defer cancel()
	a.Screenshot(captureCtx, "orchestration-failure "+caseName)
}

// Run executes every row, at most suite.concurrency at a time, and
// summarizes the outcome. Case failures never stop other cases.
func (r *Runner) Run(ctx context.Context, rows []cases.Row) Summary {
	start := time.Now()
	results := make([]CaseResult, len(rows))

	var g errgroup.Group
	g.SetLimit(max(1, r.cfg.Suite().Concurrency))
	for i, row := range rows {
		g.Go(func() error {
			results[i] = r.RunCase(ctx, row)
			return nil
		})
	}
	_ = g.Wait()

	s := newSummary(results, time.Since(start))
	r.logger.Info("Suite finished.",
		zap.Int("total", len(results)),
		zap.Int("passed", s.Passed),
		zap.Int("failed", s.Failed),
		zap.Duration("duration", s.Duration),
	)
	return s
}
