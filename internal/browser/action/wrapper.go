// internal/browser/action/wrapper.go
package action

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/formcheck/internal/browser/driver"
	"github.com/xkilldash9x/formcheck/internal/reporting"
)

const (
	DefaultElementTimeout = 10 * time.Second
	DefaultAlertTimeout   = 3 * time.Second
	DefaultPollInterval   = 100 * time.Millisecond

	passwordMask = "********"
)

// Actions is the capability page objects are built on.
type Actions interface {
	Navigate(ctx context.Context, url string) error
	Locate(ctx context.Context, loc Locator) (driver.Element, error)
	Click(ctx context.Context, loc Locator) error
	ForceClick(ctx context.Context, loc Locator) error
	Type(ctx context.Context, loc Locator, text string) error
	SelectByVisibleText(ctx context.Context, loc Locator, text string) error
	SelectRadioByValue(ctx context.Context, group, value string) error
	IsChecked(ctx context.Context, loc Locator) (bool, error)
	WaitForTitleContains(ctx context.Context, fragment string) error
	DismissAlertIfPresent(ctx context.Context) error
	Screenshot(ctx context.Context, label string)
	Narrate(text string)
}

// Wrapper implements Actions over a driver.Driver, narrating every step to
// a reporting.Sink.
type Wrapper struct {
	drv    driver.Driver
	sink   reporting.Sink
	logger *zap.Logger

	elementTimeout time.Duration
	alertTimeout   time.Duration
	pollInterval   time.Duration
	caseName       string
}

var _ Actions = (*Wrapper)(nil)

// Option configures a Wrapper.
type Option func(*Wrapper)

// WithElementTimeout sets the budget for element and title waits.
func WithElementTimeout(d time.Duration) Option {
	return func(w *Wrapper) { w.elementTimeout = d }
}

// WithAlertTimeout sets how long DismissAlertIfPresent watches for a dialog.
func WithAlertTimeout(d time.Duration) Option {
	return func(w *Wrapper) { w.alertTimeout = d }
}

// WithPollInterval sets the pause between condition checks.
func WithPollInterval(d time.Duration) Option {
	return func(w *Wrapper) { w.pollInterval = d }
}

// WithCaseName scopes narration and attachments to a test case.
func WithCaseName(name string) Option {
	return func(w *Wrapper) { w.caseName = name }
}

// New creates a Wrapper. A nil sink discards narration.
func New(drv driver.Driver, sink reporting.Sink, logger *zap.Logger, opts ...Option) *Wrapper {
	if sink == nil {
		sink = reporting.Null{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Wrapper{
		drv:            drv,
		sink:           sink,
		elementTimeout: DefaultElementTimeout,
		alertTimeout:   DefaultAlertTimeout,
		pollInterval:   DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = logger.Named("action")
	if w.caseName != "" {
		w.logger = w.logger.With(zap.String("case", w.caseName))
	}
	return w
}

// errBudget is internal; callers translate it into a typed failure.
var errBudget = errors.New("wait budget exhausted")

// poll calls cond every poll interval until it reports true, returns an
// error, or budget runs out (errBudget). Cancellation of ctx itself is
// returned as ctx.Err().
func (w *Wrapper) poll(ctx context.Context, budget time.Duration, cond func(context.Context) (bool, error)) error {
	waitCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(w.pollInterval), 1)
	for {
		if err := limiter.Wait(waitCtx); err != nil {
			return w.budgetOr(ctx)
		}
		ok, err := cond(waitCtx)
		if err != nil {
			if waitCtx.Err() != nil {
				return w.budgetOr(ctx)
			}
			return err
		}
		if ok {
			return nil
		}
	}
}

func (w *Wrapper) budgetOr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return errBudget
}

// Narrate records a line of narration.
func (w *Wrapper) Narrate(text string) {
	w.logger.Info(text)
	w.sink.Step(w.caseName, text)
}

func (w *Wrapper) Navigate(ctx context.Context, url string) error {
	w.Narrate("Navigating to " + url)
	return w.drv.Navigate(ctx, url)
}

// Locate waits for loc to be visible. On timeout a screenshot labeled
// "not-found <description>" is attached and a *NotFoundError returned.
func (w *Wrapper) Locate(ctx context.Context, loc Locator) (driver.Element, error) {
	css := loc.CSS()
	err := w.poll(ctx, w.elementTimeout, func(c context.Context) (bool, error) {
		return w.drv.Visible(c, css)
	})
	if err != nil {
		return driver.Element{}, w.notFound(ctx, loc, err)
	}
	return driver.Element{CSS: css}, nil
}

func (w *Wrapper) notFound(ctx context.Context, loc Locator, err error) error {
	if !errors.Is(err, errBudget) {
		return err
	}
	w.logger.Warn("Element not found.", zap.Stringer("locator", loc), zap.Duration("timeout", w.elementTimeout))
	w.Screenshot(ctx, "not-found "+loc.describe())
	return &NotFoundError{Locator: loc, Timeout: w.elementTimeout}
}

// Click waits for loc to be interactable and clicks it natively, falling
// back to a script click if another element intercepts the pointer.
func (w *Wrapper) Click(ctx context.Context, loc Locator) error {
	desc := loc.describe()
	w.Narrate("Clicking on " + desc)

	css := loc.CSS()
	err := w.poll(ctx, w.elementTimeout, func(c context.Context) (bool, error) {
		return w.drv.Interactable(c, css)
	})
	if err != nil {
		return w.notFound(ctx, loc, err)
	}

	err = w.drv.Click(ctx, css)
	if !errors.Is(err, driver.ErrClickIntercepted) {
		return err
	}
	w.Narrate(fmt.Sprintf("Click on %s intercepted, falling back to script click", desc))
	return w.drv.ScriptClick(ctx, css)
}

// ForceClick clicks loc from page script once it is visible, skipping the
// interactability check.
func (w *Wrapper) ForceClick(ctx context.Context, loc Locator) error {
	w.Narrate("Force clicking on " + loc.describe())
	el, err := w.Locate(ctx, loc)
	if err != nil {
		return err
	}
	return w.drv.ScriptClick(ctx, el.CSS)
}

// Type replaces the content of loc with text. Values typed into anything
// described as a password are masked in narration.
func (w *Wrapper) Type(ctx context.Context, loc Locator, text string) error {
	desc := loc.describe()
	shown := text
	if strings.Contains(strings.ToLower(desc), "password") {
		shown = passwordMask
	}
	w.Narrate(fmt.Sprintf("Typing '%s' into %s", shown, desc))

	el, err := w.Locate(ctx, loc)
	if err != nil {
		return err
	}
	if err := w.drv.Clear(ctx, el.CSS); err != nil {
		return err
	}
	return w.drv.SendKeys(ctx, el.CSS, text)
}

// SelectByVisibleText picks the option of the <select> at loc whose label
// is exactly text.
func (w *Wrapper) SelectByVisibleText(ctx context.Context, loc Locator, text string) error {
	desc := loc.describe()
	w.Narrate(fmt.Sprintf("Selecting '%s' in %s", text, desc))

	el, err := w.Locate(ctx, loc)
	if err != nil {
		return err
	}
	labels, err := w.drv.SelectOptions(ctx, el.CSS)
	if err != nil {
		return err
	}
	if !slices.Contains(labels, text) {
		w.logger.Warn("Option not found.", zap.String("option", text), zap.Strings("available", labels))
		w.Screenshot(ctx, "option-not-found "+desc)
		return &OptionNotFoundError{Locator: loc, Text: text, Available: labels}
	}
	return w.drv.SelectOption(ctx, el.CSS, text)
}

// RadioLocator locates the radio button with value in group.
func RadioLocator(group, value string) Locator {
	return Query(
		fmt.Sprintf(`input[type="radio"][name="%s"][value="%s"]`, group, value),
		fmt.Sprintf("%s option '%s'", group, value),
	)
}

// SelectRadioByValue force-clicks the radio button with value in group.
func (w *Wrapper) SelectRadioByValue(ctx context.Context, group, value string) error {
	return w.ForceClick(ctx, RadioLocator(group, value))
}

// IsChecked reports the checked state of the checkbox or radio at loc.
func (w *Wrapper) IsChecked(ctx context.Context, loc Locator) (bool, error) {
	el, err := w.Locate(ctx, loc)
	if err != nil {
		return false, err
	}
	return w.drv.Checked(ctx, el.CSS)
}

// WaitForTitleContains waits for the document title to contain fragment.
func (w *Wrapper) WaitForTitleContains(ctx context.Context, fragment string) error {
	var last string
	err := w.poll(ctx, w.elementTimeout, func(c context.Context) (bool, error) {
		title, err := w.drv.Title(c)
		if err != nil {
			return false, err
		}
		last = title
		return strings.Contains(title, fragment), nil
	})
	if err == nil {
		return nil
	}
	if !errors.Is(err, errBudget) {
		return err
	}
	w.logger.Warn("Title wait timed out.", zap.String("fragment", fragment), zap.String("title", last))
	w.Screenshot(ctx, "navigation "+fragment)
	return &NavigationError{Fragment: fragment, Actual: last, Timeout: w.elementTimeout}
}

// DismissAlertIfPresent accepts a native dialog if one opens within the
// alert timeout. No dialog is not an error.
func (w *Wrapper) DismissAlertIfPresent(ctx context.Context) error {
	var dlg *driver.Dialog
	err := w.poll(ctx, w.alertTimeout, func(c context.Context) (bool, error) {
		d, err := w.drv.DialogOpen(c)
		if err != nil {
			return false, err
		}
		dlg = d
		return d != nil, nil
	})
	switch {
	case errors.Is(err, errBudget):
		w.logger.Debug("No alert appeared.", zap.Duration("timeout", w.alertTimeout))
		return nil
	case err != nil:
		return err
	}

	w.Narrate("Alert present: " + dlg.Message)
	return w.drv.AcceptDialog(ctx)
}

// Screenshot attaches a capture of the page under label. Failures are
// logged and dropped. Nothing is captured while a dialog is open.
func (w *Wrapper) Screenshot(ctx context.Context, label string) {
	if dlg, _ := w.drv.DialogOpen(ctx); dlg != nil {
		w.logger.Debug("Skipping screenshot while a dialog is open.", zap.String("label", label))
		return
	}
	png, err := w.drv.Screenshot(ctx)
	if err != nil {
		w.logger.Warn("Failed to capture screenshot.", zap.String("label", label), zap.Error(err))
		return
	}
	w.sink.Attach(w.caseName, label, png)
}
