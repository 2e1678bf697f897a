// internal/browser/driver/chromedp.go
package driver

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// CDP implements Driver over the Chrome DevTools Protocol for a single tab.
type CDP struct {
	ctx    context.Context // tab context from chromedp.NewContext
	logger *zap.Logger

	mu     sync.Mutex
	dialog *Dialog
}

var _ Driver = (*CDP)(nil)

// NewCDP wraps an already started chromedp tab context. Native dialogs are
// tracked from target events and left open until AcceptDialog.
func NewCDP(tabCtx context.Context, logger *zap.Logger) *CDP {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &CDP{ctx: tabCtx, logger: logger.Named("cdp_driver")}

	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *page.EventJavascriptDialogOpening:
			d.mu.Lock()
			d.dialog = &Dialog{Type: string(e.Type), Message: e.Message}
			d.mu.Unlock()
			d.logger.Debug("Dialog opened.", zap.String("type", string(e.Type)), zap.String("message", e.Message))
		case *page.EventJavascriptDialogClosed:
			d.mu.Lock()
			d.dialog = nil
			d.mu.Unlock()
		}
	})
	return d
}

// run executes actions on the tab, bounded by the caller's ctx.
func (d *CDP) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(d.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// Evaluate runs script in the page and decodes its JSON result into out.
func (d *CDP) Evaluate(ctx context.Context, script string, out interface{}) error {
	return d.run(ctx, chromedp.Evaluate(script, out))
}

func (d *CDP) Navigate(ctx context.Context, url string) error {
	if err := d.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

func (d *CDP) Title(ctx context.Context) (string, error) {
	var title string
	if err := d.run(ctx, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

type elementState struct {
	Found   bool `json:"found"`
	Visible bool `json:"visible"`
	Enabled bool `json:"enabled"`
	Checked bool `json:"checked"`
}

func (d *CDP) state(ctx context.Context, css string) (elementState, error) {
	var st elementState
	err := d.Evaluate(ctx, fmt.Sprintf(stateScript, jsLiteral(css)), &st)
	return st, err
}

func (d *CDP) Visible(ctx context.Context, css string) (bool, error) {
	st, err := d.state(ctx, css)
	if err != nil {
		return false, err
	}
	return st.Found && st.Visible, nil
}

func (d *CDP) Interactable(ctx context.Context, css string) (bool, error) {
	st, err := d.state(ctx, css)
	if err != nil {
		return false, err
	}
	return st.Found && st.Visible && st.Enabled, nil
}

type hitTest struct {
	Found bool    `json:"found"`
	Hit   bool    `json:"hit"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

func (d *CDP) Click(ctx context.Context, css string) error {
	var ht hitTest
	if err := d.Evaluate(ctx, fmt.Sprintf(hitTestScript, jsLiteral(css)), &ht); err != nil {
		return err
	}
	if !ht.Found {
		return fmt.Errorf("%w: %s", ErrNoSuchElement, css)
	}
	if !ht.Hit {
		return fmt.Errorf("%w: %s", ErrClickIntercepted, css)
	}
	return d.run(ctx, chromedp.MouseClickXY(ht.X, ht.Y))
}

func (d *CDP) ScriptClick(ctx context.Context, css string) error {
	return d.expectFound(ctx, css, fmt.Sprintf(scriptClickScript, jsLiteral(css)))
}

func (d *CDP) Clear(ctx context.Context, css string) error {
	return d.expectFound(ctx, css, fmt.Sprintf(clearScript, jsLiteral(css)))
}

func (d *CDP) SendKeys(ctx context.Context, css, text string) error {
	if err := d.expectFound(ctx, css, fmt.Sprintf(focusScript, jsLiteral(css))); err != nil {
		return err
	}
	return d.run(ctx, chromedp.KeyEvent(text))
}

func (d *CDP) Checked(ctx context.Context, css string) (bool, error) {
	st, err := d.state(ctx, css)
	if err != nil {
		return false, err
	}
	if !st.Found {
		return false, fmt.Errorf("%w: %s", ErrNoSuchElement, css)
	}
	return st.Checked, nil
}

func (d *CDP) SelectOptions(ctx context.Context, css string) ([]string, error) {
	var res struct {
		Found  bool     `json:"found"`
		Labels []string `json:"labels"`
	}
	if err := d.Evaluate(ctx, fmt.Sprintf(optionsScript, jsLiteral(css)), &res); err != nil {
		return nil, err
	}
	if !res.Found {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchElement, css)
	}
	return res.Labels, nil
}

func (d *CDP) SelectOption(ctx context.Context, css, label string) error {
	var status string
	if err := d.Evaluate(ctx, fmt.Sprintf(selectScript, jsLiteral(css), jsLiteral(label)), &status); err != nil {
		return err
	}
	switch status {
	case "ok":
		return nil
	case "no-option":
		return fmt.Errorf("%w: option %q in %s", ErrNoSuchElement, label, css)
	default:
		return fmt.Errorf("%w: %s", ErrNoSuchElement, css)
	}
}

func (d *CDP) Screenshot(ctx context.Context) ([]byte, error) {
	if dlg, _ := d.DialogOpen(ctx); dlg != nil {
		return nil, ErrDialogOpen
	}
	var buf []byte
	if err := d.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (d *CDP) DialogOpen(_ context.Context) (*Dialog, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dialog == nil {
		return nil, nil
	}
	dlg := *d.dialog
	return &dlg, nil
}

func (d *CDP) AcceptDialog(ctx context.Context) error {
	if dlg, _ := d.DialogOpen(ctx); dlg == nil {
		return ErrNoDialog
	}
	if err := d.run(ctx, page.HandleJavaScriptDialog(true)); err != nil {
		return fmt.Errorf("accept dialog: %w", err)
	}
	d.mu.Lock()
	d.dialog = nil
	d.mu.Unlock()
	return nil
}

func (d *CDP) expectFound(ctx context.Context, css, script string) error {
	var found bool
	if err := d.Evaluate(ctx, script, &found); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNoSuchElement, css)
	}
	return nil
}

// jsLiteral renders v as a JavaScript literal for injection into scripts.
func jsLiteral(v interface{}) string {
	b, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}
