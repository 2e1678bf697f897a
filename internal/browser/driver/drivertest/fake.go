// Package drivertest provides an in-memory driver.Driver for exercising the
// action, page and suite layers without a browser.
package drivertest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/xkilldash9x/formcheck/internal/browser/driver"
)

// PNG is the image every successful Screenshot returns.
var PNG = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 'f', 'a', 'k', 'e'}

// Element kinds that change checked state when clicked.
const (
	Checkbox = "checkbox"
	Radio    = "radio"
)

// Element is the fake's view of a DOM element.
type Element struct {
	Visible bool
	Enabled bool
	// Kind is Checkbox, Radio or empty.
	Kind    string
	Checked bool
	Value   string
	Options []string
	// Selected holds the label chosen by SelectOption.
	Selected string
	// Intercepted makes every native Click fail with ErrClickIntercepted.
	Intercepted bool
	// HiddenPolls is the number of Visible/Interactable calls that report
	// false before the element shows up.
	HiddenPolls int
	// OnClick runs after a successful native or script click.
	OnClick func(f *Fake)
}

// Fake is a scriptable driver.Driver. The zero value is not usable; call New.
type Fake struct {
	mu         sync.Mutex
	elements   map[string]*Element
	title      string
	dialog     *driver.Dialog
	calls      []string
	errs       map[string]error
	onNavigate func(f *Fake, url string)

	// ScreenshotErr, when set, is returned by Screenshot.
	ScreenshotErr error
}

var _ driver.Driver = (*Fake)(nil)

// New returns an empty fake with no elements and an empty title.
func New() *Fake {
	return &Fake{
		elements: make(map[string]*Element),
		errs:     make(map[string]error),
	}
}

// Set adds or replaces the element matched by css.
func (f *Fake) Set(css string, el *Element) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.elements[css] = el
	return f
}

// Remove deletes the element matched by css.
func (f *Fake) Remove(css string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.elements, css)
}

// Element returns a copy of the element matched by css.
func (f *Fake) Element(css string) (Element, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	el, ok := f.elements[css]
	if !ok {
		return Element{}, false
	}
	return *el, true
}

// SetTitle sets the document title.
func (f *Fake) SetTitle(title string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.title = title
}

// OpenDialog simulates a native alert.
func (f *Fake) OpenDialog(message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dialog = &driver.Dialog{Type: "alert", Message: message}
}

// OnNavigate installs a hook that runs on every Navigate call.
func (f *Fake) OnNavigate(hook func(f *Fake, url string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onNavigate = hook
}

// FailOn makes the named method fail with err for css ("" for methods that
// take no selector), e.g. FailOn("SendKeys", "#email", err).
func (f *Fake) FailOn(method, css string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[method+" "+css] = err
}

// Calls returns the log of driver calls, e.g. "Click #loginBtn".
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// record must be called with f.mu held.
func (f *Fake) record(method, css string, extra ...string) error {
	entry := method
	if css != "" {
		entry += " " + css
	}
	for _, e := range extra {
		entry += " " + e
	}
	f.calls = append(f.calls, entry)
	return f.errs[method+" "+css]
}

func (f *Fake) Navigate(_ context.Context, url string) error {
	f.mu.Lock()
	if err := f.record("Navigate", url); err != nil {
		f.mu.Unlock()
		return err
	}
	hook := f.onNavigate
	f.mu.Unlock()
	if hook != nil {
		hook(f, url)
	}
	return nil
}

func (f *Fake) Title(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.blocked(); err != nil {
		return "", err
	}
	return f.title, f.errs["Title "]
}

func (f *Fake) visible(css string) bool {
	el, ok := f.elements[css]
	if !ok {
		return false
	}
	if el.HiddenPolls > 0 {
		el.HiddenPolls--
		return false
	}
	return el.Visible
}

func (f *Fake) Visible(_ context.Context, css string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.blocked(); err != nil {
		return false, err
	}
	if err := f.errs["Visible "+css]; err != nil {
		return false, err
	}
	return f.visible(css), nil
}

func (f *Fake) Interactable(_ context.Context, css string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.blocked(); err != nil {
		return false, err
	}
	if !f.visible(css) {
		return false, nil
	}
	return f.elements[css].Enabled, nil
}

func (f *Fake) Click(ctx context.Context, css string) error {
	f.mu.Lock()
	if err := f.record("Click", css); err != nil {
		f.mu.Unlock()
		return err
	}
	el, ok := f.elements[css]
	switch {
	case !ok || !el.Visible:
		f.mu.Unlock()
		return fmt.Errorf("%w: %s", driver.ErrNoSuchElement, css)
	case el.Intercepted:
		f.mu.Unlock()
		return fmt.Errorf("%w: %s", driver.ErrClickIntercepted, css)
	}
	return f.activate(el)
}

func (f *Fake) ScriptClick(_ context.Context, css string) error {
	f.mu.Lock()
	if err := f.record("ScriptClick", css); err != nil {
		f.mu.Unlock()
		return err
	}
	el, ok := f.elements[css]
	if !ok {
		f.mu.Unlock()
		return fmt.Errorf("%w: %s", driver.ErrNoSuchElement, css)
	}
	return f.activate(el)
}

// activate is entered with f.mu held and releases it before running hooks.
func (f *Fake) activate(el *Element) error {
	switch el.Kind {
	case Checkbox:
		el.Checked = !el.Checked
	case Radio:
		el.Checked = true
	}
	hook := el.OnClick
	f.mu.Unlock()
	if hook != nil {
		hook(f)
	}
	return nil
}

func (f *Fake) Clear(_ context.Context, css string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Clear", css); err != nil {
		return err
	}
	el, ok := f.elements[css]
	if !ok {
		return fmt.Errorf("%w: %s", driver.ErrNoSuchElement, css)
	}
	el.Value = ""
	return nil
}

func (f *Fake) SendKeys(_ context.Context, css, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SendKeys", css, text); err != nil {
		return err
	}
	el, ok := f.elements[css]
	if !ok {
		return fmt.Errorf("%w: %s", driver.ErrNoSuchElement, css)
	}
	el.Value += text
	return nil
}

func (f *Fake) Checked(_ context.Context, css string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	el, ok := f.elements[css]
	if !ok {
		return false, fmt.Errorf("%w: %s", driver.ErrNoSuchElement, css)
	}
	return el.Checked, nil
}

func (f *Fake) SelectOptions(_ context.Context, css string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	el, ok := f.elements[css]
	if !ok {
		return nil, fmt.Errorf("%w: %s", driver.ErrNoSuchElement, css)
	}
	return append([]string(nil), el.Options...), nil
}

func (f *Fake) SelectOption(_ context.Context, css, label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SelectOption", css, label); err != nil {
		return err
	}
	el, ok := f.elements[css]
	if !ok {
		return fmt.Errorf("%w: %s", driver.ErrNoSuchElement, css)
	}
	for _, o := range el.Options {
		if o == label {
			el.Selected = label
			return nil
		}
	}
	return fmt.Errorf("%w: option %q in %s", driver.ErrNoSuchElement, label, css)
}

func (f *Fake) Screenshot(_ context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dialog != nil {
		f.calls = append(f.calls, "Screenshot (blocked)")
		return nil, driver.ErrDialogOpen
	}
	f.calls = append(f.calls, "Screenshot")
	if f.ScreenshotErr != nil {
		return nil, f.ScreenshotErr
	}
	return append([]byte(nil), PNG...), nil
}

func (f *Fake) DialogOpen(_ context.Context) (*driver.Dialog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dialog == nil {
		return nil, nil
	}
	d := *f.dialog
	return &d, nil
}

func (f *Fake) AcceptDialog(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("AcceptDialog", ""); err != nil {
		return err
	}
	if f.dialog == nil {
		return driver.ErrNoDialog
	}
	f.dialog = nil
	return nil
}

// blocked must be called with f.mu held.
func (f *Fake) blocked() error {
	if f.dialog != nil {
		return driver.ErrDialogOpen
	}
	return nil
}

// ErrInjected is a convenience error for FailOn.
var ErrInjected = errors.New("drivertest: injected failure")
