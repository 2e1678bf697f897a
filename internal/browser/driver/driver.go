// internal/browser/driver/driver.go
package driver

import (
	"context"
	"errors"
)

var (
	// ErrNoSuchElement is returned when a selector matches nothing, or matches
	// an element that cannot take the requested operation yet.
	ErrNoSuchElement = errors.New("driver: no such element")
	// ErrClickIntercepted is returned by Click when another element would
	// receive the pointer event.
	ErrClickIntercepted = errors.New("driver: click intercepted by another element")
	// ErrNoDialog is returned by AcceptDialog when no native dialog is open.
	ErrNoDialog = errors.New("driver: no dialog open")
	// ErrDialogOpen is returned by operations the page cannot serve while a
	// native dialog blocks it.
	ErrDialogOpen = errors.New("driver: page is blocked by an open dialog")
)

// Element is a handle to an element located in the remote document. It is
// addressed by CSS selector so it survives re-renders between calls.
type Element struct {
	CSS string
}

// Dialog describes a native JavaScript dialog (alert, confirm, prompt).
type Dialog struct {
	Type    string
	Message string
}

// Driver is the remote browser automation surface. Selectors are CSS. All
// methods block until the remote side answers or ctx is done.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Title(ctx context.Context) (string, error)

	// Visible reports whether css matches an element that is rendered with a
	// non-zero box. A missing element is (false, nil).
	Visible(ctx context.Context, css string) (bool, error)
	// Interactable reports Visible plus not disabled.
	Interactable(ctx context.Context, css string) (bool, error)

	// Click dispatches a native pointer click at the element's center.
	Click(ctx context.Context, css string) error
	// ScriptClick invokes the element's click() from page script, bypassing
	// hit testing and interactability.
	ScriptClick(ctx context.Context, css string) error

	Clear(ctx context.Context, css string) error
	SendKeys(ctx context.Context, css, text string) error
	Checked(ctx context.Context, css string) (bool, error)

	// SelectOptions lists the visible labels of a <select>'s options in order.
	SelectOptions(ctx context.Context, css string) ([]string, error)
	// SelectOption picks the option whose visible label equals label.
	SelectOption(ctx context.Context, css, label string) error

	Screenshot(ctx context.Context) ([]byte, error)

	// DialogOpen returns the currently open native dialog, or nil.
	DialogOpen(ctx context.Context) (*Dialog, error)
	AcceptDialog(ctx context.Context) error
}
