// internal/browser/action/errors.go
package action

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind classifies the failures the action layer raises itself, as opposed
// to driver faults it passes through.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindOptionNotFound
	KindNavigation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not-found"
	case KindOptionNotFound:
		return "option-not-found"
	case KindNavigation:
		return "navigation"
	default:
		return "unknown"
	}
}

var (
	// ErrTimeout is matched by every failure caused by a wait budget running out.
	ErrTimeout = errors.New("timed out waiting for condition")
	// ErrOptionNotFound is matched by OptionNotFoundError.
	ErrOptionNotFound = errors.New("option not found")
)

// NotFoundError reports that an element never became visible (or
// interactable, for clicks) within the wait budget.
type NotFoundError struct {
	Locator Locator
	Timeout time.Duration
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("element %q (%s) not found within %s", e.Locator.describe(), e.Locator, e.Timeout)
}

func (e *NotFoundError) Kind() Kind    { return KindNotFound }
func (e *NotFoundError) Unwrap() error { return ErrTimeout }

// OptionNotFoundError reports that a <select> has no option with the wanted
// visible label.
type OptionNotFoundError struct {
	Locator   Locator
	Text      string
	Available []string
}

func (e *OptionNotFoundError) Error() string {
	return fmt.Sprintf("option %q not found in %q (available: %s)", e.Text, e.Locator.describe(), strings.Join(e.Available, ", "))
}

func (e *OptionNotFoundError) Kind() Kind    { return KindOptionNotFound }
func (e *OptionNotFoundError) Unwrap() error { return ErrOptionNotFound }

// NavigationError reports that the page title never contained Fragment.
type NavigationError struct {
	Fragment string
	Actual   string
	Timeout  time.Duration
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("title did not contain %q within %s (last title %q)", e.Fragment, e.Timeout, e.Actual)
}

func (e *NavigationError) Kind() Kind    { return KindNavigation }
func (e *NavigationError) Unwrap() error { return ErrTimeout }

// KindOf reports the Kind of the first action failure in err's chain.
func KindOf(err error) (Kind, bool) {
	var k interface{ Kind() Kind }
	if errors.As(err, &k) {
		return k.Kind(), true
	}
	return 0, false
}
