// internal/browser/driver/context.go
package driver

import (
	"context"
)

// CombineContext derives a context from primary (which carries the chromedp
// target) that is also canceled when secondary is done. Values come from
// primary only.
func CombineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)

	if deadline, ok := secondary.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		combined, cancelDeadline = context.WithDeadline(combined, deadline)
		inner := cancel
		cancel = func() {
			cancelDeadline()
			inner()
		}
	}

	go func() {
		select {
		case <-secondary.Done():
			cancel()
		case <-combined.Done():
		}
	}()

	return combined, cancel
}

// Detach returns a context carrying ctx's values that is never canceled.
// Diagnostic captures use it so they still run after a case deadline fires.
func Detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
