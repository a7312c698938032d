// Package deliver holds the backends a contact submission can be delivered
// through.  Each satisfies form.Backend: it blocks until the submission is
// accepted or rejected, and returns an error the controller turns into the
// failure path.
//
// Errors are classified with two sentinels so callers can tell "try again
// later" (ErrUnavailable) from "this will never work" (ErrRejected).  Nothing
// here retries; retry is the user's decision.
package deliver

import (
	"context"
	"errors"
	"fmt"

	"github.com/yanizio/contact/internal/form"
)

var (
	// ErrUnavailable marks transient transport failures: network errors,
	// 5xx responses, an open circuit breaker, a full queue.
	ErrUnavailable = errors.New("deliver: backend unavailable")
	// ErrRejected marks permanent failures such as a 4xx response.
	ErrRejected = errors.New("deliver: submission rejected")
)

// Chain delivers through each backend in order and stops at the first error.
type Chain []form.Backend

func (c Chain) Deliver(ctx context.Context, s form.Snapshot) error {
	for i, b := range c {
		if err := b.Deliver(ctx, s); err != nil {
			return fmt.Errorf("backend %d: %w", i, err)
		}
	}
	return nil
}
