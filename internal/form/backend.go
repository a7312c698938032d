package form

import "context"

// Backend delivers a validated snapshot.  Deliver blocks until the backend
// accepts or rejects the submission, or ctx ends.  Implementations live in
// internal/form/deliver.
type Backend interface {
	Deliver(ctx context.Context, s Snapshot) error
}

// BackendFunc adapts a plain function to Backend.
type BackendFunc func(ctx context.Context, s Snapshot) error

func (f BackendFunc) Deliver(ctx context.Context, s Snapshot) error { return f(ctx, s) }
