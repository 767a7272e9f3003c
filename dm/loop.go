package dm

import (
	"context"
)

// A Loop runs functions one at a time on a single goroutine. Posting every
// call on a Context to the same Loop gives the serialization Context
// relies on.
type Loop struct {
	q chan func()
}

// NewLoop returns a Loop that queues up to n pending functions.
func NewLoop(n int) *Loop {
	return &Loop{q: make(chan func(), n)}
}

// Run executes posted functions until ctx is done, and returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case fn := <-l.q:
			fn()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Post queues fn and returns without waiting for it to run.
// It blocks while the queue is full, until ctx is done.
func (l *Loop) Post(ctx context.Context, fn func()) error {
	select {
	case l.q <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do queues fn and waits until it has run or ctx is done.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if err := l.Post(ctx, func() {
		defer close(done)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
