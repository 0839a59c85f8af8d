package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/panics"

	"github.com/wilhg/toolbridge/pkg/errmodel"
)

// SafeInvoke validates args against the entry's schema and executes the tool.
//
// Validation failures are returned as-is (MissingParameter, InvalidParameter)
// and the tool never runs. Execute runs in its own goroutine; SafeInvoke waits
// for it under ctx and, when timeout > 0, a per-call deadline. Errors, panics,
// cancellation and deadline expiry are all reported as ExecutionFailed. A tool
// that outlives its deadline is left to finish and its result is dropped.
func SafeInvoke(ctx context.Context, e *Entry, args Arguments, timeout time.Duration) (any, error) {
	if e == nil {
		return nil, errmodel.Internal("nil tool entry", nil)
	}
	if args == nil {
		args = Arguments{}
	}
	if err := e.Descriptor.Schema.Validate(args); err != nil {
		return nil, err
	}

	name := e.Descriptor.Name
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return nil, errmodel.ExecutionFailed(name, err)
	}

	type outcome struct {
		value any
		err   error
	}
	// Buffered so an abandoned tool goroutine can still deliver and exit.
	done := make(chan outcome, 1)
	go func() {
		var (
			out outcome
			pc  panics.Catcher
		)
		pc.Try(func() { out.value, out.err = e.Tool.Execute(ctx, args) })
		if rec := pc.Recovered(); rec != nil {
			out = outcome{err: fmt.Errorf("tool panicked: %v", rec.Value)}
		}
		done <- out
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, errmodel.ExecutionFailed(name, out.err)
		}
		return out.value, nil
	case <-ctx.Done():
		return nil, errmodel.ExecutionFailed(name, ctx.Err())
	}
}
