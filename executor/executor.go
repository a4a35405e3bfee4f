// Package executor performs the update action for a single target
package executor

import (
	"context"

	"code.linksmart.eu/dt/pupdate/model"
)

// Executor performs the update action for one target.
//	The returned outcome is always populated; err is a *TransportError when the
//	mechanism could not be invoked, in which case the outcome is a failure.
type Executor interface {
	Execute(ctx context.Context, target string) (model.Outcome, error)
}

// Func adapts a function to the Executor interface
type Func func(ctx context.Context, target string) (model.Outcome, error)

func (f Func) Execute(ctx context.Context, target string) (model.Outcome, error) {
	return f(ctx, target)
}
