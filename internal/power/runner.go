package power

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	apperrors "ec2ctl/pkg/errors"
	"ec2ctl/pkg/logging"

	"golang.org/x/sync/errgroup"
)

// Runner executes one operation across many instances concurrently.
// A failing task never cancels or delays the others.
type Runner struct {
	Executor Executor
	// Parallel bounds the tasks in flight. Zero launches every task at once.
	Parallel int
	Reporter *Reporter
	Logger   *logging.Logger
}

// Run launches a task per unique identifier and returns results in input order.
// Unless Parallel is set, every request is issued before any task is awaited.
func (r *Runner) Run(ctx context.Context, op Operation, identifiers []string) []Result {
	unique := Dedupe(identifiers)
	results := make([]Result, len(unique))

	r.logger().Debug("Running power operation", "operation", op, "instances", len(unique), "parallel", ParallelLabel(r.Parallel))

	// Plain Group, not WithContext: one task's error must not cancel the rest
	var g errgroup.Group
	if r.Parallel > 0 {
		g.SetLimit(r.Parallel)
	}

	for i, identifier := range unique {
		g.Go(func() error {
			results[i] = r.runTask(ctx, op, identifier)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (r *Runner) runTask(ctx context.Context, op Operation, identifier string) (result Result) {
	start := time.Now()
	result = Result{Identifier: identifier, Operation: op}

	defer func() {
		if p := recover(); p != nil {
			result.Outcome = OutcomeError
			result.Err = fmt.Errorf("panic during %s of %s: %v", op, identifier, p)
		}
		result.Duration = time.Since(start)
		r.Reporter.Finished(result)
	}()

	transition, err := r.Executor.Execute(ctx, Task{
		Operation:  op,
		Identifier: identifier,
		OnRequested: func(instanceID string) {
			r.Reporter.Requested(op, identifier, instanceID)
		},
	})

	switch {
	case err == nil:
		result.Outcome = OutcomeSuccess
		if transition != nil {
			result.InstanceID = transition.InstanceID
			result.PreviousState = transition.PreviousState
			result.FinalState = transition.CurrentState
			result.Waited = transition.Waited
		}
	case apperrors.IsPrecondition(err):
		result.Outcome = OutcomePreconditionFailed
		result.Err = err
		fillFromPrecondition(&result, err)
	default:
		result.Outcome = OutcomeError
		result.Err = err
	}

	return result
}

func fillFromPrecondition(result *Result, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return
	}
	if id, ok := appErr.GetContext("instance_id"); ok {
		result.InstanceID, _ = id.(string)
	}
	if state, ok := appErr.GetContext("state"); ok {
		result.PreviousState, _ = state.(string)
		result.FinalState = result.PreviousState
	}
}

func (r *Runner) logger() *logging.Logger {
	if r.Logger == nil {
		return logging.NewNoOpLogger()
	}
	return r.Logger
}

// ParallelLabel renders a pool bound for log lines and the summary
func ParallelLabel(parallel int) string {
	if parallel <= 0 {
		return "all"
	}
	return strconv.Itoa(parallel)
}

// Dedupe drops empty and repeated identifiers, keeping first occurrences in order
func Dedupe(identifiers []string) []string {
	seen := make(map[string]bool, len(identifiers))
	out := make([]string, 0, len(identifiers))
	for _, id := range identifiers {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
