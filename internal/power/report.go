package power

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"ec2ctl/pkg/colors"
	"ec2ctl/pkg/logging"
)

// Reporter writes per-task progress lines and the batch summary.
// Lines from concurrent tasks are serialised. A nil Reporter is silent.
type Reporter struct {
	mu    sync.Mutex
	out   io.Writer
	quiet bool
}

// NewReporter creates a reporter writing to w. Quiet suppresses progress
// lines but keeps warnings, errors and the summary.
func NewReporter(w io.Writer, quiet bool) *Reporter {
	return &Reporter{out: w, quiet: quiet}
}

// Requested reports that AWS accepted the request for an instance
func (r *Reporter) Requested(op Operation, identifier, instanceID string) {
	if r == nil || r.quiet {
		return
	}
	label := Result{Identifier: identifier, InstanceID: instanceID}.Label()

	r.mu.Lock()
	defer r.mu.Unlock()
	colors.FprintData(r.out, "%s: %s...\n", label, op.Progressive())
}

// Finished reports a task's outcome as soon as it completes
func (r *Reporter) Finished(result Result) {
	if r == nil {
		return
	}

	switch result.Outcome {
	case OutcomeSuccess:
		logging.LogDebug("%s %s in %v", result.Label(), result.Operation.Past(), result.Duration)
		if r.quiet {
			return
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		if result.Waited {
			colors.FprintSuccess(r.out, "%s: %s\n", result.Label(), result.Operation.Past())
		} else {
			colors.FprintSuccess(r.out, "%s: %s requested\n", result.Label(), result.Operation)
		}
	case OutcomePreconditionFailed:
		r.mu.Lock()
		defer r.mu.Unlock()
		colors.FprintWarning(r.out, "[WARN] %s: %s; skipping %s\n",
			result.Label(), stateMismatch(result), result.Operation)
	default:
		r.mu.Lock()
		defer r.mu.Unlock()
		colors.FprintError(r.out, "[ERROR] %s: %s failed: %v\n", result.Label(), result.Operation, result.Err)
	}
}

func stateMismatch(result Result) string {
	if result.PreviousState == "" {
		return fmt.Sprintf("expected state %s", result.Operation.RequiredState())
	}
	return fmt.Sprintf("state is %s, expected %s", result.PreviousState, result.Operation.RequiredState())
}

// Summary aggregates the results of one batch
type Summary struct {
	Operation Operation
	Total     int
	Succeeded int
	Skipped   int
	Failed    int
	Parallel  int
	Duration  time.Duration
	Skips     []Result
	Failures  []Result
}

// Summarize counts outcomes, keeping skipped and failed results in input order
func Summarize(op Operation, results []Result, parallel int, duration time.Duration) Summary {
	summary := Summary{
		Operation: op,
		Total:     len(results),
		Parallel:  parallel,
		Duration:  duration,
	}
	for _, result := range results {
		switch result.Outcome {
		case OutcomeSuccess:
			summary.Succeeded++
		case OutcomePreconditionFailed:
			summary.Skipped++
			summary.Skips = append(summary.Skips, result)
		default:
			summary.Failed++
			summary.Failures = append(summary.Failures, result)
		}
	}
	return summary
}

// Err returns a non-nil error when any task failed. Skipped instances alone are not an error.
func (s Summary) Err() error {
	if s.Failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d %s operations failed", s.Failed, s.Total, s.Operation)
}

// Summary prints the aggregated report for a batch
func (r *Reporter) Summary(s Summary) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintln(r.out)
	colors.FprintHeader(r.out, "=== %s Summary ===\n", capitalize(string(s.Operation)))
	colors.FprintData(r.out, "Total instances: %d\n", s.Total)
	colors.FprintData(r.out, "Successful: %d\n", s.Succeeded)
	colors.FprintData(r.out, "Skipped (wrong state): %d\n", s.Skipped)
	colors.FprintData(r.out, "Failed: %d\n", s.Failed)
	colors.FprintData(r.out, "Total execution time: %v\n", s.Duration.Round(time.Millisecond))
	colors.FprintData(r.out, "Max parallelism: %s\n", ParallelLabel(s.Parallel))

	for _, result := range s.Skips {
		colors.FprintWarning(r.out, "  - %s: %s\n", result.Label(), stateMismatch(result))
	}
	for _, result := range s.Failures {
		colors.FprintError(r.out, "  ✗ %s: %v\n", result.Label(), result.Err)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
