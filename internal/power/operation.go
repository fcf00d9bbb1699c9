// Package power runs start, stop and reboot operations across many instances
// concurrently and aggregates their outcomes.
package power

import (
	"fmt"
	"time"

	awspkg "ec2ctl/pkg/aws"
)

// Operation is a power action applied to an instance
type Operation string

const (
	OperationStart  Operation = "start"
	OperationStop   Operation = "stop"
	OperationReboot Operation = "reboot"
)

// ParseOperation converts a command name into an Operation
func ParseOperation(s string) (Operation, error) {
	switch op := Operation(s); op {
	case OperationStart, OperationStop, OperationReboot:
		return op, nil
	default:
		return "", fmt.Errorf("unknown operation: %s", s)
	}
}

// Progressive returns the "-ing" form used in progress lines
func (o Operation) Progressive() string {
	switch o {
	case OperationStop:
		return "stopping"
	case OperationReboot:
		return "rebooting"
	default:
		return "starting"
	}
}

// Past returns the past tense used once an operation completes
func (o Operation) Past() string {
	switch o {
	case OperationStop:
		return "stopped"
	case OperationReboot:
		return "rebooted"
	default:
		return "started"
	}
}

// RequiredState is the state an instance must be in for the operation to run
func (o Operation) RequiredState() string {
	if o == OperationStart {
		return awspkg.StateStopped
	}
	return awspkg.StateRunning
}

// Outcome classifies how a task ended
type Outcome string

const (
	OutcomeSuccess            Outcome = "success"
	OutcomePreconditionFailed Outcome = "precondition_failed"
	OutcomeError              Outcome = "error"
)

// Result is the typed outcome of one instance task
type Result struct {
	// Identifier is the ID or name as given by the user
	Identifier string
	// InstanceID is the resolved instance ID, empty if resolution failed
	InstanceID    string
	Operation     Operation
	Outcome       Outcome
	PreviousState string
	FinalState    string
	Waited        bool
	Err           error
	Duration      time.Duration
}

// Label names the instance for output, showing the name and ID when they differ
func (r Result) Label() string {
	if r.InstanceID == "" || r.InstanceID == r.Identifier {
		return r.Identifier
	}
	return fmt.Sprintf("%s (%s)", r.Identifier, r.InstanceID)
}
