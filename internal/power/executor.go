package power

import (
	"context"
	"fmt"

	awspkg "ec2ctl/pkg/aws"
)

// Task is one operation against one instance identifier
type Task struct {
	Operation  Operation
	Identifier string
	// OnRequested is called with the resolved ID once AWS accepted the request
	OnRequested func(instanceID string)
}

// Executor performs a single task. Implementations must be safe for concurrent use.
type Executor interface {
	Execute(ctx context.Context, task Task) (*awspkg.Transition, error)
}

// Resolver turns an instance name or ID into an instance ID
type Resolver interface {
	ResolveInstanceIdentifier(ctx context.Context, identifier, region string) (string, error)
}

// PowerAPI is implemented by *aws.PowerService
type PowerAPI interface {
	Start(ctx context.Context, instanceID string, opts awspkg.WaitOptions) (*awspkg.Transition, error)
	Stop(ctx context.Context, instanceID string, opts awspkg.WaitOptions) (*awspkg.Transition, error)
	Reboot(ctx context.Context, instanceID string, opts awspkg.WaitOptions) (*awspkg.Transition, error)
}

// AWSExecutor resolves identifiers and dispatches to the power service
type AWSExecutor struct {
	Resolver Resolver
	Power    PowerAPI
	Region   string
	Wait     awspkg.WaitOptions
}

// Execute implements Executor
func (e *AWSExecutor) Execute(ctx context.Context, task Task) (*awspkg.Transition, error) {
	instanceID := task.Identifier
	if e.Resolver != nil {
		resolved, err := e.Resolver.ResolveInstanceIdentifier(ctx, task.Identifier, e.Region)
		if err != nil {
			return nil, err
		}
		instanceID = resolved
	}

	opts := e.Wait
	opts.OnRequested = task.OnRequested

	switch task.Operation {
	case OperationStart:
		return e.Power.Start(ctx, instanceID, opts)
	case OperationStop:
		return e.Power.Stop(ctx, instanceID, opts)
	case OperationReboot:
		return e.Power.Reboot(ctx, instanceID, opts)
	default:
		return nil, fmt.Errorf("unknown operation: %s", task.Operation)
	}
}
