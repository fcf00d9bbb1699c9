package aws

import (
	"context"
	"fmt"
	"time"

	"ec2ctl/pkg/errors"
	"ec2ctl/pkg/logging"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
)

// DefaultWaitTimeout bounds how long a single instance waits for its target state
const DefaultWaitTimeout = 10 * time.Minute

// WaitOptions controls what happens after a power request is accepted
type WaitOptions struct {
	// Wait blocks until the target state is reached
	Wait bool
	// Timeout for the waiter. Zero means DefaultWaitTimeout.
	Timeout time.Duration
	// OnRequested is called once the API accepted the request, before waiting
	OnRequested func(instanceID string)
}

// Transition describes a completed power operation
type Transition struct {
	InstanceID    string
	PreviousState string
	CurrentState  string
	Waited        bool
}

// PowerService starts, stops and reboots instances with state preconditions
type PowerService struct {
	ec2    EC2API
	logger *logging.Logger

	// waiter polling bounds, SDK defaults when zero
	minDelay time.Duration
	maxDelay time.Duration
}

// NewPowerService creates a power service bound to one regional EC2 client
func NewPowerService(ec2Client EC2API, logger *logging.Logger) *PowerService {
	return &PowerService{
		ec2:    ec2Client,
		logger: logger,
	}
}

// SetWaiterDelays overrides the SDK waiter's polling bounds
func (s *PowerService) SetWaiterDelays(minDelay, maxDelay time.Duration) {
	s.minDelay = minDelay
	s.maxDelay = maxDelay
}

// Start starts a stopped instance and optionally waits for running
func (s *PowerService) Start(ctx context.Context, instanceID string, opts WaitOptions) (*Transition, error) {
	return s.transition(ctx, instanceID, StateStopped, StateRunning, opts, func() error {
		_, err := s.ec2.StartInstances(ctx, &ec2.StartInstancesInput{InstanceIds: []string{instanceID}})
		return err
	})
}

// Stop stops a running instance and optionally waits for stopped
func (s *PowerService) Stop(ctx context.Context, instanceID string, opts WaitOptions) (*Transition, error) {
	return s.transition(ctx, instanceID, StateRunning, StateStopped, opts, func() error {
		_, err := s.ec2.StopInstances(ctx, &ec2.StopInstancesInput{InstanceIds: []string{instanceID}})
		return err
	})
}

// Reboot reboots a running instance. The state stays running throughout.
func (s *PowerService) Reboot(ctx context.Context, instanceID string, opts WaitOptions) (*Transition, error) {
	return s.transition(ctx, instanceID, StateRunning, StateRunning, opts, func() error {
		_, err := s.ec2.RebootInstances(ctx, &ec2.RebootInstancesInput{InstanceIds: []string{instanceID}})
		return err
	})
}

// CurrentState returns the instance's state name
func (s *PowerService) CurrentState(ctx context.Context, instanceID string) (string, error) {
	output, err := s.ec2.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return "", errors.NewAWSError(fmt.Sprintf("failed to describe instance %s", instanceID), ClassifyError(err))
	}

	for _, reservation := range output.Reservations {
		for _, instance := range reservation.Instances {
			if aws.ToString(instance.InstanceId) == instanceID && instance.State != nil {
				return string(instance.State.Name), nil
			}
		}
	}

	return "", errors.NewAWSError(fmt.Sprintf("instance %s not found", instanceID), nil)
}

func (s *PowerService) transition(ctx context.Context, instanceID, from, to string, opts WaitOptions, request func() error) (*Transition, error) {
	state, err := s.CurrentState(ctx, instanceID)
	if err != nil {
		return nil, err
	}

	if state != from {
		return nil, errors.NewPreconditionError(instanceID, state, from)
	}

	s.logger.Debug("Requesting state change", "instance", instanceID, "from", from, "to", to)
	if err := request(); err != nil {
		if ErrorCode(err) == CodeIncorrectInstanceState {
			precondition := errors.NewPreconditionError(instanceID, "changed", from)
			precondition.Underlying = err
			return nil, precondition
		}
		return nil, errors.NewAWSError(fmt.Sprintf("request for instance %s failed", instanceID), ClassifyError(err))
	}

	if opts.OnRequested != nil {
		opts.OnRequested(instanceID)
	}

	result := &Transition{InstanceID: instanceID, PreviousState: state, CurrentState: state}
	if !opts.Wait {
		return result, nil
	}

	if err := s.waitFor(ctx, instanceID, to, opts.Timeout); err != nil {
		return nil, errors.NewAWSError(fmt.Sprintf("instance %s did not reach %s", instanceID, to), err)
	}

	result.CurrentState = to
	result.Waited = true
	return result, nil
}

// waitFor delegates polling to the SDK waiter for the target state
func (s *PowerService) waitFor(ctx context.Context, instanceID, target string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	input := &ec2.DescribeInstancesInput{InstanceIds: []string{instanceID}}

	switch target {
	case StateRunning:
		waiter := ec2.NewInstanceRunningWaiter(s.ec2, func(o *ec2.InstanceRunningWaiterOptions) {
			if s.minDelay > 0 {
				o.MinDelay = s.minDelay
			}
			if s.maxDelay > 0 {
				o.MaxDelay = s.maxDelay
			}
		})
		return waiter.Wait(ctx, input, timeout)
	case StateStopped:
		waiter := ec2.NewInstanceStoppedWaiter(s.ec2, func(o *ec2.InstanceStoppedWaiterOptions) {
			if s.minDelay > 0 {
				o.MinDelay = s.minDelay
			}
			if s.maxDelay > 0 {
				o.MaxDelay = s.maxDelay
			}
		})
		return waiter.Wait(ctx, input, timeout)
	default:
		return fmt.Errorf("no waiter for state %s", target)
	}
}
