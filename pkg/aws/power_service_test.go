package aws

import (
	"context"
	"errors"
	"testing"
	"time"

	"ec2ctl/internal/testutil"
	apperrors "ec2ctl/pkg/errors"
	"ec2ctl/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	stoppedID = "i-00000000000000a1"
	runningID = "i-00000000000000b2"
	pendingID = "i-00000000000000c3"
)

func newTestPowerService(fake *testutil.FakeEC2) *PowerService {
	service := NewPowerService(fake, logging.NewNoOpLogger())
	service.SetWaiterDelays(time.Millisecond, 2*time.Millisecond)
	return service
}

func powerFleet() *testutil.FakeEC2 {
	return testutil.NewFakeEC2(
		testutil.FakeInstance{ID: stoppedID, Name: "stopped-box", State: "stopped"},
		testutil.FakeInstance{ID: runningID, Name: "running-box", State: "running"},
		testutil.FakeInstance{ID: pendingID, Name: "pending-box", State: "pending"},
	)
}

func TestStartWaitsForRunning(t *testing.T) {
	fake := powerFleet()
	service := newTestPowerService(fake)

	var requested []string
	transition, err := service.Start(context.Background(), stoppedID, WaitOptions{
		Wait:        true,
		Timeout:     time.Second,
		OnRequested: func(id string) { requested = append(requested, id) },
	})

	require.NoError(t, err)
	assert.Equal(t, "stopped", transition.PreviousState)
	assert.Equal(t, "running", transition.CurrentState)
	assert.True(t, transition.Waited)
	assert.Equal(t, []string{stoppedID}, requested)
	assert.Equal(t, "running", fake.State(stoppedID))
	assert.Equal(t, []string{"start:" + stoppedID}, fake.Requests())
}

func TestStopWaitsForStopped(t *testing.T) {
	fake := powerFleet()
	service := newTestPowerService(fake)

	transition, err := service.Stop(context.Background(), runningID, WaitOptions{Wait: true, Timeout: time.Second})

	require.NoError(t, err)
	assert.Equal(t, "stopped", transition.CurrentState)
	assert.Equal(t, "stopped", fake.State(runningID))
}

func TestStartWithoutWait(t *testing.T) {
	fake := powerFleet()
	service := newTestPowerService(fake)

	transition, err := service.Start(context.Background(), stoppedID, WaitOptions{})

	require.NoError(t, err)
	assert.False(t, transition.Waited)
	assert.Equal(t, "stopped", transition.CurrentState)
	assert.Equal(t, []string{"start:" + stoppedID}, fake.Requests())
}

func TestPowerPreconditions(t *testing.T) {
	tests := []struct {
		name     string
		op       func(*PowerService, string) (*Transition, error)
		id       string
		state    string
		expected string
	}{
		{"start running instance", func(s *PowerService, id string) (*Transition, error) {
			return s.Start(context.Background(), id, WaitOptions{Wait: true})
		}, runningID, "running", "stopped"},
		{"start pending instance", func(s *PowerService, id string) (*Transition, error) {
			return s.Start(context.Background(), id, WaitOptions{Wait: true})
		}, pendingID, "pending", "stopped"},
		{"stop stopped instance", func(s *PowerService, id string) (*Transition, error) {
			return s.Stop(context.Background(), id, WaitOptions{Wait: true})
		}, stoppedID, "stopped", "running"},
		{"reboot stopped instance", func(s *PowerService, id string) (*Transition, error) {
			return s.Reboot(context.Background(), id, WaitOptions{})
		}, stoppedID, "stopped", "running"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := powerFleet()
			service := newTestPowerService(fake)

			transition, err := tt.op(service, tt.id)

			assert.Nil(t, transition)
			require.Error(t, err)
			assert.True(t, apperrors.IsPrecondition(err), "expected precondition error, got %v", err)
			assert.Contains(t, err.Error(), tt.id)

			var appErr *apperrors.AppError
			require.True(t, errors.As(err, &appErr))
			state, _ := appErr.GetContext("state")
			expected, _ := appErr.GetContext("expected_state")
			assert.Equal(t, tt.state, state)
			assert.Equal(t, tt.expected, expected)

			// Early return: no request was sent and the state is untouched
			assert.Empty(t, fake.Requests())
			assert.Equal(t, tt.state, fake.State(tt.id))
		})
	}
}

func TestRebootRunningInstance(t *testing.T) {
	fake := powerFleet()
	service := newTestPowerService(fake)

	transition, err := service.Reboot(context.Background(), runningID, WaitOptions{Wait: true, Timeout: time.Second})

	require.NoError(t, err)
	assert.Equal(t, "running", transition.CurrentState)
	assert.Equal(t, []string{"reboot:" + runningID}, fake.Requests())
}

func TestPowerUnknownInstance(t *testing.T) {
	service := newTestPowerService(powerFleet())

	_, err := service.Start(context.Background(), "i-0fffffffffffffff0", WaitOptions{})

	require.Error(t, err)
	assert.False(t, apperrors.IsPrecondition(err))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeAWS))
	assert.Contains(t, err.Error(), "does not exist")
}

func TestPowerRequestFailure(t *testing.T) {
	fake := powerFleet()
	fake.RequestErr[stoppedID] = testutil.APIError(CodeUnauthorized, "no ec2:StartInstances")
	service := newTestPowerService(fake)

	_, err := service.Start(context.Background(), stoppedID, WaitOptions{Wait: true})

	require.Error(t, err)
	assert.False(t, apperrors.IsPrecondition(err))
	assert.Contains(t, err.Error(), "IAM permissions")
}

func TestPowerRaceBecomesPrecondition(t *testing.T) {
	fake := powerFleet()
	fake.RequestErr[stoppedID] = testutil.APIError(CodeIncorrectInstanceState, "already starting")
	service := newTestPowerService(fake)

	_, err := service.Start(context.Background(), stoppedID, WaitOptions{})

	assert.True(t, apperrors.IsPrecondition(err), "IncorrectInstanceState should be a precondition failure, got %v", err)
}

func TestPowerWaitTimeout(t *testing.T) {
	fake := powerFleet()
	service := newTestPowerService(fake)

	ctx, cancel := context.WithCancel(context.Background())
	fake.OnRequest = func(string, string) { cancel() }

	_, err := service.Start(ctx, stoppedID, WaitOptions{Wait: true, Timeout: time.Second})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not reach running")
}

func TestCurrentState(t *testing.T) {
	service := newTestPowerService(powerFleet())

	state, err := service.CurrentState(context.Background(), pendingID)
	require.NoError(t, err)
	assert.Equal(t, "pending", state)
}
