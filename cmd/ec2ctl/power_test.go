package main

import (
	"fmt"
	"strings"
	"testing"

	"ec2ctl/internal/interactive"
	"ec2ctl/internal/testutil"
	awspkg "ec2ctl/pkg/aws"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockSelector stands in for the terminal picker
type mockSelector struct {
	mock.Mock
}

func (m *mockSelector) SelectInstances(instances []awspkg.Instance, title string) ([]awspkg.Instance, error) {
	args := m.Called(instances, title)
	selected, _ := args.Get(0).([]awspkg.Instance)
	return selected, args.Error(1)
}

func TestStartWaitsForRunningAndSkipsRunning(t *testing.T) {
	h := newHarness(t, fleet()...)

	stdout, stderr, err := h.run("start", webTwo, webOne)
	require.NoError(t, err, "a skipped instance is not an error")

	assert.Empty(t, stdout)
	assert.Equal(t, "running", h.EC2.State(webTwo))
	assert.Equal(t, []string{"start:" + webTwo}, h.EC2.Requests())

	assert.Contains(t, stderr, "[WARN] "+webOne+": state is running, expected stopped; skipping start")
	assert.Contains(t, stderr, webTwo+": started")
	assert.Contains(t, stderr, "=== Start Summary ===")
	assert.Contains(t, stderr, "Total instances: 2")
	assert.Contains(t, stderr, "Successful: 1")
	assert.Contains(t, stderr, "Skipped (wrong state): 1")
	assert.Contains(t, stderr, "Failed: 0")
}

func TestStopByName(t *testing.T) {
	h := newHarness(t, fleet()...)

	_, stderr, err := h.run("stop", "api-server", "API-Server")
	require.Error(t, err, "names match exactly")
	assert.Contains(t, stderr, "[ERROR] api-server: stop failed")
	assert.Equal(t, "stopped", h.EC2.State(apiServer))
	assert.Contains(t, stderr, "API-Server ("+apiServer+"): stopped")
}

func TestStopNoWaitReturnsAfterRequest(t *testing.T) {
	h := newHarness(t, fleet()...)

	_, stderr, err := h.run("stop", "--no-wait", webOne, apiServer)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"stop:" + webOne, "stop:" + apiServer}, h.EC2.Requests())
	assert.Contains(t, stderr, webOne+": stop requested")
	assert.Contains(t, stderr, "Successful: 2")
}

func TestStopFailureIsolated(t *testing.T) {
	h := newHarness(t, fleet()...)
	h.EC2.RequestErr[webOne] = testutil.APIError("UnauthorizedOperation", "You are not authorized to perform this operation")

	_, stderr, err := h.run("stop", webOne, apiServer)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 stop operations failed")

	assert.Equal(t, "running", h.EC2.State(webOne))
	assert.Equal(t, "stopped", h.EC2.State(apiServer))
	assert.Contains(t, stderr, "[ERROR] "+webOne+": stop failed")
	assert.Contains(t, stderr, "Failed: 1")
	assert.Contains(t, stderr, "  ✗ "+webOne)
}

func TestRebootOnlyRunning(t *testing.T) {
	h := newHarness(t, fleet()...)

	_, stderr, err := h.run("reboot", webOne, webTwo)
	require.NoError(t, err)

	assert.Equal(t, []string{"reboot:" + webOne}, h.EC2.Requests())
	assert.Contains(t, stderr, "[WARN] "+webTwo+": state is stopped, expected running; skipping reboot")
	assert.Contains(t, stderr, "=== Reboot Summary ===")
}

func TestPowerDuplicatesRunOnce(t *testing.T) {
	h := newHarness(t, fleet()...)

	_, stderr, err := h.run("stop", "--no-wait", webOne, webOne, webOne)
	require.NoError(t, err)
	assert.Equal(t, []string{"stop:" + webOne}, h.EC2.Requests())
	assert.Contains(t, stderr, "Total instances: 1")
}

func TestPowerReadsPipedStdin(t *testing.T) {
	t.Run("plain ids override arguments", func(t *testing.T) {
		h := newHarness(t, fleet()...)
		h.pipe(webTwo + "\n" + unnamed + "\n")

		_, stderr, err := h.run("start", "--no-wait", webOne)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"start:" + webTwo, "start:" + unnamed}, h.EC2.Requests())
		assert.Contains(t, stderr, "ignoring 1 argument(s)")
	})

	t.Run("ls records", func(t *testing.T) {
		h := newHarness(t, fleet()...)

		listing, _, err := h.run("ls", "-s", "stopped")
		require.NoError(t, err)

		h.pipe(listing)
		_, _, err = h.run("start")
		require.NoError(t, err)
		assert.Equal(t, "running", h.EC2.State(webTwo))
		assert.Equal(t, "running", h.EC2.State(unnamed))
	})

	t.Run("empty stdin falls back to arguments", func(t *testing.T) {
		h := newHarness(t, fleet()...)
		h.pipe("\n\n")

		_, _, err := h.run("stop", "--no-wait", webOne)
		require.NoError(t, err)
		assert.Equal(t, []string{"stop:" + webOne}, h.EC2.Requests())
	})

	t.Run("empty pipe is a no-op", func(t *testing.T) {
		h := newHarness(t, fleet()...)

		listing, _, err := h.run("ls", "database", "-s", "stopped")
		require.NoError(t, err)
		require.Empty(t, listing)

		h.pipe(listing)
		stdout, stderr, err := h.run("start")
		require.NoError(t, err, "an ls that matched nothing must not fail the pipeline")
		assert.Empty(t, stdout)
		assert.Contains(t, stderr, "[WARN] No instance IDs given on stdin or as arguments, nothing to start")
		assert.NotContains(t, stderr, "Summary")
		assert.Empty(t, h.EC2.Requests())
	})

	t.Run("tab separated ids on one line", func(t *testing.T) {
		h := newHarness(t, fleet()...)
		h.pipe(webTwo + "\t" + unnamed + " " + "\n")

		_, _, err := h.run("start", "--no-wait")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"start:" + webTwo, "start:" + unnamed}, h.EC2.Requests())
	})
}

func TestPowerInteractiveSelection(t *testing.T) {
	h := newHarness(t, fleet()...)

	m := &mockSelector{}
	selector = m
	m.On("SelectInstances", mock.MatchedBy(func(instances []awspkg.Instance) bool {
		if len(instances) != 2 {
			return false
		}
		for _, instance := range instances {
			if instance.State != "stopped" {
				return false
			}
		}
		return true
	}), "Select instances to start").Return(
		[]awspkg.Instance{{ID: webTwo, Name: "web-2", State: "stopped"}}, nil)

	_, _, err := h.run("start", "--no-wait")
	require.NoError(t, err)
	m.AssertExpectations(t)
	assert.Equal(t, []string{"start:" + webTwo}, h.EC2.Requests())
}

func TestPowerInteractiveCancelled(t *testing.T) {
	h := newHarness(t, fleet()...)

	m := &mockSelector{}
	selector = m
	m.On("SelectInstances", mock.Anything, mock.Anything).Return(nil, interactive.ErrSelectionCancelled)

	_, _, err := h.run("stop")
	require.ErrorIs(t, err, interactive.ErrSelectionCancelled)
	assert.Empty(t, h.EC2.Requests())
}

func TestPowerInteractiveNothingSelectable(t *testing.T) {
	h := newHarness(t, testutil.FakeInstance{ID: webOne, Name: "web-1", State: "running"})

	m := &mockSelector{}
	selector = m

	_, _, err := h.run("start")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no stopped instances")
	m.AssertNotCalled(t, "SelectInstances", mock.Anything, mock.Anything)
}

func TestPowerFlagValidation(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "negative parallel", args: []string{"start", "--parallel=-1", webTwo}, wantErr: "--parallel must be between 0 and 100"},
		{name: "too much parallel", args: []string{"start", "--parallel", "101", webTwo}, wantErr: "--parallel must be between 0 and 100"},
		{name: "negative timeout", args: []string{"stop", "--timeout", "-1s", webOne}, wantErr: "--timeout must be positive"},
		{name: "bad region", args: []string{"reboot", "-r", "mars", webOne}, wantErr: "region 'mars' is invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, fleet()...)

			_, _, err := h.run(tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Empty(t, h.EC2.Requests())
		})
	}
}

func TestPowerLaunchesEveryInstanceByDefault(t *testing.T) {
	var instances []testutil.FakeInstance
	var ids []string
	for i := 1; i <= 40; i++ {
		id := fmt.Sprintf("i-0b%015x", i)
		instances = append(instances, testutil.FakeInstance{ID: id, State: "running"})
		ids = append(ids, id)
	}
	h := newHarness(t, instances...)

	_, stderr, err := h.run(append([]string{"stop", "--no-wait"}, ids...)...)
	require.NoError(t, err)
	assert.Len(t, h.EC2.Requests(), len(ids))
	assert.Contains(t, stderr, "(parallel: all)")
	assert.Contains(t, stderr, "Max parallelism: all")
}

func TestPowerParallelFromConfig(t *testing.T) {
	h := newHarness(t, fleet()...)
	t.Setenv("EC2CTL_POWER_PARALLEL", "3")

	_, stderr, err := h.run("stop", "--no-wait", webOne)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Max parallelism: 3")
}

func TestPowerQuiet(t *testing.T) {
	h := newHarness(t, fleet()...)

	_, stderr, err := h.run("start", "-q", webTwo, webOne)
	require.NoError(t, err)
	assert.NotContains(t, stderr, "starting...")
	assert.NotContains(t, stderr, webTwo+": started")
	assert.Contains(t, stderr, "[WARN] "+webOne)
	assert.Contains(t, stderr, "=== Start Summary ===")
}

func TestParseIdentifiers(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: nil},
		{name: "one per line", input: "i-1\ni-2\n", want: []string{"i-1", "i-2"}},
		{name: "space separated", input: "i-1 i-2 i-3", want: []string{"i-1", "i-2", "i-3"}},
		{name: "whitespace only", input: "  \n\n", want: nil},
		{name: "ls records", input: "i-1\tweb\trunning\t10.0.0.1\ni-2\t\tstopped\t\n", want: []string{"i-1", "i-2"}},
		{name: "tab separated", input: "i-0123456789abcdef0\ti-0123456789abcdef1\n", want: []string{"i-0123456789abcdef0", "i-0123456789abcdef1"}},
		{name: "tabs and spaces", input: "i-1 i-2\ti-3", want: []string{"i-1", "i-2", "i-3"}},
		{name: "four tab separated ids", input: "i-1\ti-2\ti-3\ti-4\n", want: []string{"i-1", "i-2", "i-3", "i-4"}},
		{name: "ls record with ssm column", input: "i-1\tweb\trunning\t10.0.0.1\tOnline\n", want: []string{"i-1"}},
		{name: "ls record with spaced name", input: "i-1\tmy web box\tstopped\t\n", want: []string{"i-1"}},
		{name: "coloured ls record", input: "i-1\tweb\t\x1b[32mrunning\x1b[0m\t10.0.0.1\n", want: []string{"i-1"}},
		{name: "mixed", input: "i-1 i-2\ni-3\tname\tstopped\t\n", want: []string{"i-1", "i-2", "i-3"}},
		{name: "windows line endings", input: "i-1\r\ni-2\r\n", want: []string{"i-1", "i-2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseIdentifiers(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Starting", capitalize("starting"))
	assert.Equal(t, "", capitalize(""))
}
