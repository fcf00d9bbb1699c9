package interactive

import (
	"strings"
	"testing"

	awspkg "ec2ctl/pkg/aws"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func testInstances() []awspkg.Instance {
	return []awspkg.Instance{
		{ID: "i-0000000000000001a", Name: "web-1", State: "running", PrivateIP: "10.0.1.10"},
		{ID: "i-0000000000000002b", Name: "web-2", State: "stopped"},
		{ID: "i-0000000000000003c", State: "stopped", InstanceType: "t3.micro"},
		{ID: "i-0000000000000004d", Name: "batch", State: "pending"},
	}
}

func TestSelectableFor(t *testing.T) {
	instances := testInstances()

	stopped := SelectableFor(instances, awspkg.StateStopped)
	assert.Equal(t, []string{"i-0000000000000002b", "i-0000000000000003c"}, IDs(stopped))

	running := SelectableFor(instances, awspkg.StateRunning)
	assert.Equal(t, []string{"i-0000000000000001a"}, IDs(running))

	assert.Empty(t, SelectableFor(nil, awspkg.StateRunning))
}

func TestPickKeepsListOrder(t *testing.T) {
	instances := testInstances()

	selected := pick(instances, []int{3, 0, 3, 9, -1})
	assert.Equal(t, []string{"i-0000000000000001a", "i-0000000000000004d"}, IDs(selected))

	assert.Empty(t, pick(instances, nil))
}

func TestItemLabel(t *testing.T) {
	instances := testInstances()

	assert.Equal(t, "web-1 (i-0000000000000001a) running", itemLabel(instances[0]))
	assert.Equal(t, "N/A (i-0000000000000003c) stopped", itemLabel(instances[2]))
}

func TestPreviewText(t *testing.T) {
	original := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = original }()

	preview := previewText(testInstances()[2])

	assert.Contains(t, preview, "Name:         N/A")
	assert.Contains(t, preview, "Instance ID:  i-0000000000000003c")
	assert.Contains(t, preview, "State:        stopped")
	assert.Contains(t, preview, "Type:         t3.micro")
	assert.Contains(t, preview, "Private IP:   N/A")
	assert.Equal(t, 8, len(strings.Split(preview, "\n")))
}

func TestSelectInstancesEmpty(t *testing.T) {
	selector := &FuzzyInstanceSelector{}
	_, err := selector.SelectInstances(nil, "Select instances to start")
	assert.EqualError(t, err, "no instances available")
}
