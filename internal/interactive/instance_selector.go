package interactive

import (
	"errors"
	"fmt"
	"io"
	"os"

	awspkg "ec2ctl/pkg/aws"
	"ec2ctl/pkg/colors"

	"github.com/ktr0731/go-fuzzyfinder"
)

// ErrSelectionCancelled is returned when the user aborts the picker
var ErrSelectionCancelled = errors.New("instance selection cancelled")

// InstanceSelector picks instances for a power operation
type InstanceSelector interface {
	SelectInstances(instances []awspkg.Instance, title string) ([]awspkg.Instance, error)
}

// FuzzyInstanceSelector is the terminal picker. Messages go to Out, stderr when nil.
type FuzzyInstanceSelector struct {
	Out io.Writer
}

// SelectInstances shows the picker and returns the chosen instances in list order
func (s *FuzzyInstanceSelector) SelectInstances(instances []awspkg.Instance, title string) ([]awspkg.Instance, error) {
	out := s.Out
	if out == nil {
		out = os.Stderr
	}

	if len(instances) == 0 {
		return nil, fmt.Errorf("no instances available")
	}

	indices, err := FuzzyFindMulti(instances,
		func(i int) string { return itemLabel(instances[i]) },
		fmt.Sprintf("%s (%d available)", title, len(instances)),
		func(i, w, h int) string {
			if i < 0 || i >= len(instances) {
				return ""
			}
			return previewText(instances[i])
		},
	)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			colors.FprintError(out, "Instance selection cancelled\n")
			return nil, ErrSelectionCancelled
		}
		return nil, fmt.Errorf("instance selection failed: %w", err)
	}

	selected := pick(instances, indices)
	colors.FprintSuccess(out, "Selected %d instance(s)\n", len(selected))
	return selected, nil
}

// SelectableFor keeps the instances an operation can act on
func SelectableFor(instances []awspkg.Instance, requiredState string) []awspkg.Instance {
	var out []awspkg.Instance
	for _, inst := range instances {
		if inst.State == requiredState {
			out = append(out, inst)
		}
	}
	return out
}

// IDs extracts instance IDs
func IDs(instances []awspkg.Instance) []string {
	ids := make([]string, len(instances))
	for i, inst := range instances {
		ids[i] = inst.ID
	}
	return ids
}

// pick returns instances at the given indices, ordered as in the source list
func pick(instances []awspkg.Instance, indices []int) []awspkg.Instance {
	chosen := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if idx >= 0 && idx < len(instances) {
			chosen[idx] = true
		}
	}

	var out []awspkg.Instance
	for i, inst := range instances {
		if chosen[i] {
			out = append(out, inst)
		}
	}
	return out
}

func itemLabel(instance awspkg.Instance) string {
	name := instance.Name
	if name == "" {
		name = "N/A"
	}
	return fmt.Sprintf("%s (%s) %s", name, instance.ID, instance.State)
}

func previewText(instance awspkg.Instance) string {
	name := instance.Name
	if name == "" {
		name = "N/A"
	}
	privateIP := instance.PrivateIP
	if privateIP == "" {
		privateIP = "N/A"
	}
	publicIP := instance.PublicIP
	if publicIP == "" {
		publicIP = "N/A"
	}

	return fmt.Sprintf("Name:         %s\n"+
		"Instance ID:  %s\n"+
		"State:        %s\n"+
		"Type:         %s\n"+
		"Platform:     %s\n"+
		"Private IP:   %s\n"+
		"Public IP:    %s\n"+
		"Zone:         %s",
		name, instance.ID, colors.ColorState(instance.State), instance.InstanceType,
		instance.Platform, privateIP, publicIP, instance.AvailabilityZone)
}
