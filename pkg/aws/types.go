package aws

import (
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// Instance states used as power preconditions and wait targets
const (
	StateRunning = string(types.InstanceStateNameRunning)
	StateStopped = string(types.InstanceStateNameStopped)
)

// IsInstanceState reports whether state names an EC2 instance lifecycle state
func IsInstanceState(state string) bool {
	for _, known := range types.InstanceStateNameRunning.Values() {
		if string(known) == state {
			return true
		}
	}
	return false
}

// SSMStatusNoAgent marks instances that never registered with Systems Manager
const SSMStatusNoAgent = "No Agent"

// Instance represents an EC2 instance with relevant metadata
type Instance struct {
	ID               string            `json:"id" yaml:"id"`
	Name             string            `json:"name" yaml:"name"`
	State            string            `json:"state" yaml:"state"`
	InstanceType     string            `json:"instance_type" yaml:"instance_type"`
	PrivateIP        string            `json:"private_ip" yaml:"private_ip"`
	PublicIP         string            `json:"public_ip,omitempty" yaml:"public_ip,omitempty"`
	Platform         string            `json:"platform" yaml:"platform"`
	SSMStatus        string            `json:"ssm_status,omitempty" yaml:"ssm_status,omitempty"`
	Tags             map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`
	LaunchTime       *time.Time        `json:"launch_time,omitempty" yaml:"launch_time,omitempty"`
	AvailabilityZone string            `json:"availability_zone" yaml:"availability_zone"`
	Region           string            `json:"region" yaml:"region"`
}

// NewInstanceFromEC2 creates an Instance from an EC2 instance.
// Absent fields (Name tag, private IP on a terminated instance) stay empty.
func NewInstanceFromEC2(ec2Instance types.Instance, region string) *Instance {
	instance := &Instance{
		ID:           aws.ToString(ec2Instance.InstanceId),
		InstanceType: string(ec2Instance.InstanceType),
		Platform:     getPlatform(ec2Instance),
		Tags:         extractTags(ec2Instance.Tags),
		LaunchTime:   ec2Instance.LaunchTime,
		PrivateIP:    aws.ToString(ec2Instance.PrivateIpAddress),
		PublicIP:     aws.ToString(ec2Instance.PublicIpAddress),
		Region:       region,
	}

	if ec2Instance.State != nil {
		instance.State = string(ec2Instance.State.Name)
	}
	if ec2Instance.Placement != nil {
		instance.AvailabilityZone = aws.ToString(ec2Instance.Placement.AvailabilityZone)
	}
	instance.Name = instance.Tags["Name"]

	return instance
}

// MatchesFilters reports whether the instance name contains name and its
// state contains state, both case-insensitively. Empty filters match everything.
func (i *Instance) MatchesFilters(name, state string) bool {
	return containsFold(i.Name, name) && containsFold(i.State, state)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// getPlatform determines the platform from EC2 instance data
func getPlatform(instance types.Instance) string {
	// Platform details are the most reliable source
	if instance.PlatformDetails != nil {
		details := strings.ToLower(*instance.PlatformDetails)
		if strings.Contains(details, "windows") {
			return "Windows"
		}
		if strings.Contains(details, "linux") {
			return "Linux"
		}
	}

	if instance.Platform != "" {
		return string(instance.Platform)
	}

	return "Linux"
}

// extractTags converts EC2 tags to a map
func extractTags(tags []types.Tag) map[string]string {
	tagMap := make(map[string]string)
	for _, tag := range tags {
		if tag.Key != nil && tag.Value != nil {
			tagMap[*tag.Key] = *tag.Value
		}
	}
	return tagMap
}
