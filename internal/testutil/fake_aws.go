package testutil

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
)

// FakeInstance seeds a FakeEC2
type FakeInstance struct {
	ID        string
	Name      string
	State     string
	PrivateIP string
	Tags      map[string]string
}

type fakeInstance struct {
	FakeInstance
	// states reported by subsequent describes, last one sticks
	queue []string
}

// FakeEC2 is an in-memory EC2 API. Start and stop move an instance through
// its transitional state on the next describe, then settle on the target.
type FakeEC2 struct {
	mu        sync.Mutex
	instances []*fakeInstance
	requests  []string

	// PageSize splits DescribeInstances output into pages when > 0
	PageSize int
	// DescribeErr is returned by every DescribeInstances call
	DescribeErr error
	// RequestErr is returned by Start/Stop/Reboot for the given instance ID
	RequestErr map[string]error
	// OnRequest runs before a Start/Stop/Reboot call is handled, outside the lock
	OnRequest func(op, instanceID string)
}

// NewFakeEC2 creates a fake seeded with instances, preserving order
func NewFakeEC2(instances ...FakeInstance) *FakeEC2 {
	f := &FakeEC2{RequestErr: map[string]error{}}
	for _, inst := range instances {
		f.instances = append(f.instances, &fakeInstance{FakeInstance: inst})
	}
	return f
}

// APIError builds a smithy API error with the given code
func APIError(code, message string) error {
	return &smithy.GenericAPIError{Code: code, Message: message}
}

// State returns the current state of an instance
func (f *FakeEC2) State(instanceID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if inst := f.find(instanceID); inst != nil {
		return inst.State
	}
	return ""
}

// Requests returns "op:id" entries for every Start/Stop/Reboot call received
func (f *FakeEC2) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func (f *FakeEC2) find(instanceID string) *fakeInstance {
	for _, inst := range f.instances {
		if inst.ID == instanceID {
			return inst
		}
	}
	return nil
}

func (f *FakeEC2) DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.DescribeErr != nil {
		return nil, f.DescribeErr
	}

	var matched []*fakeInstance
	if len(params.InstanceIds) > 0 {
		for _, id := range params.InstanceIds {
			inst := f.find(id)
			if inst == nil {
				return nil, APIError("InvalidInstanceID.NotFound", "The instance ID '"+id+"' does not exist")
			}
			if len(inst.queue) > 0 {
				inst.State = inst.queue[0]
				inst.queue = inst.queue[1:]
			}
			matched = append(matched, inst)
		}
	} else {
		for _, inst := range f.instances {
			if matchesFilters(inst, params.Filters) {
				matched = append(matched, inst)
			}
		}
	}

	start := 0
	if params.NextToken != nil {
		start, _ = strconv.Atoi(*params.NextToken)
	}
	end := len(matched)
	if f.PageSize > 0 && start+f.PageSize < end {
		end = start + f.PageSize
	}
	if start > end {
		start = end
	}

	output := &ec2.DescribeInstancesOutput{}
	for _, inst := range matched[start:end] {
		output.Reservations = append(output.Reservations, ec2types.Reservation{
			Instances: []ec2types.Instance{inst.toEC2()},
		})
	}
	if end < len(matched) {
		output.NextToken = aws.String(strconv.Itoa(end))
	}
	return output, nil
}

func matchesFilters(inst *fakeInstance, filters []ec2types.Filter) bool {
	for _, filter := range filters {
		name := aws.ToString(filter.Name)
		var value string
		switch {
		case name == "instance-state-name":
			value = inst.State
		case name == "tag:Name":
			value = inst.Name
		case strings.HasPrefix(name, "tag:"):
			value = inst.Tags[strings.TrimPrefix(name, "tag:")]
		default:
			continue
		}

		found := false
		for _, v := range filter.Values {
			if v == value {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (inst *fakeInstance) toEC2() ec2types.Instance {
	out := ec2types.Instance{
		InstanceId:   aws.String(inst.ID),
		InstanceType: ec2types.InstanceTypeT3Micro,
		State:        &ec2types.InstanceState{Name: ec2types.InstanceStateName(inst.State)},
		Placement:    &ec2types.Placement{AvailabilityZone: aws.String("ca-central-1a")},
	}
	if inst.PrivateIP != "" {
		out.PrivateIpAddress = aws.String(inst.PrivateIP)
	}
	if inst.Name != "" {
		out.Tags = append(out.Tags, ec2types.Tag{Key: aws.String("Name"), Value: aws.String(inst.Name)})
	}
	for k, v := range inst.Tags {
		out.Tags = append(out.Tags, ec2types.Tag{Key: aws.String(k), Value: aws.String(v)})
	}
	return out
}

// request validates the source state and queues the transition
func (f *FakeEC2) request(op, instanceID, from string, queue []string) error {
	if f.OnRequest != nil {
		f.OnRequest(op, instanceID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, op+":"+instanceID)
	if err := f.RequestErr[instanceID]; err != nil {
		return err
	}

	inst := f.find(instanceID)
	if inst == nil {
		return APIError("InvalidInstanceID.NotFound", "The instance ID '"+instanceID+"' does not exist")
	}
	if inst.State != from {
		return APIError("IncorrectInstanceState", "The instance '"+instanceID+"' is not in a state from which it can be "+op+"ed")
	}
	inst.queue = queue
	return nil
}

func (f *FakeEC2) StartInstances(ctx context.Context, params *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error) {
	for _, id := range params.InstanceIds {
		if err := f.request("start", id, "stopped", []string{"pending", "running"}); err != nil {
			return nil, err
		}
	}
	return &ec2.StartInstancesOutput{}, nil
}

func (f *FakeEC2) StopInstances(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error) {
	for _, id := range params.InstanceIds {
		if err := f.request("stop", id, "running", []string{"stopping", "stopped"}); err != nil {
			return nil, err
		}
	}
	return &ec2.StopInstancesOutput{}, nil
}

func (f *FakeEC2) RebootInstances(ctx context.Context, params *ec2.RebootInstancesInput, optFns ...func(*ec2.Options)) (*ec2.RebootInstancesOutput, error) {
	for _, id := range params.InstanceIds {
		if err := f.request("reboot", id, "running", nil); err != nil {
			return nil, err
		}
	}
	return &ec2.RebootInstancesOutput{}, nil
}

// FakeSSM reports agent ping status per instance ID
type FakeSSM struct {
	Statuses map[string]string
	Err      error
}

func (f *FakeSSM) DescribeInstanceInformation(ctx context.Context, params *ssm.DescribeInstanceInformationInput, optFns ...func(*ssm.Options)) (*ssm.DescribeInstanceInformationOutput, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	output := &ssm.DescribeInstanceInformationOutput{}
	for id, status := range f.Statuses {
		output.InstanceInformationList = append(output.InstanceInformationList, ssmtypes.InstanceInformation{
			InstanceId: aws.String(id),
			PingStatus: ssmtypes.PingStatus(status),
		})
	}
	return output, nil
}

// FakeSTS returns a fixed caller identity
type FakeSTS struct {
	Account string
	Arn     string
	UserID  string
	Err     error
}

func (f *FakeSTS) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return &sts.GetCallerIdentityOutput{
		Account: aws.String(f.Account),
		Arn:     aws.String(f.Arn),
		UserId:  aws.String(f.UserID),
	}, nil
}
