package aws

import (
	"context"
	"fmt"
	"strings"

	"ec2ctl/pkg/logging"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// InstanceService provides instance lookups shared between commands
type InstanceService struct {
	clientPool ClientPoolInterface
	logger     *logging.Logger
}

// ListFilters represents filters for listing instances
type ListFilters struct {
	Name  string `json:"name,omitempty"`  // case-insensitive substring of the Name tag
	State string `json:"state,omitempty"` // case-insensitive substring of the state
	Tags  string `json:"tags,omitempty"`  // Format: key1=value1,key2=value2
}

// NewInstanceService creates a new instance service
func NewInstanceService(clientPool ClientPoolInterface, logger *logging.Logger) *InstanceService {
	return &InstanceService{
		clientPool: clientPool,
		logger:     logger,
	}
}

// ListInstances returns the instances in region matching filters, in describe order.
// Tag filters are applied server-side; name and state substrings client-side.
func (s *InstanceService) ListInstances(ctx context.Context, region string, filters *ListFilters) ([]Instance, error) {
	s.logger.Debug("Listing EC2 instances", "region", region)

	ec2Client, err := s.clientPool.GetEC2Client(ctx, region)
	if err != nil {
		return nil, fmt.Errorf("failed to get EC2 client for region %s: %w", region, err)
	}

	if filters == nil {
		filters = &ListFilters{}
	}

	input := &ec2.DescribeInstancesInput{}
	tagFilters, err := parseTagFilters(filters.Tags)
	if err != nil {
		return nil, fmt.Errorf("invalid tags filter format: %w", err)
	}
	for key, value := range tagFilters {
		input.Filters = append(input.Filters, types.Filter{
			Name:   aws.String("tag:" + key),
			Values: []string{value},
		})
	}

	ec2Instances, err := describeAll(ctx, ec2Client, input)
	if err != nil {
		return nil, err
	}

	instances := make([]Instance, 0, len(ec2Instances))
	for _, ec2Instance := range ec2Instances {
		instance := NewInstanceFromEC2(ec2Instance, region)
		if instance.MatchesFilters(filters.Name, filters.State) {
			instances = append(instances, *instance)
		}
	}

	s.logger.Debug("Listed instances", "region", region, "total", len(ec2Instances), "matched", len(instances))
	return instances, nil
}

// AttachSSMStatus fills SSMStatus from Systems Manager ping status.
// Failures leave the listing usable and mark every instance as having no agent.
func (s *InstanceService) AttachSSMStatus(ctx context.Context, region string, instances []Instance) {
	if len(instances) == 0 {
		return
	}

	statusMap := map[string]string{}
	ssmClient, err := s.clientPool.GetSSMClient(ctx, region)
	if err != nil {
		s.logger.Warn("Failed to get SSM client, continuing without SSM status", "error", err)
	} else if statusMap, err = s.getSSMStatusMap(ctx, ssmClient); err != nil {
		s.logger.Warn("Failed to get SSM status information, marking all as 'No Agent'", "error", err)
	}

	for i := range instances {
		if status, ok := statusMap[instances[i].ID]; ok && status != "" {
			instances[i].SSMStatus = status
		} else {
			instances[i].SSMStatus = SSMStatusNoAgent
		}
	}
}

// ResolveInstanceIdentifier resolves an instance name or ID to an instance ID.
// IDs are returned unchanged; names must match exactly one live instance.
func (s *InstanceService) ResolveInstanceIdentifier(ctx context.Context, identifier, region string) (string, error) {
	if isInstanceID(identifier) {
		return identifier, nil
	}
	return s.findInstanceByName(ctx, identifier, region)
}

// describeAll pages through DescribeInstances and flattens reservations
func describeAll(ctx context.Context, client ec2.DescribeInstancesAPIClient, input *ec2.DescribeInstancesInput) ([]types.Instance, error) {
	var allInstances []types.Instance
	paginator := ec2.NewDescribeInstancesPaginator(client, input)

	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe instances: %w", ClassifyError(err))
		}

		for _, reservation := range output.Reservations {
			allInstances = append(allInstances, reservation.Instances...)
		}
	}

	return allInstances, nil
}

// getSSMStatusMap maps instance ID to SSM ping status
func (s *InstanceService) getSSMStatusMap(ctx context.Context, ssmClient SSMAPI) (map[string]string, error) {
	statusMap := make(map[string]string)

	paginator := ssm.NewDescribeInstanceInformationPaginator(ssmClient, &ssm.DescribeInstanceInformationInput{})
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe SSM instance information: %w", ClassifyError(err))
		}

		for _, info := range output.InstanceInformationList {
			if info.InstanceId != nil {
				statusMap[*info.InstanceId] = string(info.PingStatus)
			}
		}
	}

	return statusMap, nil
}

// findInstanceByName finds a non-terminated instance by its Name tag
func (s *InstanceService) findInstanceByName(ctx context.Context, name, region string) (string, error) {
	ec2Client, err := s.clientPool.GetEC2Client(ctx, region)
	if err != nil {
		return "", fmt.Errorf("failed to get EC2 client for region %s: %w", region, err)
	}

	input := &ec2.DescribeInstancesInput{
		Filters: []types.Filter{
			{
				Name:   aws.String("tag:Name"),
				Values: []string{name},
			},
			{
				Name:   aws.String("instance-state-name"),
				Values: []string{"pending", "running", "stopping", "stopped"},
			},
		},
	}

	foundInstances, err := describeAll(ctx, ec2Client, input)
	if err != nil {
		return "", fmt.Errorf("failed to search for instance by name '%s': %w", name, err)
	}

	if len(foundInstances) == 0 {
		return "", fmt.Errorf("no instance found with name '%s'", name)
	}

	if len(foundInstances) > 1 {
		return "", fmt.Errorf("multiple instances found with name '%s', use instance ID instead", name)
	}

	return aws.ToString(foundInstances[0].InstanceId), nil
}

// isInstanceID checks if a string matches the AWS instance ID pattern i-[0-9a-f]{8,17}
func isInstanceID(identifier string) bool {
	if len(identifier) < 10 || len(identifier) > 19 {
		return false
	}

	if !strings.HasPrefix(identifier, "i-") {
		return false
	}

	for _, char := range identifier[2:] {
		if !((char >= '0' && char <= '9') || (char >= 'a' && char <= 'f')) {
			return false
		}
	}

	return true
}

// parseTagFilter parses a single tag filter in the format key=value
func parseTagFilter(tagStr string) (string, string, error) {
	parts := strings.SplitN(tagStr, "=", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("tag filter must be in format key=value, got: %s", tagStr)
	}

	key := strings.TrimSpace(parts[0])
	value := strings.TrimSpace(parts[1])

	if key == "" {
		return "", "", fmt.Errorf("tag key cannot be empty")
	}

	return key, value, nil
}

// parseTagFilters parses comma-separated tag filters into individual key=value pairs
func parseTagFilters(tagsStr string) (map[string]string, error) {
	result := make(map[string]string)

	for _, tagPair := range strings.Split(tagsStr, ",") {
		tagPair = strings.TrimSpace(tagPair)
		if tagPair == "" {
			continue
		}

		key, value, err := parseTagFilter(tagPair)
		if err != nil {
			return nil, err
		}
		result[key] = value
	}

	return result, nil
}
