package aws

import (
	"context"

	"ec2ctl/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// EC2API is the subset of the EC2 client used by ec2ctl.
// It satisfies ec2.DescribeInstancesAPIClient, so paginators and waiters accept it.
type EC2API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	StartInstances(ctx context.Context, params *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error)
	StopInstances(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error)
	RebootInstances(ctx context.Context, params *ec2.RebootInstancesInput, optFns ...func(*ec2.Options)) (*ec2.RebootInstancesOutput, error)
}

// SSMAPI is the subset of the SSM client used for agent status
type SSMAPI interface {
	DescribeInstanceInformation(ctx context.Context, params *ssm.DescribeInstanceInformationInput, optFns ...func(*ssm.Options)) (*ssm.DescribeInstanceInformationOutput, error)
}

// STSAPI is the subset of the STS client used for identity checks
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Client wraps AWS service clients with common configuration
type Client struct {
	Config aws.Config
	EC2    EC2API
	SSM    SSMAPI
	STS    STSAPI
}

// ClientOptions configures the AWS client.
// Empty fields are left to the SDK default resolution chain.
type ClientOptions struct {
	Region  string
	Profile string
}

// loadOptions converts ClientOptions into SDK config loaders
func (o ClientOptions) loadOptions() []func(*config.LoadOptions) error {
	var opts []func(*config.LoadOptions) error
	if o.Region != "" {
		opts = append(opts, config.WithRegion(o.Region))
	}
	if o.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(o.Profile))
	}
	return opts
}

// NewClient creates a new AWS client with the specified options
func NewClient(ctx context.Context, opts ClientOptions) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, opts.loadOptions()...)
	if err != nil {
		return nil, errors.NewAWSError("failed to load AWS configuration", err)
	}

	return newClientFromConfig(cfg), nil
}

func newClientFromConfig(cfg aws.Config) *Client {
	return &Client{
		Config: cfg,
		EC2:    ec2.NewFromConfig(cfg),
		SSM:    ssm.NewFromConfig(cfg),
		STS:    sts.NewFromConfig(cfg),
	}
}

// Identity is the resolved caller identity
type Identity struct {
	Account string `json:"account" yaml:"account"`
	Arn     string `json:"arn" yaml:"arn"`
	UserID  string `json:"user_id" yaml:"user_id"`
	Region  string `json:"region" yaml:"region"`
}

// GetCallerIdentity returns information about the current AWS credentials
func (c *Client) GetCallerIdentity(ctx context.Context) (*Identity, error) {
	output, err := c.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, errors.NewAWSError("failed to get caller identity", ClassifyError(err))
	}
	return &Identity{
		Account: aws.ToString(output.Account),
		Arn:     aws.ToString(output.Arn),
		UserID:  aws.ToString(output.UserId),
		Region:  c.Config.Region,
	}, nil
}
