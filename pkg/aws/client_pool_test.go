package aws

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingFactory(created *int32) func(context.Context, ClientOptions) (*Client, error) {
	return func(_ context.Context, opts ClientOptions) (*Client, error) {
		atomic.AddInt32(created, 1)
		c := &Client{}
		c.Config.Region = opts.Region
		return c, nil
	}
}

func TestClientPoolCachesPerRegion(t *testing.T) {
	var created int32
	pool := NewClientPool("dev")
	pool.factory = countingFactory(&created)

	ctx := context.Background()
	first, err := pool.GetClient(ctx, "us-east-1")
	require.NoError(t, err)
	second, err := pool.GetClient(ctx, "us-east-1")
	require.NoError(t, err)
	_, err = pool.GetClient(ctx, "eu-west-1")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(2), atomic.LoadInt32(&created))
}

func TestClientPoolPassesProfile(t *testing.T) {
	var seen ClientOptions
	pool := NewClientPool("prod")
	pool.factory = func(_ context.Context, opts ClientOptions) (*Client, error) {
		seen = opts
		return &Client{}, nil
	}

	_, err := pool.GetEC2Client(context.Background(), "ca-central-1")
	require.NoError(t, err)
	assert.Equal(t, ClientOptions{Region: "ca-central-1", Profile: "prod"}, seen)
}

func TestClientPoolServiceClients(t *testing.T) {
	cfg := aws.Config{Region: "eu-west-1"}
	client := &Client{Config: cfg, EC2: ec2.NewFromConfig(cfg), SSM: ssm.NewFromConfig(cfg)}
	pool := NewClientPoolWithFactory("", func(context.Context, ClientOptions) (*Client, error) {
		return client, nil
	})

	ec2Client, err := pool.GetEC2Client(context.Background(), "eu-west-1")
	require.NoError(t, err)
	assert.Same(t, client.EC2, ec2Client)

	ssmClient, err := pool.GetSSMClient(context.Background(), "eu-west-1")
	require.NoError(t, err)
	assert.Same(t, client.SSM, ssmClient)
}

func TestClientPoolFactoryError(t *testing.T) {
	var attempts int
	pool := NewClientPoolWithFactory("", func(context.Context, ClientOptions) (*Client, error) {
		attempts++
		return nil, errors.New("no credentials")
	})

	_, err := pool.GetSSMClient(context.Background(), "us-east-1")
	assert.Error(t, err)
	_, err = pool.GetEC2Client(context.Background(), "us-east-1")
	assert.Error(t, err)
	assert.Equal(t, 2, attempts, "failed clients must not be cached")
}

func TestClientPoolConcurrentAccess(t *testing.T) {
	var created int32
	pool := NewClientPool("")
	pool.factory = countingFactory(&created)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = pool.GetClient(context.Background(), "us-east-1")
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&created))
}
