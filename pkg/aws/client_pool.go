package aws

import (
	"context"
	"sync"
)

// ClientPoolInterface defines the interface for AWS client pools
type ClientPoolInterface interface {
	GetClient(ctx context.Context, region string) (*Client, error)
	GetEC2Client(ctx context.Context, region string) (EC2API, error)
	GetSSMClient(ctx context.Context, region string) (SSMAPI, error)
}

// ClientFactory builds a Client for one region and profile
type ClientFactory func(ctx context.Context, opts ClientOptions) (*Client, error)

// ClientPool caches one Client per region for a single profile.
type ClientPool struct {
	profile string
	factory ClientFactory

	clients map[string]*Client
	mu      sync.RWMutex
}

// NewClientPool creates a pool whose clients use the given profile.
// An empty profile defers to the SDK default chain.
func NewClientPool(profile string) *ClientPool {
	return &ClientPool{
		profile: profile,
		factory: NewClient,
		clients: make(map[string]*Client),
	}
}

// NewClientPoolWithFactory creates a pool that builds clients with factory
func NewClientPoolWithFactory(profile string, factory ClientFactory) *ClientPool {
	return &ClientPool{
		profile: profile,
		factory: factory,
		clients: make(map[string]*Client),
	}
}

// GetClient returns the cached client for region, creating it on first use.
// An empty region resolves through the SDK default chain.
func (p *ClientPool) GetClient(ctx context.Context, region string) (*Client, error) {
	p.mu.RLock()
	if client, exists := p.clients[region]; exists {
		p.mu.RUnlock()
		return client, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	if client, exists := p.clients[region]; exists {
		return client, nil
	}

	client, err := p.factory(ctx, ClientOptions{Region: region, Profile: p.profile})
	if err != nil {
		return nil, err
	}

	p.clients[region] = client
	return client, nil
}

// GetEC2Client returns the EC2 API of the region's cached client
func (p *ClientPool) GetEC2Client(ctx context.Context, region string) (EC2API, error) {
	client, err := p.GetClient(ctx, region)
	if err != nil {
		return nil, err
	}
	return client.EC2, nil
}

// GetSSMClient returns the SSM API of the region's cached client
func (p *ClientPool) GetSSMClient(ctx context.Context, region string) (SSMAPI, error) {
	client, err := p.GetClient(ctx, region)
	if err != nil {
		return nil, err
	}
	return client.SSM, nil
}
