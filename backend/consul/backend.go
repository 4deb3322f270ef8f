package consul

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/hashicorp/consul/api"
	"github.com/mwantia/dicomweb/backend"
	"github.com/mwantia/dicomweb/data"
)

// ConsulBackend stores blobs as values in the HashiCorp Consul KV store.
//
// Limitations:
// - Consul KV has a 512KB limit per value
// - Best suited for small objects such as structured reports or presentation states
type ConsulBackend struct {
	mu     sync.RWMutex
	client *api.Client
	kv     *api.KV

	// Configuration
	config *ConsulBackendConfig
}

// ConsulBackendConfig contains configuration options for the Consul backend
type ConsulBackendConfig struct {
	// Address of the Consul server (default: "127.0.0.1:8500")
	Address string

	// Token for Consul ACL authentication (optional)
	Token string

	// Datacenter to use (optional)
	Datacenter string

	// Prefix for all keys in Consul KV (default: "dicomweb/blobs")
	Prefix string
}

// NewConsulBackend creates a new Consul-backed blob backend
func NewConsulBackend(config *ConsulBackendConfig) (*ConsulBackend, error) {
	if config == nil {
		config = &ConsulBackendConfig{}
	}

	// Set defaults
	if config.Address == "" {
		config.Address = "127.0.0.1:8500"
	}

	if config.Prefix == "" {
		config.Prefix = "dicomweb/blobs"
	}

	// Create Consul client
	clientConfig := api.DefaultConfig()
	clientConfig.Address = config.Address
	if config.Token != "" {
		clientConfig.Token = config.Token
	}
	if config.Datacenter != "" {
		clientConfig.Datacenter = config.Datacenter
	}

	client, err := api.NewClient(clientConfig)
	if err != nil {
		return nil, err
	}

	return &ConsulBackend{
		client: client,
		kv:     client.KV(),
		config: config,
	}, nil
}

// Name returns the identifier name defined for this backend
func (*ConsulBackend) Name() string {
	return "consul"
}

// Open is part of the lifecycle behaviour and gets called when opening this backend.
// It verifies that the agent is reachable.
func (cb *ConsulBackend) Open(ctx context.Context) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if _, err := cb.client.Status().Leader(); err != nil {
		return errors.Join(data.ErrBackendFailed, err)
	}

	return nil
}

// Close is part of the lifecycle behaviour and gets called when closing this backend
func (cb *ConsulBackend) Close(ctx context.Context) error {
	// Nothing to clean up - Consul client is stateless
	return nil
}

// GetCapabilities returns a list of capabilities supported by this backend
func (cb *ConsulBackend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityObjectStorage,
			backend.CapabilityPersistent,
		},
		// Consul KV has a default limit of 512KB per value
		// We set it slightly lower to account for metadata overhead
		MaxObjectSize: 500 * 1024, // 500 KB
	}
}

// buildKey constructs the full Consul KV key from the blob key
func (cb *ConsulBackend) buildKey(key string) string {
	prefix := strings.Trim(cb.config.Prefix, "/")
	key = strings.TrimPrefix(key, "/")

	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}
