package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mwantia/dicomweb/backend"
	"github.com/mwantia/dicomweb/data"
	"github.com/tidwall/btree"
)

// MemoryBackend keeps the hierarchy and the blobs in ordered in-memory maps.
// It implements both backend.MetadataBackend and backend.BlobBackend and is
// meant for tests and ephemeral runs.
type MemoryBackend struct {
	mu sync.RWMutex

	studies   *btree.Map[string, *data.Study]
	series    *btree.Map[string, *data.Series]
	instances *btree.Map[string, *data.Instance]

	blobs *btree.Map[string, *memoryBlob]
}

type memoryBlob struct {
	content    []byte
	modifyTime time.Time
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		studies:   btree.NewMap[string, *data.Study](0),
		series:    btree.NewMap[string, *data.Series](0),
		instances: btree.NewMap[string, *data.Instance](0),
		blobs:     btree.NewMap[string, *memoryBlob](0),
	}
}

// Name returns the identifier name defined for this backend
func (*MemoryBackend) Name() string {
	return "memory"
}

// Open is part of the lifecycle behaviour and gets called when opening this backend.
func (mb *MemoryBackend) Open(ctx context.Context) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	// No initialization needed - backend is ready to use
	return nil
}

// Close is part of the lifecycle behaviour and gets called when closing this backend.
func (mb *MemoryBackend) Close(ctx context.Context) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	mb.studies.Clear()
	mb.series.Clear()
	mb.instances.Clear()
	mb.blobs.Clear()

	return nil
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (mb *MemoryBackend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityMetadata,
			backend.CapabilityObjectStorage,
			backend.CapabilitySearch,
		},
		MaxObjectSize: 104857600, // 100 MB
	}
}
