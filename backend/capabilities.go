package backend

// BackendCapability represents a capability that a backend can provide

import "slices"

type BackendCapability string

const (
	// Core capabilities by backend
	CapabilityMetadata      BackendCapability = "metadata"
	CapabilityObjectStorage BackendCapability = "object_storage"

	// Extension capabilities per 'metadata' or 'object-storage' backend
	CapabilityPersistent BackendCapability = "persistent"
	CapabilityStreaming  BackendCapability = "streaming"
	CapabilitySearch     BackendCapability = "search"
)

// BackendCapabilities describes what a backend supports
type BackendCapabilities struct {
	Capabilities  []BackendCapability `json:"capabilities"`
	MinObjectSize int64               `json:"min_object_size"`
	MaxObjectSize int64               `json:"max_object_size"`
}

// Contains checks if a capability is supported
func (bc *BackendCapabilities) Contains(cap BackendCapability) bool {
	return slices.Contains(bc.Capabilities, cap)
}

// Accepts reports whether an object of the given size fits the advertised limits.
// A zero limit means unbounded.
func (bc *BackendCapabilities) Accepts(size int64) bool {
	if bc.MinObjectSize > 0 && size < bc.MinObjectSize {
		return false
	}
	if bc.MaxObjectSize > 0 && size > bc.MaxObjectSize {
		return false
	}
	return true
}
