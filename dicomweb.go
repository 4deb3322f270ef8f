// Package dicomweb stores DICOM objects received over STOW-RS and serves
// them back through QIDO-RS searches and WADO-RS retrieval.
package dicomweb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mwantia/dicomweb/backend"
	"github.com/mwantia/dicomweb/data"
	"github.com/mwantia/dicomweb/log"
)

// Service composes a metadata backend and a blob backend into the
// ingest, query and retrieval pipelines.
type Service struct {
	mu     sync.RWMutex
	opened bool

	log     *log.Logger
	options *ServiceOptions

	// Held from the instance lookup until the replaced blob is discarded
	instanceLocks *keyedMutex

	Metadata    backend.MetadataBackend
	Blobs       backend.BlobBackend
	IsDualStore bool
}

// NewService creates a service on top of meta and blobs. When blobs is nil,
// meta must advertise object storage and is used for both roles.
func NewService(meta backend.MetadataBackend, blobs backend.BlobBackend, opts ...ServiceOption) (*Service, error) {
	if meta == nil {
		return nil, fmt.Errorf("%w: metadata backend must not be nil", data.ErrInvalid)
	}

	options := newDefaultServiceOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	logger := options.Logger
	if logger == nil {
		logger = log.NewLogger("dicomweb", options.LogLevel, options.LogFile, options.NoTerminalLog).SetJSON(options.LogJSON)
	}

	svc := &Service{
		log:      logger,
		options:  options,
		Metadata: meta,
		Blobs:    blobs,

		instanceLocks: newKeyedMutex(),
	}

	if blobs == nil {
		if !meta.GetCapabilities().Contains(backend.CapabilityObjectStorage) {
			return nil, fmt.Errorf("%w: '%s' does not provide object storage", data.ErrInvalid, meta.Name())
		}
		dual, ok := meta.(backend.BlobBackend)
		if !ok {
			return nil, fmt.Errorf("failed to parse '%s' for blob backend", meta.Name())
		}
		svc.Blobs = dual
		// Both roles share one lifecycle
		svc.IsDualStore = true
	}

	return svc, nil
}

// Open opens the underlying backends. On failure every backend is closed
// again, including the one that failed, since constructors already hold
// connections.
func (s *Service) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opened {
		return nil
	}

	s.log.Debug("Open: opening metadata backend '%s'", s.Metadata.Name())
	if err := s.Metadata.Open(ctx); err != nil {
		s.release(ctx)
		return fmt.Errorf("%w: %s: %w", data.ErrBackendFailed, s.Metadata.Name(), err)
	}

	if !s.IsDualStore {
		s.log.Debug("Open: opening blob backend '%s'", s.Blobs.Name())
		if err := s.Blobs.Open(ctx); err != nil {
			s.release(ctx)
			return fmt.Errorf("%w: %s: %w", data.ErrBackendFailed, s.Blobs.Name(), err)
		}
	}

	s.opened = true
	s.log.Info("Opened service with metadata '%s' and blobs '%s'", s.Metadata.Name(), s.Blobs.Name())

	return nil
}

// Close closes both backends and joins their errors.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		return nil
	}

	errs := data.Errors{}
	errs.Add(s.Metadata.Close(ctx))
	if !s.IsDualStore {
		errs.Add(s.Blobs.Close(ctx))
	}

	s.opened = false
	return errs.Errors()
}

// release closes the backends after a failed Open.
func (s *Service) release(ctx context.Context) {
	if err := s.Metadata.Close(ctx); err != nil {
		s.log.Warn("Open: failed to close metadata backend '%s' - %v", s.Metadata.Name(), err)
	}
	if s.IsDualStore {
		return
	}
	if err := s.Blobs.Close(ctx); err != nil {
		s.log.Warn("Open: failed to close blob backend '%s' - %v", s.Blobs.Name(), err)
	}
}

// Logger returns the service logger so that outer layers can derive named children.
func (s *Service) Logger() *log.Logger {
	return s.log
}

func (s *Service) now() time.Time {
	return s.options.Clock()
}
