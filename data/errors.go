package data

import (
	"errors"
	"fmt"
	"sync"
)

// Standard errors shared by backends, the ingest pipeline and the server.
var (
	// Per-object ingest errors
	ErrDecode     = errors.New("dicomweb: malformed dicom object")
	ErrValidation = errors.New("dicomweb: missing mandatory identifier")
	ErrMismatch   = errors.New("dicomweb: mismatched study")
	ErrTooLarge   = errors.New("dicomweb: object exceeds backend size limit")

	// Request-level errors
	ErrNotExist = errors.New("dicomweb: not found")
	ErrInvalid  = errors.New("dicomweb: invalid argument")
	ErrStore    = errors.New("dicomweb: storage failure")

	// Backend lifecycle errors
	ErrBackendFailed = errors.New("dicomweb: backend initialization failed")
	ErrNotDirectory  = errors.New("dicomweb: not a directory")
	ErrPermission    = errors.New("dicomweb: permission denied")
)

// StoreError wraps a failure of an underlying metadata or blob backend.
// It matches ErrStore through errors.Is while keeping the cause for logging.
type StoreError struct {
	Op  string
	Err error
}

func NewStoreError(op string, err error) *StoreError {
	return &StoreError{
		Op:  op,
		Err: err,
	}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("dicomweb: storage failure during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

type Errors struct {
	mu     sync.RWMutex
	errors []error
}

func (e *Errors) Add(err error) {
	if err == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.errors = append(e.errors, err)
}

func (e *Errors) Errors() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.errors) == 0 {
		return nil
	}

	return errors.Join(e.errors...)
}
