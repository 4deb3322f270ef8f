package dicomweb

import (
	"errors"

	"github.com/mwantia/dicomweb/data"
)

// Errors returned by the service, re-exported for callers that only import this package.
var (
	ErrDecode     = data.ErrDecode
	ErrValidation = data.ErrValidation
	ErrMismatch   = data.ErrMismatch
	ErrNotExist   = data.ErrNotExist
	ErrInvalid    = data.ErrInvalid
	ErrStore      = data.ErrStore
)

// storeError keeps data.ErrNotExist visible and wraps every other backend failure.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, data.ErrNotExist) || errors.Is(err, data.ErrStore) {
		return err
	}
	return data.NewStoreError(op, err)
}
