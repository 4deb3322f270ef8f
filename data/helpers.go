package data

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// BlobKeyExtension is appended to every generated blob key.
const BlobKeyExtension = ".dcm"

// NewBlobKey generates a unique, time-ordered key for a stored object.
// Uploaded filenames are never used as keys.
func NewBlobKey() string {
	return uuid.Must(uuid.NewV7()).String() + BlobKeyExtension
}

// ParseNumber converts an IS-style attribute value to an int, returning 0
// for anything that is not an integer.
func ParseNumber(value string) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}

	return n
}
