package server

import (
	"fmt"
	"strings"

	"github.com/mwantia/dicomweb/data"
)

const (
	DefaultAddress       = ":3001"
	DefaultBasePath      = "/dicomweb"
	DefaultMaxUploadSize = 512 << 20 // 512 MB
)

type ServerOptions struct {
	Address       string
	BasePath      string
	MaxUploadSize int64
	Debug         bool
}

type ServerOption func(*ServerOptions) error

func newDefaultServerOptions() *ServerOptions {
	return &ServerOptions{
		Address:       DefaultAddress,
		BasePath:      DefaultBasePath,
		MaxUploadSize: DefaultMaxUploadSize,
	}
}

func WithAddress(address string) ServerOption {
	return func(opts *ServerOptions) error {
		opts.Address = address
		return nil
	}
}

// WithBasePath mounts every DICOMweb route below path. An empty path mounts them at the root.
func WithBasePath(path string) ServerOption {
	return func(opts *ServerOptions) error {
		path = strings.TrimRight(path, "/")
		if path != "" && !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		opts.BasePath = path
		return nil
	}
}

func WithMaxUploadSize(size int64) ServerOption {
	return func(opts *ServerOptions) error {
		if size <= 0 {
			return fmt.Errorf("%w: max upload size must be positive", data.ErrInvalid)
		}
		opts.MaxUploadSize = size
		return nil
	}
}

// WithDebug enables the gin debug mode.
func WithDebug() ServerOption {
	return func(opts *ServerOptions) error {
		opts.Debug = true
		return nil
	}
}
