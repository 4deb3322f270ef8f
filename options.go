package dicomweb

import (
	"fmt"
	"time"

	"github.com/mwantia/dicomweb/data"
	"github.com/mwantia/dicomweb/log"
)

type ServiceOptions struct {
	Logger        *log.Logger
	LogLevel      log.LogLevel
	LogFile       string
	LogJSON       bool
	NoTerminalLog bool

	Clock func() time.Time
}

type ServiceOption func(*ServiceOptions) error

func newDefaultServiceOptions() *ServiceOptions {
	return &ServiceOptions{
		LogLevel: log.Info,
		Clock:    time.Now,
	}
}

// WithLogger uses an existing logger instead of creating one from the log options.
func WithLogger(logger *log.Logger) ServiceOption {
	return func(opts *ServiceOptions) error {
		opts.Logger = logger
		return nil
	}
}

func WithLogLevel(logLevel log.LogLevel) ServiceOption {
	return func(opts *ServiceOptions) error {
		opts.LogLevel = logLevel
		return nil
	}
}

func WithoutTerminalLog() ServiceOption {
	return func(opts *ServiceOptions) error {
		opts.NoTerminalLog = true
		return nil
	}
}

func WithLogFile(logFile string) ServiceOption {
	return func(opts *ServiceOptions) error {
		opts.LogFile = logFile
		return nil
	}
}

func WithLogJSON() ServiceOption {
	return func(opts *ServiceOptions) error {
		opts.LogJSON = true
		return nil
	}
}

// WithClock replaces the time source used to stamp created rows.
func WithClock(clock func() time.Time) ServiceOption {
	return func(opts *ServiceOptions) error {
		if clock == nil {
			return fmt.Errorf("%w: clock must not be nil", data.ErrInvalid)
		}
		opts.Clock = clock
		return nil
	}
}
