package main

import (
	"errors"

	"github.com/funnyzak/reqstash/internal/dispatcher"
	"github.com/funnyzak/reqstash/internal/navigator"
	"github.com/funnyzak/reqstash/pkg/record"
)

// Exit codes for reqstash
const (
	// ExitSuccess indicates the invocation completed
	ExitSuccess = 0

	// ExitRequestFailure indicates a generic request failure
	ExitRequestFailure = 1

	// ExitParseError indicates a stored record could not be decoded
	ExitParseError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitNetworkError indicates a network/connection error or timeout
	ExitNetworkError = 4

	// ExitIOError indicates a storage read/write/delete failure
	ExitIOError = 5

	// ExitAborted indicates namespace selection was aborted
	ExitAborted = 6

	// ExitUsageError indicates invalid CLI usage or input
	ExitUsageError = 64
)

// configError marks failures while loading or validating configuration.
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// usageError marks flag and argument errors reported by cobra.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// exitCode maps an error onto the process exit status.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var (
		parseErr     *record.ParseError
		ioErr        *record.IOError
		validation   *record.ValidationError
		aborted      *navigator.AbortedError
		transportErr *dispatcher.TransportError
		cfgErr       *configError
		usage        *usageError
	)
	switch {
	case errors.As(err, &cfgErr):
		return ExitConfigError
	case errors.As(err, &usage), errors.As(err, &validation):
		return ExitUsageError
	case errors.As(err, &parseErr):
		return ExitParseError
	case errors.As(err, &ioErr):
		return ExitIOError
	case errors.As(err, &aborted):
		return ExitAborted
	case errors.As(err, &transportErr):
		return ExitNetworkError
	default:
		return ExitRequestFailure
	}
}
