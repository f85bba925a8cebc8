package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/funnyzak/reqstash/internal/dispatcher"
	"github.com/funnyzak/reqstash/internal/navigator"
	"github.com/funnyzak/reqstash/pkg/record"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"generic", errors.New("boom"), ExitRequestFailure},
		{"parse", &record.ParseError{Path: "a/GET.json", Err: errors.New("bad")}, ExitParseError},
		{"config", &configError{err: errors.New("bad yaml")}, ExitConfigError},
		{"network", &dispatcher.TransportError{Method: "GET", URL: "http://x", Err: errors.New("refused")}, ExitNetworkError},
		{"io", &record.IOError{Op: "write", Path: "a", Err: errors.New("denied")}, ExitIOError},
		{"aborted", &navigator.AbortedError{Err: navigator.ErrNoNamespaces}, ExitAborted},
		{"usage", &usageError{err: errors.New("unknown flag")}, ExitUsageError},
		{"validation", &record.ValidationError{Field: "method", Value: "PATCH", Reason: "unsupported"}, ExitUsageError},
		{"wrapped parse", fmt.Errorf("replay: %w", &record.ParseError{Path: "p", Err: errors.New("x")}), ExitParseError},
		{"config wins over io", &configError{err: &record.IOError{Op: "read", Path: "cfg", Err: errors.New("x")}}, ExitConfigError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
