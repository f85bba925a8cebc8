package history

import (
	"errors"
	"time"

	"github.com/funnyzak/reqstash/internal/config"
	"github.com/funnyzak/reqstash/internal/logger"
)

// ErrDisabled is returned by New when history is turned off.
var ErrDisabled = errors.New("history is disabled")

// Entry is one dispatched exchange.
type Entry struct {
	ID           string            `json:"id" yaml:"id"`
	Timestamp    time.Time         `json:"timestamp" yaml:"timestamp"`
	Namespace    string            `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Method       string            `json:"method" yaml:"method"`
	URL          string            `json:"url" yaml:"url"`
	Headers      map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	RequestBody  []byte            `json:"request_body,omitempty" yaml:"request_body,omitempty"`
	StatusCode   int               `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	ResponseBody []byte            `json:"response_body,omitempty" yaml:"response_body,omitempty"`
	DurationMs   int64             `json:"duration_ms" yaml:"duration_ms"`
	Size         int64             `json:"size" yaml:"size"`
	Error        string            `json:"error,omitempty" yaml:"error,omitempty"`
}

// ListOptions controls filtering and pagination when fetching entries.
type ListOptions struct {
	Search    string
	Method    string
	Namespace string
	Limit     int
	Offset    int
}

// Store defines the persistence contract for history entries.
type Store interface {
	Record(*Entry) (*Entry, error)
	List(ListOptions) ([]*Entry, int, error)
	Get(string) (*Entry, error)
	Close() error
}

// New opens the history store described by cfg.
func New(cfg *config.HistoryConfig, log logger.Logger) (Store, error) {
	if cfg == nil {
		return nil, errors.New("history config is nil")
	}
	if !cfg.Enable {
		return nil, ErrDisabled
	}
	if log == nil {
		log = logger.Nop()
	}
	return newSQLiteStore(cfg, log)
}
