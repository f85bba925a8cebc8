package printer

import (
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/funnyzak/reqstash/internal/config"
	"github.com/funnyzak/reqstash/internal/logger"
)

// Exchange is one dispatched request with its response.
type Exchange struct {
	Namespace  string
	Method     string
	URL        string
	StatusCode int
	Status     string
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// Printer renders responses and informational notices on stdout.
type Printer interface {
	PrintResponse(*Exchange) error
	PrintNotice(string) error
}

// Options are the per-invocation output switches.
type Options struct {
	IncludeHeaders bool
	// Query is a gjson path applied to JSON bodies before printing.
	Query string
	// Raw writes the body verbatim with no status line or formatting.
	Raw bool
	Out io.Writer
}

// New creates the Printer for cfg.Mode.
func New(log logger.Logger, cfg *config.OutputConfig, opts Options) Printer {
	if cfg == nil {
		cfg = &config.OutputConfig{}
	}
	if log == nil {
		log = logger.Nop()
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Raw {
		return NewRawPrinter(log, opts.Out)
	}
	switch strings.ToLower(cfg.Mode) {
	case "json":
		p := NewJSONPrinter(log, opts.Query)
		p.SetOutput(opts.Out)
		return p
	default:
		p := NewConsolePrinter(log, &cfg.BodyView)
		p.out = opts.Out
		p.includeHeaders = opts.IncludeHeaders || cfg.IncludeHeaders
		p.query = opts.Query
		return p
	}
}
