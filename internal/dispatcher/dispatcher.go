package dispatcher

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/funnyzak/reqstash/internal/logger"
	"github.com/funnyzak/reqstash/internal/namespace"
	"github.com/funnyzak/reqstash/pkg/record"
)

const (
	// DefaultTimeout bounds a dispatch when the record has no timeout.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxRedirects is the number of redirects followed.
	DefaultMaxRedirects = 10
)

// Options configures the HTTP client.
type Options struct {
	DefaultTimeout        time.Duration
	TLSInsecureSkipVerify bool
	// MaxRedirects <0 disables redirects, 0 uses the default.
	MaxRedirects int
	UserAgent    string
}

// Result is the response of one dispatch. Body is returned unmodified.
type Result struct {
	StatusCode  int
	Status      string
	Headers     http.Header
	Body        []byte
	Duration    time.Duration
	RequestBody []byte
}

// TransportError reports a request that produced no HTTP response.
type TransportError struct {
	Method  string
	URL     string
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s %s timed out: %v", e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Dispatcher executes records with a shared http.Client.
type Dispatcher struct {
	client         *http.Client
	logger         logger.Logger
	defaultTimeout time.Duration
	userAgent      string
}

// New creates a Dispatcher.
func New(log logger.Logger, opts Options) *Dispatcher {
	if log == nil {
		log = logger.Nop()
	}
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = DefaultTimeout
	}
	maxRedirects := opts.MaxRedirects
	if maxRedirects == 0 {
		maxRedirects = DefaultMaxRedirects
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.TLSInsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // opt-in via --insecure
		}
	}

	return &Dispatcher{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if maxRedirects < 0 || len(via) >= maxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		logger:         log,
		defaultTimeout: opts.DefaultTimeout,
		userAgent:      opts.UserAgent,
	}
}

// Dispatch validates rec and sends it. Validation failures are returned as
// *record.ValidationError before any network activity.
func (d *Dispatcher) Dispatch(ctx context.Context, rec *record.Record) (*Result, error) {
	if rec == nil {
		rec = &record.Record{}
	}
	method, err := namespace.ParseMethod(rec.Method)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(rec.URL) == "" {
		return nil, &record.ValidationError{Field: "url", Reason: "no URL given and none stored for this namespace"}
	}

	var payload []byte
	if rec.Data != nil {
		payload, err = json.Marshal(rec.Data)
		if err != nil {
			return nil, &record.ValidationError{Field: "data", Reason: err.Error()}
		}
	}

	timeout := d.defaultTimeout
	if rec.Timeout != nil && *rec.Timeout > 0 {
		timeout = time.Duration(*rec.Timeout) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, rec.URL, body)
	if err != nil {
		return nil, &record.ValidationError{Field: "url", Value: rec.URL, Reason: err.Error()}
	}

	for k, v := range rec.Headers {
		// net/http ignores a Host entry in Header
		if strings.EqualFold(k, "Host") {
			req.Host = v
			continue
		}
		req.Header.Set(k, v)
	}
	if payload != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if d.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	d.logger.Debug("Dispatching request",
		"method", method,
		"url", rec.URL,
		"headers", len(req.Header),
		"body_bytes", len(payload),
		"timeout", timeout.String(),
	)

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &TransportError{
			Method:  method,
			URL:     rec.URL,
			Timeout: errors.Is(err, context.DeadlineExceeded),
			Err:     err,
		}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			d.logger.Warn("Failed to close response body", "error", cerr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{
			Method:  method,
			URL:     rec.URL,
			Timeout: errors.Is(err, context.DeadlineExceeded),
			Err:     fmt.Errorf("read response body: %w", err),
		}
	}
	elapsed := time.Since(start)

	d.logger.Info("Request completed",
		"method", method,
		"url", rec.URL,
		"status", resp.StatusCode,
		"bytes", len(respBody),
		"duration_ms", elapsed.Milliseconds(),
	)

	return &Result{
		StatusCode:  resp.StatusCode,
		Status:      resp.Status,
		Headers:     resp.Header,
		Body:        respBody,
		Duration:    elapsed,
		RequestBody: payload,
	}, nil
}

// Close releases idle connections.
func (d *Dispatcher) Close() {
	d.client.CloseIdleConnections()
}
