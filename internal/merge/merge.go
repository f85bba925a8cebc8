package merge

import (
	"strings"

	"github.com/funnyzak/reqstash/internal/namespace"
	"github.com/funnyzak/reqstash/pkg/record"
)

// DefaultTimeout is used when the invocation does not set a timeout.
const DefaultTimeout = 30

// Inputs carries the overrides of a single invocation. Nil pointers mean the
// input was not given.
type Inputs struct {
	Method  string
	URL     string
	Headers []string
	// Value is parsed as JSON when possible.
	Value *string
	// JSON is parsed as JSON when possible and wins over Value and Data.
	JSON *string
	// Data is always sent as a JSON string.
	Data    *string
	Timeout *int
}

// HasBody reports whether any body-shaped input was given.
func (in Inputs) HasBody() bool {
	return in.JSON != nil || in.Value != nil || in.Data != nil
}

// Merge returns the effective record for stored and in. The stored record is
// left untouched.
//
// Rules are applied in order: method replaced, URL replaced when given,
// headers unioned with override, body replaced by the highest priority input,
// timeout replaced.
func Merge(stored *record.Record, in Inputs) (*record.Record, error) {
	method, err := namespace.ParseMethod(in.Method)
	if err != nil {
		return nil, err
	}
	overrides, err := ParseHeaders(in.Headers)
	if err != nil {
		return nil, err
	}

	effective := stored.Clone()
	effective.Method = method

	if in.URL != "" {
		effective.URL = in.URL
	}

	if len(overrides) > 0 {
		if effective.Headers == nil {
			effective.Headers = make(map[string]string, len(overrides))
		}
		for k, v := range overrides {
			effective.Headers[k] = v
		}
	}

	switch {
	case in.JSON != nil:
		effective.Data = CoerceBody(*in.JSON)
	case in.Value != nil:
		effective.Data = CoerceBody(*in.Value)
	case in.Data != nil:
		effective.Data = *in.Data
	}

	timeout := DefaultTimeout
	if in.Timeout != nil {
		timeout = *in.Timeout
	}
	effective.Timeout = record.IntPtr(timeout)

	return effective, nil
}

// ParseHeaders splits each "Key: Value" string on its first colon. Keys and
// values are trimmed and key case is preserved. Later entries win.
func ParseHeaders(raw []string) (map[string]string, error) {
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		key, value, ok := strings.Cut(h, ":")
		if !ok {
			return nil, &record.ValidationError{Field: "header", Value: h, Reason: `expected "Key: Value"`}
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, &record.ValidationError{Field: "header", Value: h, Reason: "header name is empty"}
		}
		headers[key] = strings.TrimSpace(value)
	}
	return headers, nil
}

// CoerceBody returns text decoded as JSON, or text itself when it is not
// valid JSON.
func CoerceBody(text string) any {
	v, err := record.DecodeValue(text)
	if err != nil {
		return text
	}
	return v
}
