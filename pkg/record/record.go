package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Record is a persisted request definition addressed by (namespace, method).
// Every field is optional; a zero value means "not set".
type Record struct {
	URL     string            `json:"url,omitempty" yaml:"url,omitempty"`
	Method  string            `json:"method,omitempty" yaml:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Data    any               `json:"data,omitempty" yaml:"data,omitempty"`
	Timeout *int              `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Clone returns a copy that shares no maps with r. Data is treated as immutable.
func (r *Record) Clone() *Record {
	if r == nil {
		return &Record{}
	}
	out := &Record{
		URL:    r.URL,
		Method: r.Method,
		Data:   r.Data,
	}
	if r.Headers != nil {
		out.Headers = make(map[string]string, len(r.Headers))
		for k, v := range r.Headers {
			out.Headers[k] = v
		}
	}
	if r.Timeout != nil {
		t := *r.Timeout
		out.Timeout = &t
	}
	return out
}

// IsEmpty reports whether no field is set.
func (r *Record) IsEmpty() bool {
	return r == nil || (r.URL == "" && r.Method == "" && len(r.Headers) == 0 && r.Data == nil && r.Timeout == nil)
}

// TimeoutSeconds returns the timeout or def when unset.
func (r *Record) TimeoutSeconds(def int) int {
	if r == nil || r.Timeout == nil {
		return def
	}
	return *r.Timeout
}

// Encode marshals the record as indented JSON.
func Encode(r *Record) ([]byte, error) {
	if r == nil {
		r = &Record{}
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return data, nil
}

// Decode parses a record. Numbers inside data are kept as json.Number so a
// decode/encode cycle preserves them exactly.
func Decode(data []byte) (*Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var rec *Record
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errors.New("record is null")
	}
	if err := expectEOF(dec); err != nil {
		return nil, err
	}
	return rec, nil
}

// DecodeValue parses a single JSON value with json.Number semantics.
func DecodeValue(text string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if err := expectEOF(dec); err != nil {
		return nil, err
	}
	return v, nil
}

// expectEOF fails unless only whitespace follows the decoded value.
func expectEOF(dec *json.Decoder) error {
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("unexpected trailing content")
	}
	return nil
}

// IntPtr is a small helper for building records.
func IntPtr(v int) *int {
	return &v
}
