package dispatcher

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/funnyzak/reqstash/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	method  string
	host    string
	headers http.Header
	body    []byte
}

func newEchoServer(t *testing.T, status int, respBody string) (*httptest.Server, *captured, *int32) {
	t.Helper()
	got := &captured{}
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		got.method = r.Method
		got.host = r.Host
		got.headers = r.Header.Clone()
		got.body, _ = io.ReadAll(r.Body)
		w.Header().Set("X-Reply", "yes")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, respBody)
	}))
	t.Cleanup(srv.Close)
	return srv, got, &hits
}

func TestDispatchSendsJSONBody(t *testing.T) {
	srv, got, _ := newEchoServer(t, http.StatusCreated, `{"id":7}`)
	d := New(nil, Options{UserAgent: "reqstash/test"})

	body, err := record.DecodeValue(`{"name":"widget","count":12345678901234567890}`)
	require.NoError(t, err)
	res, err := d.Dispatch(context.Background(), &record.Record{
		URL:     srv.URL + "/items",
		Method:  "POST",
		Headers: map[string]string{"X-Trace": "abc"},
		Data:    body,
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Equal(t, `{"id":7}`, string(res.Body))
	assert.Equal(t, "yes", res.Headers.Get("X-Reply"))
	assert.Equal(t, "POST", got.method)
	assert.Equal(t, "application/json", got.headers.Get("Content-Type"))
	assert.Equal(t, "abc", got.headers.Get("X-Trace"))
	assert.Equal(t, "reqstash/test", got.headers.Get("User-Agent"))
	assert.JSONEq(t, `{"name":"widget","count":12345678901234567890}`, string(got.body))
	assert.Contains(t, string(got.body), "12345678901234567890")
	assert.Equal(t, got.body, res.RequestBody)
}

func TestDispatchSendsHostHeader(t *testing.T) {
	srv, got, _ := newEchoServer(t, http.StatusOK, "")
	d := New(nil, Options{})

	_, err := d.Dispatch(context.Background(), &record.Record{
		URL:     srv.URL,
		Method:  "GET",
		Headers: map[string]string{"host": "api.internal.example", "X-Trace": "abc"},
	})
	require.NoError(t, err)

	assert.Equal(t, "api.internal.example", got.host)
	assert.Equal(t, "abc", got.headers.Get("X-Trace"))
}

func TestDispatchKeepsExplicitContentType(t *testing.T) {
	srv, got, _ := newEchoServer(t, http.StatusOK, "")
	d := New(nil, Options{})

	_, err := d.Dispatch(context.Background(), &record.Record{
		URL:     srv.URL,
		Method:  "PUT",
		Headers: map[string]string{"content-type": "text/plain"},
		Data:    "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "text/plain", got.headers.Get("Content-Type"))

	var decoded string
	require.NoError(t, json.Unmarshal(got.body, &decoded))
	assert.Equal(t, "hello", decoded)
}

func TestDispatchWithoutBody(t *testing.T) {
	srv, got, _ := newEchoServer(t, http.StatusNotFound, "missing")
	d := New(nil, Options{})

	res, err := d.Dispatch(context.Background(), &record.Record{URL: srv.URL, Method: "GET"})
	require.NoError(t, err, "HTTP error statuses are results, not errors")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, "missing", string(res.Body))
	assert.Empty(t, got.body)
	assert.Empty(t, got.headers.Get("Content-Type"))
}

func TestDispatchValidationBeforeNetwork(t *testing.T) {
	srv, _, hits := newEchoServer(t, http.StatusOK, "")
	d := New(nil, Options{})

	tests := []struct {
		name  string
		rec   *record.Record
		field string
	}{
		{"missing url", &record.Record{Method: "GET"}, "url"},
		{"nil record", nil, "method"},
		{"unsupported method", &record.Record{URL: srv.URL, Method: "PATCH"}, "method"},
		{"bad url", &record.Record{URL: "http://bad host/", Method: "GET"}, "url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Dispatch(context.Background(), tt.rec)
			var verr *record.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(hits))
}

func TestDispatchTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	d := New(nil, Options{DefaultTimeout: 50 * time.Millisecond})
	_, err := d.Dispatch(context.Background(), &record.Record{URL: srv.URL, Method: "GET"})

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.True(t, terr.Timeout)
}

func TestDispatchConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	d := New(nil, Options{})
	_, err := d.Dispatch(context.Background(), &record.Record{URL: url, Method: "DELETE", Timeout: record.IntPtr(2)})

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.False(t, terr.Timeout)
	assert.Equal(t, "DELETE", terr.Method)
}

func TestDispatchRedirects(t *testing.T) {
	var final int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/start" {
			http.Redirect(w, r, "/end", http.StatusFound)
			return
		}
		atomic.AddInt32(&final, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	res, err := New(nil, Options{}).Dispatch(context.Background(), &record.Record{URL: srv.URL + "/start", Method: "GET"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, err = New(nil, Options{MaxRedirects: -1}).Dispatch(context.Background(), &record.Record{URL: srv.URL + "/start", Method: "GET"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, res.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&final))
}
