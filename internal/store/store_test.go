package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/funnyzak/reqstash/internal/namespace"
	"github.com/funnyzak/reqstash/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "root"), noopLogger{})
}

func sampleRecord() *record.Record {
	body, _ := record.DecodeValue(`{"name":"widget","tags":["a","b"],"count":3,"price":1.25}`)
	return &record.Record{
		URL:     "https://api.example.com/items",
		Method:  "POST",
		Headers: map[string]string{"Content-Type": "application/json", "X-Trace": "abc"},
		Data:    body,
		Timeout: record.IntPtr(15),
	}
}

func TestLoadMissingReturnsEmpty(t *testing.T) {
	s := newTestStore(t)
	rec, err := s.Load(namespace.Resolve(s.Root(), "nope", "GET"))
	require.NoError(t, err)
	assert.True(t, rec.IsEmpty())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	path := namespace.Resolve(s.Root(), "SystemA/example", "POST")
	want := sampleRecord()

	require.NoError(t, s.Save(want, path))
	assert.FileExists(t, filepath.Join(s.Root(), "SystemA", "example", "POST.json"))

	got, err := s.Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveRoundTripScalarBodies(t *testing.T) {
	s := newTestStore(t)
	bodies := map[string]any{
		"string": "plain text",
		"number": json.Number("42"),
		"array":  []any{json.Number("1"), "two"},
		"bool":   false,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			path := namespace.Resolve(s.Root(), "bodies/"+name, "PUT")
			want := &record.Record{Method: "PUT", Data: body}
			require.NoError(t, s.Save(want, path))

			got, err := s.Load(path)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestSaveOverwrites(t *testing.T) {
	s := newTestStore(t)
	path := namespace.Resolve(s.Root(), "svc", "GET")

	require.NoError(t, s.Save(sampleRecord(), path))
	replacement := &record.Record{URL: "http://other", Method: "GET"}
	require.NoError(t, s.Save(replacement, path))

	got, err := s.Load(path)
	require.NoError(t, err)
	assert.Equal(t, replacement, got)
}

func TestLoadParseError(t *testing.T) {
	s := newTestStore(t)
	contents := map[string]string{
		"syntax":        "{not json",
		"null":          "null",
		"extra bracket": `{"url":"http://x"}]`,
		"extra brace":   `{"url":"http://x"}}`,
	}
	for name, content := range contents {
		t.Run(name, func(t *testing.T) {
			path := namespace.Resolve(s.Root(), "broken/"+strings.ReplaceAll(name, " ", "-"), "GET")
			require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			rec, err := s.Load(path)
			var perr *record.ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, path, perr.Path)
			assert.Nil(t, rec)
		})
	}
}

func TestSaveIOError(t *testing.T) {
	s := newTestStore(t)
	// A regular file where a namespace directory is expected
	require.NoError(t, os.MkdirAll(s.Root(), 0o755))
	blocker := filepath.Join(s.Root(), "blocked")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := s.Save(sampleRecord(), namespace.Resolve(s.Root(), "blocked/inner", "GET"))
	var ioErr *record.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Contains(t, ioErr.Path, "blocked")
}

func TestMethodsAreIndependent(t *testing.T) {
	s := newTestStore(t)
	getPath := namespace.Resolve(s.Root(), "svc", "GET")
	postPath := namespace.Resolve(s.Root(), "svc", "POST")

	getRec := &record.Record{URL: "http://svc", Method: "GET"}
	require.NoError(t, s.Save(getRec, getPath))
	require.NoError(t, s.Save(&record.Record{URL: "http://svc", Method: "POST"}, postPath))

	deleted, err := s.DeleteRecord(postPath)
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err := s.Load(getPath)
	require.NoError(t, err)
	assert.Equal(t, getRec, got)
}

func TestDeleteRecordMissing(t *testing.T) {
	s := newTestStore(t)
	deleted, err := s.DeleteRecord(namespace.Resolve(s.Root(), "ghost", "GET"))
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestDeleteNamespace(t *testing.T) {
	s := newTestStore(t)
	for _, ns := range []string{"SystemB", "SystemB/child", "SystemB/child/grand"} {
		for _, m := range namespace.Methods {
			require.NoError(t, s.Save(&record.Record{Method: m, URL: "http://b"}, namespace.Resolve(s.Root(), ns, m)))
		}
	}
	keep := namespace.Resolve(s.Root(), "SystemA", "GET")
	require.NoError(t, s.Save(&record.Record{Method: "GET"}, keep))

	deleted, err := s.DeleteNamespace(namespace.Dir(s.Root(), "SystemB"))
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.NoDirExists(t, filepath.Join(s.Root(), "SystemB"))

	for _, ns := range []string{"SystemB", "SystemB/child"} {
		for _, m := range namespace.Methods {
			rec, err := s.Load(namespace.Resolve(s.Root(), ns, m))
			require.NoError(t, err)
			assert.True(t, rec.IsEmpty())
		}
	}
	assert.FileExists(t, keep)

	deleted, err = s.DeleteNamespace(namespace.Dir(s.Root(), "SystemB"))
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestDeleteNamespaceRefusesRoot(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.MkdirAll(s.Root(), 0o755))
	_, err := s.DeleteNamespace(namespace.Dir(s.Root(), ""))
	var ioErr *record.IOError
	assert.ErrorAs(t, err, &ioErr)
	assert.DirExists(t, s.Root())
}

func TestCatalog(t *testing.T) {
	s := newTestStore(t)
	saves := []struct{ ns, method string }{
		{"b/svc", "POST"},
		{"b/svc", "GET"},
		{"a", "DELETE"},
		{"b", "PUT"},
	}
	for _, sv := range saves {
		require.NoError(t, s.Save(&record.Record{Method: sv.method, URL: "http://" + sv.ns}, namespace.Resolve(s.Root(), sv.ns, sv.method)))
	}
	// Files that are not records are skipped
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), "b", "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), "b", "PATCH.json"), []byte("{}"), 0o644))

	entries, err := s.Catalog("")
	require.NoError(t, err)
	var got []string
	for _, e := range entries {
		got = append(got, e.Namespace+" "+e.Method)
		require.NotNil(t, e.Record)
		assert.Equal(t, "http://"+e.Namespace, e.Record.URL)
	}
	assert.Equal(t, []string{"a DELETE", "b PUT", "b/svc GET", "b/svc POST"}, got)

	entries, err = s.Catalog("b/svc")
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = s.Catalog("missing")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCatalogFailsOnBrokenRecord(t *testing.T) {
	s := newTestStore(t)
	path := namespace.Resolve(s.Root(), "bad", "GET")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("nope"), 0o644))

	_, err := s.Catalog("")
	var perr *record.ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestCatalogRejectsPrefixOutsideRoot(t *testing.T) {
	base := t.TempDir()
	s := New(filepath.Join(base, "a", "root"), noopLogger{})
	// A record one level above the root must stay out of reach
	outside := namespace.Resolve(filepath.Join(base, "a"), "leak", "GET")
	require.NoError(t, os.MkdirAll(filepath.Dir(outside), 0o755))
	require.NoError(t, os.WriteFile(outside, []byte(`{"url":"http://leak"}`), 0o644))

	for _, prefix := range []string{"..", "../..", "svc/../../leak", "/../leak"} {
		entries, err := s.Catalog(prefix)
		var verr *record.ValidationError
		require.ErrorAs(t, err, &verr, prefix)
		assert.Equal(t, "namespace", verr.Field)
		assert.Empty(t, entries)
	}
}

func TestCatalogEmptyRoot(t *testing.T) {
	s := newTestStore(t)
	entries, err := s.Catalog("")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
