package store

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/funnyzak/reqstash/internal/namespace"
	"github.com/funnyzak/reqstash/pkg/record"
)

// catalogWorkers bounds concurrent record decoding during Catalog.
const catalogWorkers = 8

// Entry is one stored record found by Catalog.
type Entry struct {
	Namespace string
	Method    string
	Path      string
	Record    *record.Record
}

// Catalog lists every stored record whose namespace equals prefix or lies
// beneath it. An empty prefix lists everything. Results are sorted by
// namespace, then by method. A prefix that would leave the root is a
// *record.ValidationError.
func (s *Store) Catalog(prefix string) ([]Entry, error) {
	prefix = strings.Trim(prefix, "/")
	start := s.root
	if prefix != "" {
		if err := namespace.Validate(prefix); err != nil {
			return nil, err
		}
		start = namespace.Dir(s.root, prefix)
	}

	var entries []Entry
	err := filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == start {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || filepath.Ext(d.Name()) != namespace.Extension {
			return nil
		}
		method := strings.TrimSuffix(d.Name(), namespace.Extension)
		if _, err := namespace.ParseMethod(method); err != nil || method != strings.ToUpper(method) {
			return nil
		}
		ns, err := namespace.Relative(s.root, filepath.Dir(path))
		if err != nil || ns == "" {
			return nil
		}
		entries = append(entries, Entry{Namespace: ns, Method: method, Path: path})
		return nil
	})
	if err != nil {
		return nil, &record.IOError{Op: "list", Path: start, Err: err}
	}

	group := new(errgroup.Group)
	group.SetLimit(catalogWorkers)
	for i := range entries {
		entry := &entries[i]
		group.Go(func() error {
			rec, err := s.Load(entry.Path)
			if err != nil {
				return err
			}
			entry.Record = rec
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Namespace != entries[j].Namespace {
			return entries[i].Namespace < entries[j].Namespace
		}
		return methodRank(entries[i].Method) < methodRank(entries[j].Method)
	})
	return entries, nil
}

func methodRank(m string) int {
	for i, candidate := range namespace.Methods {
		if candidate == m {
			return i
		}
	}
	return len(namespace.Methods)
}
