package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/funnyzak/reqstash/internal/logger"
	"github.com/funnyzak/reqstash/pkg/record"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Store reads and writes records below Root. It holds no state besides the
// root path; every call opens and closes its own file.
type Store struct {
	root string
	log  logger.Logger
}

// New creates a Store rooted at root.
func New(root string, log logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{root: root, log: log}
}

// Root returns the storage root directory.
func (s *Store) Root() string {
	return s.root
}

// Load reads the record at path. A missing file yields an empty record and
// no error.
func (s *Store) Load(path string) (*record.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Debug("No stored record, using defaults", "path", path)
			return &record.Record{}, nil
		}
		return nil, &record.IOError{Op: "read", Path: path, Err: err}
	}

	rec, err := record.Decode(data)
	if err != nil {
		return nil, &record.ParseError{Path: path, Err: err}
	}
	s.log.Debug("Loaded stored record", "path", path)
	return rec, nil
}

// Exists reports whether a record file is present at path.
func (s *Store) Exists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, &record.IOError{Op: "stat", Path: path, Err: err}
	}
	if info.IsDir() {
		return false, &record.IOError{Op: "stat", Path: path, Err: fmt.Errorf("is a directory")}
	}
	return true, nil
}

// Save writes rec to path, replacing any previous content. Parent
// directories are created as needed.
func (s *Store) Save(rec *record.Record, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return &record.IOError{Op: "create directory", Path: dir, Err: err}
	}

	data, err := record.Encode(rec)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, filePerm); err != nil {
		return &record.IOError{Op: "write", Path: path, Err: err}
	}

	s.log.Info("Record saved", "path", path, "bytes", len(data))
	return nil
}

// DeleteRecord removes the single record at path. It returns false when
// there was nothing to delete.
func (s *Store) DeleteRecord(path string) (bool, error) {
	exists, err := s.Exists(path)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		return false, &record.IOError{Op: "delete", Path: path, Err: err}
	}
	s.log.Info("Record deleted", "path", path)
	return true, nil
}

// DeleteNamespace removes dir and everything beneath it: every method's
// record and every nested namespace. It returns false when dir is absent.
// There is no confirmation here.
func (s *Store) DeleteNamespace(dir string) (bool, error) {
	if filepath.Clean(dir) == filepath.Clean(s.root) {
		return false, &record.IOError{Op: "delete namespace", Path: dir, Err: fmt.Errorf("refusing to delete the storage root")}
	}

	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, &record.IOError{Op: "stat", Path: dir, Err: err}
	}
	if !info.IsDir() {
		return false, &record.IOError{Op: "delete namespace", Path: dir, Err: fmt.Errorf("not a directory")}
	}

	if err := os.RemoveAll(dir); err != nil {
		return false, &record.IOError{Op: "delete namespace", Path: dir, Err: err}
	}
	s.log.Info("Namespace deleted", "path", dir)
	return true, nil
}
