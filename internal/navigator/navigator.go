package navigator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/funnyzak/reqstash/internal/logger"
	"github.com/funnyzak/reqstash/internal/namespace"
)

// ErrNoNamespaces is returned (wrapped in *AbortedError) when the storage
// root holds no namespaces to choose from.
var ErrNoNamespaces = errors.New("no saved namespaces found")

// AbortedError reports that namespace selection ended without an answer.
type AbortedError struct {
	Err error
}

func (e *AbortedError) Error() string {
	return fmt.Sprintf("namespace selection aborted: %v", e.Err)
}

func (e *AbortedError) Unwrap() error { return e.Err }

// Prompter asks the user to choose. Select returns the index of the chosen
// option.
type Prompter interface {
	Select(label string, options []string) (int, error)
	Confirm(label string) (bool, error)
}

type state int

const (
	atRoot state = iota
	atNode
	done
)

// Navigator walks the directory tree below root.
type Navigator struct {
	root     string
	prompter Prompter
	log      logger.Logger
}

// New creates a Navigator.
func New(root string, prompter Prompter, log logger.Logger) *Navigator {
	if log == nil {
		log = logger.Nop()
	}
	return &Navigator{root: root, prompter: prompter, log: log}
}

// Navigate runs the selection and returns the chosen namespace, "/"
// separated and relative to the root.
func (n *Navigator) Navigate() (string, error) {
	current := n.root
	st := atRoot

	for st != done {
		children, err := subdirectories(current)
		if err != nil {
			return "", &AbortedError{Err: err}
		}
		if len(children) == 0 {
			if st == atRoot {
				return "", &AbortedError{Err: ErrNoNamespaces}
			}
			break
		}

		label := "Select a namespace"
		if st == atNode {
			ns, _ := namespace.Relative(n.root, current)
			label = fmt.Sprintf("Select a namespace under %s", ns)
		}
		idx, err := n.prompter.Select(label, children)
		if err != nil {
			return "", &AbortedError{Err: err}
		}
		if idx < 0 || idx >= len(children) {
			return "", &AbortedError{Err: fmt.Errorf("selection %d out of range", idx)}
		}
		current = filepath.Join(current, children[idx])
		st = atNode

		ns, err := namespace.Relative(n.root, current)
		if err != nil {
			return "", &AbortedError{Err: err}
		}
		n.log.Debug("Namespace selected", "namespace", ns)

		deeper, err := subdirectories(current)
		if err != nil {
			return "", &AbortedError{Err: err}
		}
		if len(deeper) == 0 {
			st = done
			continue
		}
		descend, err := n.prompter.Confirm(fmt.Sprintf("Descend into %s?", ns))
		if err != nil {
			return "", &AbortedError{Err: err}
		}
		if !descend {
			st = done
		}
	}

	return namespace.Relative(n.root, current)
}

func subdirectories(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
