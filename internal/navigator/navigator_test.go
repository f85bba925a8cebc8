package navigator

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedPrompter answers Select by option name and Confirm from a queue.
type scriptedPrompter struct {
	picks    []string
	confirms []bool

	selectLabels  []string
	confirmLabels []string
	seenOptions   [][]string
	err           error
}

func (s *scriptedPrompter) Select(label string, options []string) (int, error) {
	s.selectLabels = append(s.selectLabels, label)
	s.seenOptions = append(s.seenOptions, options)
	if s.err != nil {
		return -1, s.err
	}
	if len(s.picks) == 0 {
		return -1, errors.New("unexpected select")
	}
	pick := s.picks[0]
	s.picks = s.picks[1:]
	for i, o := range options {
		if o == pick {
			return i, nil
		}
	}
	return len(options), nil
}

func (s *scriptedPrompter) Confirm(label string) (bool, error) {
	s.confirmLabels = append(s.confirmLabels, label)
	if len(s.confirms) == 0 {
		return false, errors.New("unexpected confirm")
	}
	c := s.confirms[0]
	s.confirms = s.confirms[1:]
	return c, nil
}

func makeTree(t *testing.T, dirs ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(root, filepath.FromSlash(d)), 0o755))
	}
	return root
}

func TestNavigateEmptyRootAborts(t *testing.T) {
	root := makeTree(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray.json"), []byte("{}"), 0o644))

	_, err := New(root, &scriptedPrompter{}, nil).Navigate()
	var aborted *AbortedError
	require.ErrorAs(t, err, &aborted)
	assert.ErrorIs(t, err, ErrNoNamespaces)
}

func TestNavigateMissingRootAborts(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "absent"), &scriptedPrompter{}, nil).Navigate()
	var aborted *AbortedError
	assert.ErrorAs(t, err, &aborted)
	assert.NotErrorIs(t, err, ErrNoNamespaces)
}

func TestNavigateStopsAtLeaf(t *testing.T) {
	root := makeTree(t, "SystemA/example", "SystemB")
	p := &scriptedPrompter{picks: []string{"SystemB"}}

	ns, err := New(root, p, nil).Navigate()
	require.NoError(t, err)
	assert.Equal(t, "SystemB", ns)
	assert.Empty(t, p.confirmLabels, "leaf needs no confirmation")
	assert.Equal(t, []string{"SystemA", "SystemB"}, p.seenOptions[0])
}

func TestNavigateDescends(t *testing.T) {
	root := makeTree(t, "SystemA/example/v2", "SystemA/other", "SystemB")
	p := &scriptedPrompter{
		picks:    []string{"SystemA", "example", "v2"},
		confirms: []bool{true, true},
	}

	ns, err := New(root, p, nil).Navigate()
	require.NoError(t, err)
	assert.Equal(t, "SystemA/example/v2", ns)
	assert.Equal(t, []string{"Descend into SystemA?", "Descend into SystemA/example?"}, p.confirmLabels)
	assert.Equal(t, []string{"example", "other"}, p.seenOptions[1])
}

func TestNavigateDeclineStopsAtCurrentLevel(t *testing.T) {
	root := makeTree(t, "SystemA/example")
	p := &scriptedPrompter{picks: []string{"SystemA"}, confirms: []bool{false}}

	ns, err := New(root, p, nil).Navigate()
	require.NoError(t, err)
	assert.Equal(t, "SystemA", ns)
}

func TestNavigatePrompterErrorAborts(t *testing.T) {
	root := makeTree(t, "SystemA")
	_, err := New(root, &scriptedPrompter{err: ErrCancelled}, nil).Navigate()
	var aborted *AbortedError
	require.ErrorAs(t, err, &aborted)
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestNavigateOutOfRangeAborts(t *testing.T) {
	root := makeTree(t, "SystemA")
	_, err := New(root, &scriptedPrompter{picks: []string{"nope"}}, nil).Navigate()
	var aborted *AbortedError
	assert.ErrorAs(t, err, &aborted)
}

func TestParseSelection(t *testing.T) {
	options := []string{"alpha", "beta", "42"}
	tests := []struct {
		input string
		want  int
		ok    bool
	}{
		{"1", 0, true},
		{" 2 ", 1, true},
		{"3", 2, true},
		{"beta", 1, true},
		{"0", -1, false},
		{"4", -1, false},
		{"", -1, false},
		{"gamma", -1, false},
	}
	for _, tt := range tests {
		got, ok := parseSelection(tt.input, options)
		assert.Equal(t, tt.ok, ok, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestParseConfirm(t *testing.T) {
	for _, in := range []string{"y", "Y", "yes", " YES "} {
		v, ok := parseConfirm(in)
		assert.True(t, ok)
		assert.True(t, v, in)
	}
	for _, in := range []string{"", "n", "No"} {
		v, ok := parseConfirm(in)
		assert.True(t, ok)
		assert.False(t, v, in)
	}
	_, ok := parseConfirm("maybe")
	assert.False(t, ok)
}
