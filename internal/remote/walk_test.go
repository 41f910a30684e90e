package remote

import (
	"context"
	"errors"
	"io"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// treeSession serves a static tree; dirs maps a directory to its children.
type treeSession struct {
	dirs   map[string][]Entry
	listed []string
	failOn string
}

func (s *treeSession) ChangeDir(string) error       { return nil }
func (s *treeSession) CurrentDir() (string, error)  { return "/pub", nil }
func (s *treeSession) Close() error                 { return nil }
func (s *treeSession) Retrieve(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func (s *treeSession) List(_ context.Context, dir string) ([]Entry, error) {
	s.listed = append(s.listed, dir)
	if dir == s.failOn {
		return nil, &Error{Op: OpList, Path: dir, Kind: KindProtocol, Err: errors.New("550 permission denied")}
	}
	return s.dirs[dir], nil
}

func file(dir, name string, size int64) Entry {
	return Entry{Path: path.Join(dir, name), Kind: KindFile, Size: size}
}

func folder(dir, name string) Entry {
	return Entry{Path: path.Join(dir, name), Kind: KindDirectory}
}

func newTree() *treeSession {
	return &treeSession{dirs: map[string][]Entry{
		"/pub":      {file("/pub", "readme.txt", 10), folder("/pub", "data"), folder("/pub", "maps")},
		"/pub/data": {file("/pub/data", "save.bin", 500), folder("/pub/data", "deep")},
		"/pub/data/deep": {
			{Path: "/pub/data/deep/latest", Kind: KindLink},
		},
		"/pub/maps": {file("/pub/maps", "level1.map", 42)},
	}}
}

func TestWalk_YieldsEveryEntryOnce(t *testing.T) {
	tree := newTree()

	var got []string
	for entry, err := range Walk(context.Background(), func() (Session, error) { return tree, nil }, "/pub") {
		require.NoError(t, err)
		got = append(got, entry.Path)
	}

	assert.Equal(t, []string{
		"/pub/readme.txt",
		"/pub/data",
		"/pub/maps",
		"/pub/data/save.bin",
		"/pub/data/deep",
		"/pub/data/deep/latest",
		"/pub/maps/level1.map",
	}, got)
	assert.Equal(t, []string{"/pub", "/pub/data", "/pub/data/deep", "/pub/maps"}, tree.listed)
}

func TestWalk_StopsAtFirstError(t *testing.T) {
	tree := newTree()
	tree.failOn = "/pub/data"

	var errs []error
	count := 0
	for _, err := range Walk(context.Background(), func() (Session, error) { return tree, nil }, "/pub") {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		count++
	}

	require.Len(t, errs, 1)
	assert.False(t, IsTimeout(errs[0]))
	assert.Equal(t, 3, count, "only the root listing is yielded")
	assert.NotContains(t, tree.listed, "/pub/maps")
}

func TestWalk_ResolvesSessionPerDirectory(t *testing.T) {
	first, second := newTree(), newTree()
	calls := 0
	sessions := func() (Session, error) {
		calls++
		if calls == 1 {
			return first, nil
		}
		return second, nil
	}

	n := 0
	for _, err := range Walk(context.Background(), sessions, "/pub") {
		require.NoError(t, err)
		n++
	}

	assert.Equal(t, 7, n)
	assert.Equal(t, []string{"/pub"}, first.listed)
	assert.Equal(t, []string{"/pub/data", "/pub/data/deep", "/pub/maps"}, second.listed)
}

func TestWalk_EarlyBreak(t *testing.T) {
	tree := newTree()
	for range Walk(context.Background(), func() (Session, error) { return tree, nil }, "/pub") {
		break
	}
	assert.Equal(t, []string{"/pub"}, tree.listed)
}

func TestWalk_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var gotErr error
	for _, err := range Walk(ctx, func() (Session, error) { return newTree(), nil }, "/pub") {
		gotErr = err
	}
	assert.ErrorIs(t, gotErr, context.Canceled)
}
