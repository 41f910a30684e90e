package updater

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/sershocode/supdater/internal/remote"
)

// fakeServer is an in-memory remote tree rooted at /pub.
type fakeServer struct {
	files map[string]string // full path -> content
	dirs  map[string]bool
	links map[string]bool

	// retrieveTimeouts makes the next N retrievals of a path time out
	retrieveTimeouts map[string]int
	denied           map[string]bool
	dialTimeouts     int
	missingRoot      bool

	// listTimeouts makes the next N listings of a directory time out
	listTimeouts map[string]int
	listErrDir   string

	dials     int
	retrieves map[string]int
	lists     map[string]int
	closed    int
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		files:            map[string]string{},
		dirs:             map[string]bool{"/pub": true},
		links:            map[string]bool{},
		retrieveTimeouts: map[string]int{},
		listTimeouts:     map[string]int{},
		lists:            map[string]int{},
		denied:           map[string]bool{},
		retrieves:        map[string]int{},
	}
}

func (f *fakeServer) addFile(rel, content string) {
	full := path.Join("/pub", rel)
	f.files[full] = content
	for dir := path.Dir(full); dir != "/pub" && dir != "/"; dir = path.Dir(dir) {
		f.dirs[dir] = true
	}
}

func (f *fakeServer) addDir(rel string) {
	f.dirs[path.Join("/pub", rel)] = true
}

func (f *fakeServer) Dial(context.Context) (remote.Session, error) {
	f.dials++
	if f.dialTimeouts > 0 {
		f.dialTimeouts--
		return nil, &remote.Error{Op: remote.OpDial, Kind: remote.KindTimeout, Err: os.ErrDeadlineExceeded}
	}
	return &fakeSession{srv: f, cwd: "/"}, nil
}

type fakeSession struct {
	srv    *fakeServer
	cwd    string
	closed bool
}

func (s *fakeSession) ChangeDir(dir string) error {
	full := path.Join(s.cwd, dir)
	if s.srv.missingRoot || !s.srv.dirs[full] {
		return &remote.Error{Op: remote.OpChdir, Path: dir, Kind: remote.KindProtocol, Err: errors.New("550 no such directory")}
	}
	s.cwd = full
	return nil
}

func (s *fakeSession) CurrentDir() (string, error) { return s.cwd, nil }

func (s *fakeSession) List(_ context.Context, dir string) ([]remote.Entry, error) {
	if s.closed {
		return nil, errors.New("use of closed session")
	}
	s.srv.lists[dir]++
	if s.srv.listTimeouts[dir] > 0 {
		s.srv.listTimeouts[dir]--
		return nil, &remote.Error{Op: remote.OpList, Path: dir, Kind: remote.KindTimeout, Err: os.ErrDeadlineExceeded}
	}
	if dir == s.srv.listErrDir {
		return nil, &remote.Error{Op: remote.OpList, Path: dir, Kind: remote.KindProtocol, Err: errors.New("451 aborted")}
	}

	var out []remote.Entry
	for p := range s.srv.dirs {
		if p != dir && path.Dir(p) == dir {
			out = append(out, remote.Entry{Path: p, Kind: remote.KindDirectory})
		}
	}
	for p, content := range s.srv.files {
		if path.Dir(p) == dir {
			out = append(out, remote.Entry{Path: p, Kind: remote.KindFile, Size: int64(len(content))})
		}
	}
	for p := range s.srv.links {
		if path.Dir(p) == dir {
			out = append(out, remote.Entry{Path: p, Kind: remote.KindLink})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (s *fakeSession) Retrieve(_ context.Context, p string) (io.ReadCloser, error) {
	if s.closed {
		return nil, errors.New("use of closed session")
	}
	s.srv.retrieves[p]++
	if s.srv.retrieveTimeouts[p] > 0 {
		s.srv.retrieveTimeouts[p]--
		return nil, &remote.Error{Op: remote.OpRetrieve, Path: p, Kind: remote.KindTimeout, Err: os.ErrDeadlineExceeded}
	}
	content, ok := s.srv.files[p]
	if !ok || s.srv.denied[p] {
		return nil, &remote.Error{Op: remote.OpRetrieve, Path: p, Kind: remote.KindProtocol, Err: errors.New("550 not found")}
	}
	return io.NopCloser(bytes.NewBufferString(content)), nil
}

func (s *fakeSession) Close() error {
	if !s.closed {
		s.closed = true
		s.srv.closed++
	}
	return nil
}

// recorder captures reporter calls.
type recorder struct {
	ignored     []string
	upToDate    []string
	downloaded  []string
	deleted     []string
	deletedDirs []string
}

func (r *recorder) Ignored(rel string)            { r.ignored = append(r.ignored, rel) }
func (r *recorder) UpToDate(rel string)           { r.upToDate = append(r.upToDate, rel) }
func (r *recorder) Downloading(string, int64)     {}
func (r *recorder) Downloaded(rel string, _ int64) { r.downloaded = append(r.downloaded, rel) }
func (r *recorder) Deleting(rel string, dir bool) {
	if dir {
		r.deletedDirs = append(r.deletedDirs, rel)
		return
	}
	r.deleted = append(r.deleted, rel)
}

// newLocalFs returns an in-memory filesystem rooted at the sync root.
func newLocalFs(t *testing.T) afero.Fs {
	t.Helper()
	mem := afero.NewMemMapFs()
	require.NoError(t, mem.MkdirAll("/sync", 0o755))
	return afero.NewBasePathFs(mem, "/sync")
}

// newDiskFs is rooted at a temp dir on the real filesystem, for the cases
// MemMapFs does not model: file modes and a file standing on a parent path.
func newDiskFs(t *testing.T) afero.Fs {
	t.Helper()
	return afero.NewBasePathFs(afero.NewOsFs(), t.TempDir())
}

func writeLocal(t *testing.T, fsys afero.Fs, rel, content string) {
	t.Helper()
	if dir := path.Dir(rel); dir != "." {
		require.NoError(t, fsys.MkdirAll(dir, 0o755))
	}
	require.NoError(t, afero.WriteFile(fsys, rel, []byte(content), 0o644))
}

func readLocal(t *testing.T, fsys afero.Fs, rel string) string {
	t.Helper()
	b, err := afero.ReadFile(fsys, rel)
	require.NoError(t, err)
	return string(b)
}

func sized(n int) string {
	return strings.Repeat("x", n)
}
