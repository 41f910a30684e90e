package updater

import (
	"errors"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

var (
	ErrSyncRootUnavailable = errors.New("sync root unavailable")
	ErrNotConnected        = errors.New("not connected")
	ErrIncompleteListing   = errors.New("remote listing did not complete")
)

// ReconciliationState is the per-run bookkeeping filled while the remote listing streams.
// It is owned by a single run and discarded afterwards.
type ReconciliationState struct {
	// RemoteFiles holds every non-ignored remote file, relative to the sync root.
	RemoteFiles mapset.Set[string]
	// RemoteDirs holds every remote directory, relative to the sync root.
	RemoteDirs mapset.Set[string]
	// Ignored holds the remote files skipped by the download-ignore rules.
	Ignored mapset.Set[string]

	DownloadedFiles int
	DownloadedBytes int64
	UpToDateFiles   int

	complete bool
}

func NewReconciliationState() *ReconciliationState {
	return &ReconciliationState{
		RemoteFiles: mapset.NewThreadUnsafeSet[string](),
		RemoteDirs:  mapset.NewThreadUnsafeSet[string](),
		Ignored:     mapset.NewThreadUnsafeSet[string](),
	}
}

// MarkComplete records that the remote listing was consumed to the end.
// Deletions can only be computed after this.
func (s *ReconciliationState) MarkComplete() {
	s.complete = true
}

func (s *ReconciliationState) Complete() bool {
	return s.complete
}

// DeletionPlan lists the local paths to remove, in application order.
type DeletionPlan struct {
	// Files are sorted lexicographically.
	Files []string
	// Dirs are sorted by descending path length, so children go before their parents.
	Dirs []string
	// Protected counts the candidates kept because of the delete-ignore rules.
	Protected int
}

func (p *DeletionPlan) Empty() bool {
	return len(p.Files) == 0 && len(p.Dirs) == 0
}

// Result summarizes one run.
type Result struct {
	RemoteFiles     int
	Ignored         int
	UpToDate        int
	Downloaded      int
	DownloadedBytes int64
	DeletedFiles    int
	DeletedDirs     int
	DryRun          bool
	Plan            *DeletionPlan
	Duration        time.Duration
}
