// Package updater mirrors a remote directory tree onto a local folder.
//
// A run connects, streams the remote listing and downloads new or resized files
// as they are seen, then deletes every local path the server no longer has.
// The server is the single source of truth; nothing is ever uploaded.
package updater

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"github.com/sershocode/supdater/internal/remote"
	"github.com/sershocode/supdater/internal/retry"
)

// Options configures an Updater.
type Options struct {
	Dialer     remote.Dialer
	SyncFolder string
	// Fs is rooted at the local sync root.
	Fs    afero.Fs
	Rules *Rules
	// SelfIgnore lists root-relative files that are never deleted.
	SelfIgnore []string
	// DryRun reports deletions without applying them.
	DryRun   bool
	Reporter Reporter
	// RetryDelay overrides retry.DefaultDelay when positive.
	RetryDelay time.Duration
}

type Updater struct {
	fs             afero.Fs
	conn           *Connection
	diff           *DiffEngine
	rules          *Rules
	reporter       Reporter
	transferPolicy *retry.Policy
	dryRun         bool
}

func New(opts Options) (*Updater, error) {
	if opts.Dialer == nil {
		return nil, errors.New("updater: dialer is required")
	}
	if opts.Fs == nil {
		return nil, errors.New("updater: filesystem is required")
	}

	rules := opts.Rules
	if rules == nil {
		rules = &Rules{}
	}
	reporter := opts.Reporter
	if reporter == nil {
		reporter = nopReporter{}
	}

	conn := NewConnection(opts.Dialer, opts.SyncFolder, opts.RetryDelay)
	transfer := retry.New("transfer", remote.IsTransferTimeout, conn.Reconnect)
	if opts.RetryDelay > 0 {
		transfer.Delay = opts.RetryDelay
	}

	return &Updater{
		fs:             opts.Fs,
		conn:           conn,
		diff:           NewDiffEngine(rules, opts.SelfIgnore),
		rules:          rules,
		reporter:       reporter,
		transferPolicy: transfer,
		dryRun:         opts.DryRun,
	}, nil
}

// Run performs one full reconciliation. On any error before the listing is
// fully consumed no local file is deleted. The returned Result is never nil.
func (u *Updater) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{DryRun: u.dryRun}
	defer func() { res.Duration = time.Since(start) }()

	if err := u.conn.Connect(ctx); err != nil {
		return res, fmt.Errorf("connect: %w", err)
	}
	defer u.conn.Disconnect()

	state := NewReconciliationState()
	err := u.stream(ctx, state)
	u.fill(res, state)
	if err != nil {
		return res, err
	}
	state.MarkComplete()

	local, err := ScanLocal(u.fs)
	if err != nil {
		return res, err
	}

	plan, err := u.diff.ComputeDeletions(local, state)
	if err != nil {
		return res, err
	}
	res.Plan = plan

	if u.dryRun {
		for _, rel := range plan.Files {
			u.reporter.Deleting(rel, false)
		}
		for _, rel := range plan.Dirs {
			u.reporter.Deleting(rel, true)
		}
		slog.Info("dry run", "files", len(plan.Files), "dirs", len(plan.Dirs))
	} else if err := u.applyDeletions(ctx, plan, res); err != nil {
		return res, err
	}

	slog.Info("sync done",
		"remote", res.RemoteFiles,
		"downloaded", res.Downloaded,
		"bytes", humanize.Bytes(uint64(res.DownloadedBytes)),
		"deletedFiles", res.DeletedFiles,
		"deletedDirs", res.DeletedDirs,
		"took", time.Since(start),
	)
	return res, nil
}

// stream consumes the remote listing and transfers files inline.
func (u *Updater) stream(ctx context.Context, state *ReconciliationState) error {
	root := u.conn.Root()
	for entry, err := range remote.Walk(ctx, u.listingSession, root) {
		if err != nil {
			return fmt.Errorf("list remote: %w", err)
		}

		rel, action := u.diff.Classify(state, root, entry)
		switch action {
		case ActionIgnore:
			u.reporter.Ignored(rel)
		case ActionTransfer:
			if err := u.transfer(ctx, state, rel, entry); err != nil {
				return err
			}
		}
	}
	return nil
}

// guardedSession runs directory listings under the transfer policy. A listing
// that times out reconnects and lists the same directory again.
type guardedSession struct {
	remote.Session
	u *Updater
}

func (g guardedSession) List(ctx context.Context, dir string) ([]remote.Entry, error) {
	var entries []remote.Entry
	err := g.u.transferPolicy.Do(ctx, func(ctx context.Context) error {
		sess, err := g.u.conn.Session()
		if err != nil {
			return err
		}
		entries, err = sess.List(ctx, dir)
		return err
	})
	return entries, err
}

func (u *Updater) listingSession() (remote.Session, error) {
	sess, err := u.conn.Session()
	if err != nil {
		return nil, err
	}
	return guardedSession{Session: sess, u: u}, nil
}

func (u *Updater) transfer(ctx context.Context, state *ReconciliationState, rel string, entry remote.Entry) error {
	needed, err := u.needsDownload(rel, entry)
	if err != nil {
		return err
	}
	if !needed {
		state.UpToDateFiles++
		u.reporter.UpToDate(rel)
		return nil
	}

	u.reporter.Downloading(rel, entry.Size)
	n, err := u.download(ctx, rel, entry)
	if err != nil {
		return fmt.Errorf("download %s: %w", rel, err)
	}

	state.DownloadedFiles++
	state.DownloadedBytes += n
	u.reporter.Downloaded(rel, n)
	slog.Info("sync", "op", "download", "path", rel, "size", humanize.Bytes(uint64(n)))
	return nil
}

func (u *Updater) fill(res *Result, state *ReconciliationState) {
	res.RemoteFiles = state.RemoteFiles.Cardinality()
	res.Ignored = state.Ignored.Cardinality()
	res.UpToDate = state.UpToDateFiles
	res.Downloaded = state.DownloadedFiles
	res.DownloadedBytes = state.DownloadedBytes
}
