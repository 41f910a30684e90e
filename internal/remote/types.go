// Package remote is the file-transfer collaborator of the updater.
//
// It exposes a streaming recursive listing, file retrieval and the session
// lifecycle of an FTP server. Failures are returned as *Error values tagged with
// a Kind, so callers classify them by cause and never by message text.
package remote

import (
	"context"
	"io"
	"os"
)

// EntryKind is the type of a listed remote entry.
type EntryKind int

const (
	KindFile EntryKind = iota
	KindDirectory
	KindLink
)

func (k EntryKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	case KindLink:
		return "link"
	default:
		return "unknown"
	}
}

// Entry is one item of a remote listing.
type Entry struct {
	// Path is the full remote path, always separated by forward slashes.
	Path string
	Kind EntryKind
	// Size is only meaningful for files.
	Size int64
}

// Session is an authenticated connection to the remote server.
// A Session is not safe for concurrent use.
type Session interface {
	// ChangeDir sets the remote working directory.
	ChangeDir(path string) error
	// CurrentDir returns the absolute remote working directory.
	CurrentDir() (string, error)
	// List returns the direct children of dir. Entry paths are dir joined with the child name.
	List(ctx context.Context, dir string) ([]Entry, error)
	// Retrieve opens the remote file for reading. The caller must close the reader.
	Retrieve(ctx context.Context, path string) (io.ReadCloser, error)
	// Close ends the session. It is safe to call more than once.
	Close() error
}

// Dialer performs the protocol handshake and authentication.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

// SizeMatches is the size-based equality check between a listed remote file and a
// local file. Equal sizes are treated as equal content.
func SizeMatches(entry Entry, local os.FileInfo) bool {
	return local != nil && !local.IsDir() && entry.Kind == KindFile && entry.Size == local.Size()
}
