package remote

import (
	"context"
	"iter"
)

// SessionFunc returns the session to use for the next remote call.
type SessionFunc func() (Session, error)

// Walk lazily lists root recursively, one directory at a time. Every entry is
// yielded exactly once, the sequence is forward-only and cannot be restarted.
// The session is resolved again before each directory listing, so a reconnect
// performed by the consumer between two entries does not break the walk.
// Iteration stops at the first error, which is yielded with a zero Entry.
func Walk(ctx context.Context, session SessionFunc, root string) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		pending := []string{root}

		for len(pending) > 0 {
			dir := pending[len(pending)-1]
			pending = pending[:len(pending)-1]

			if err := ctx.Err(); err != nil {
				yield(Entry{}, err)
				return
			}

			sess, err := session()
			if err != nil {
				yield(Entry{}, err)
				return
			}

			entries, err := sess.List(ctx, dir)
			if err != nil {
				yield(Entry{}, err)
				return
			}

			var subdirs []string
			for _, entry := range entries {
				if !yield(entry, nil) {
					return
				}
				if entry.Kind == KindDirectory {
					subdirs = append(subdirs, entry.Path)
				}
			}

			// push in reverse so the first subdirectory is listed first
			for i := len(subdirs) - 1; i >= 0; i-- {
				pending = append(pending, subdirs[i])
			}
		}
	}
}
