package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
)

// ErrorKind tags the cause of a remote failure.
type ErrorKind int

const (
	// KindProtocol covers every permanent failure: rejected credentials, missing paths,
	// unexpected replies. These are never retried.
	KindProtocol ErrorKind = iota
	// KindTimeout marks a connection or transfer that timed out.
	KindTimeout
)

func (k ErrorKind) String() string {
	if k == KindTimeout {
		return "timeout"
	}
	return "protocol"
}

// Operation names used in Error.Op.
const (
	OpDial     = "dial"
	OpLogin    = "login"
	OpChdir    = "chdir"
	OpPwd      = "pwd"
	OpList     = "list"
	OpRetrieve = "retrieve"
)

// Error is a failure reported by the remote server or the transport below it.
type Error struct {
	Op   string
	Path string
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("remote: %s %q: %s: %v", e.Op, e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("remote: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// wrapErr tags err with its kind. nil stays nil.
func wrapErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		return err
	}
	return &Error{Op: op, Path: path, Kind: classify(err), Err: err}
}

func classify(err error) ErrorKind {
	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindProtocol
}

// IsTimeout reports whether err is a remote timeout of any operation.
func IsTimeout(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == KindTimeout
}

// IsConnectTimeout reports whether err is a timeout while establishing a session.
func IsConnectTimeout(err error) bool {
	var re *Error
	if !errors.As(err, &re) || re.Kind != KindTimeout {
		return false
	}
	switch re.Op {
	case OpDial, OpLogin, OpChdir, OpPwd:
		return true
	}
	return false
}

// IsTransferTimeout reports whether err is a timeout on the data channel,
// while retrieving a file or a directory listing.
func IsTransferTimeout(err error) bool {
	var re *Error
	if !errors.As(err, &re) || re.Kind != KindTimeout {
		return false
	}
	return re.Op == OpRetrieve || re.Op == OpList
}
