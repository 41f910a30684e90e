package updater

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sershocode/supdater/internal/remote"
	"github.com/sershocode/supdater/internal/retry"
)

type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Connection owns the remote session of a run and knows how to rebuild it.
// It is driven by a single goroutine.
type Connection struct {
	dialer     remote.Dialer
	syncFolder string
	policy     *retry.Policy

	state   ConnState
	session remote.Session
	root    string
}

func NewConnection(dialer remote.Dialer, syncFolder string, retryDelay time.Duration) *Connection {
	c := &Connection{
		dialer:     dialer,
		syncFolder: syncFolder,
	}
	c.policy = retry.New("connect", remote.IsConnectTimeout, func(context.Context) error {
		c.closeSession()
		return nil
	})
	if retryDelay > 0 {
		c.policy.Delay = retryDelay
	}
	return c
}

// Connect dials, authenticates and enters the sync folder.
// Connect timeouts are retried; a missing sync folder is fatal.
func (c *Connection) Connect(ctx context.Context) error {
	c.state = StateConnecting

	err := c.policy.Do(ctx, func(ctx context.Context) error {
		sess, err := c.dialer.Dial(ctx)
		if err != nil {
			return err
		}
		c.session = sess

		if err := sess.ChangeDir(c.syncFolder); err != nil {
			if remote.IsTimeout(err) {
				return err
			}
			return fmt.Errorf("%w: %s: %w", ErrSyncRootUnavailable, c.syncFolder, err)
		}

		root, err := sess.CurrentDir()
		if err != nil {
			if remote.IsTimeout(err) {
				return err
			}
			return fmt.Errorf("%w: %s: %w", ErrSyncRootUnavailable, c.syncFolder, err)
		}
		c.root = root
		return nil
	})
	if err != nil {
		c.closeSession()
		return err
	}

	c.state = StateConnected
	slog.Info("connected", "folder", c.syncFolder, "root", c.root)
	return nil
}

// Disconnect ends the session. Errors are logged and swallowed.
func (c *Connection) Disconnect() {
	if c.state == StateDisconnected && c.session == nil {
		return
	}
	c.closeSession()
	slog.Debug("disconnected")
}

// Reconnect fully rebuilds the session. It is the recovery action of the transfer policy.
func (c *Connection) Reconnect(ctx context.Context) error {
	slog.Info("reconnecting")
	c.Disconnect()
	return c.Connect(ctx)
}

// Session returns the live session or ErrNotConnected.
func (c *Connection) Session() (remote.Session, error) {
	if c.state != StateConnected || c.session == nil {
		return nil, ErrNotConnected
	}
	return c.session, nil
}

// Root is the absolute remote path of the sync root. Empty until connected.
func (c *Connection) Root() string {
	return c.root
}

func (c *Connection) State() ConnState {
	return c.state
}

func (c *Connection) closeSession() {
	if c.session != nil {
		if err := c.session.Close(); err != nil {
			slog.Debug("close session", "error", err)
		}
	}
	c.session = nil
	c.state = StateDisconnected
}
