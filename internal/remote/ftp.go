package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"path"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
)

const defaultFTPPort = "21"

// FTPConfig holds the connection settings of an FTP server.
type FTPConfig struct {
	Addr     string
	User     string
	Password string
	// ConnectTimeout bounds the TCP dial and the greeting.
	ConnectTimeout time.Duration
	// IdleTimeout bounds every single read or write on the control and data sockets.
	IdleTimeout time.Duration
}

// FTPDialer opens authenticated FTP sessions.
type FTPDialer struct {
	cfg FTPConfig
}

func NewFTPDialer(cfg FTPConfig) *FTPDialer {
	return &FTPDialer{cfg: cfg}
}

func (d *FTPDialer) Dial(ctx context.Context) (Session, error) {
	addr, err := NormalizeAddr(d.cfg.Addr)
	if err != nil {
		return nil, &Error{Op: OpDial, Kind: KindProtocol, Err: err}
	}

	netDialer := &net.Dialer{Timeout: d.cfg.ConnectTimeout}
	conn, err := ftp.Dial(addr,
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(d.cfg.ConnectTimeout),
		ftp.DialWithDialFunc(func(network, address string) (net.Conn, error) {
			c, err := netDialer.DialContext(ctx, network, address)
			if err != nil {
				return nil, err
			}
			return &idleConn{Conn: c, timeout: d.cfg.IdleTimeout}, nil
		}),
	)
	if err != nil {
		return nil, wrapErr(OpDial, addr, err)
	}

	user, password := d.cfg.User, d.cfg.Password
	if user == "" {
		user, password = "anonymous", "anonymous"
	}
	if err := conn.Login(user, password); err != nil {
		_ = conn.Quit()
		return nil, wrapErr(OpLogin, "", err)
	}

	return &ftpSession{conn: conn}, nil
}

// NormalizeAddr turns `ftp://host[:port][/]` or `host` into `host:port`.
func NormalizeAddr(raw string) (string, error) {
	addr := strings.TrimSpace(raw)
	addr = strings.TrimPrefix(addr, "ftp://")
	addr = strings.TrimSuffix(addr, "/")
	if addr == "" {
		return "", errors.New("empty server address")
	}
	if strings.Contains(addr, "/") {
		return "", fmt.Errorf("server address %q must not contain a path", raw)
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, defaultFTPPort)
	}
	return addr, nil
}

type ftpSession struct {
	conn   *ftp.ServerConn
	closed bool
}

func (s *ftpSession) ChangeDir(path string) error {
	return wrapErr(OpChdir, path, s.conn.ChangeDir(path))
}

func (s *ftpSession) CurrentDir() (string, error) {
	dir, err := s.conn.CurrentDir()
	return dir, wrapErr(OpPwd, "", err)
}

func (s *ftpSession) List(ctx context.Context, dir string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	listed, err := s.conn.List(dir)
	if err != nil {
		return nil, wrapErr(OpList, dir, err)
	}

	entries := make([]Entry, 0, len(listed))
	for _, e := range listed {
		if e.Name == "." || e.Name == ".." {
			continue
		}

		entry := Entry{Path: path.Join(dir, e.Name), Size: int64(e.Size)}
		switch e.Type {
		case ftp.EntryTypeFile:
			entry.Kind = KindFile
		case ftp.EntryTypeFolder:
			entry.Kind = KindDirectory
		case ftp.EntryTypeLink:
			entry.Kind = KindLink
		default:
			return nil, &Error{Op: OpList, Path: entry.Path, Kind: KindProtocol, Err: fmt.Errorf("unexpected entry type %v", e.Type)}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *ftpSession) Retrieve(ctx context.Context, path string) (io.ReadCloser, error) {
	resp, err := s.conn.Retr(path)
	if err != nil {
		return nil, wrapErr(OpRetrieve, path, err)
	}
	return &retrieveReader{ctx: ctx, path: path, resp: resp}, nil
}

func (s *ftpSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Quit()
}

// retrieveReader tags read failures and stops on cancellation.
type retrieveReader struct {
	ctx  context.Context
	path string
	resp *ftp.Response
}

func (r *retrieveReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := r.resp.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, wrapErr(OpRetrieve, r.path, err)
	}
	return n, err
}

func (r *retrieveReader) Close() error {
	return wrapErr(OpRetrieve, r.path, r.resp.Close())
}

// idleConn pushes the read/write deadline forward on every call, so a stalled
// peer surfaces as a timeout instead of blocking forever.
type idleConn struct {
	net.Conn
	timeout time.Duration
}

func (c *idleConn) Read(b []byte) (int, error) {
	if c.timeout > 0 {
		_ = c.Conn.SetReadDeadline(time.Now().Add(c.timeout))
	}
	return c.Conn.Read(b)
}

func (c *idleConn) Write(b []byte) (int, error) {
	if c.timeout > 0 {
		_ = c.Conn.SetWriteDeadline(time.Now().Add(c.timeout))
	}
	return c.Conn.Write(b)
}
