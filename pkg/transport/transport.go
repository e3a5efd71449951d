// Package transport implements the byte-level read/write primitives a
// connection worker uses, over either a plain TCP socket or a TLS session,
// plus the zero-copy and bounce-buffer file transfer paths.
package transport

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"os"
	"time"

	"github.com/corewire/httpd/pkg/errtype"
)

// sendFileBounceSize is the buffer size used to relay a file to a TLS
// session, which cannot consume a raw file descriptor the way a plain
// socket's sendfile(2) path can.
const sendFileBounceSize = 4096

// Mode identifies whether a Transport rides a plain or a TLS connection.
type Mode int

const (
	ModePlain Mode = iota
	ModeTLS
)

// Transport wraps a net.Conn (plain or already-upgraded TLS) and exposes
// the four operations the exchange controller needs: one-octet reads, a
// short-write-safe bulk write, a file transfer, and shutdown.
type Transport struct {
	conn net.Conn
	mode Mode
	one  [1]byte
}

// New wraps an accepted plain-TCP connection, enabling TCP_NODELAY so small
// response prefixes are not delayed by Nagle's algorithm.
func New(conn net.Conn) *Transport {
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	return &Transport{conn: conn, mode: ModePlain}
}

// Upgrade performs a blocking TLS server handshake over conn and returns a
// Transport bound to the resulting session. Failure is reported as an
// io_read class error; the caller must not attempt a response on this
// connection.
func Upgrade(ctx context.Context, conn net.Conn, cfg *tls.Config) (*Transport, error) {
	tlsConn := tls.Server(conn, cfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return nil, errtype.Wrap(errtype.ClassIORead, errtype.CodeFailedReadMethod, err)
	}
	return &Transport{conn: tlsConn, mode: ModeTLS}, nil
}

// Conn exposes the underlying connection, e.g. for peer-address inspection.
func (t *Transport) Conn() net.Conn { return t.conn }

// Mode reports whether this transport is plain or TLS.
func (t *Transport) Mode() Mode { return t.mode }

// ReadOctet reads exactly one byte, the primitive the request parser drives
// byte-by-byte.
func (t *Transport) ReadOctet() (byte, error) {
	if _, err := io.ReadFull(t.conn, t.one[:]); err != nil {
		return 0, errtype.Wrap(errtype.ClassIORead, errtype.CodeFailedReadMethod, err)
	}
	return t.one[0], nil
}

// WriteAll writes the whole buffer, looping over any short writes the
// underlying connection performs.
func (t *Transport) WriteAll(b []byte) error {
	for len(b) > 0 {
		n, err := t.conn.Write(b)
		if err != nil {
			return errtype.Wrap(errtype.ClassIOWrite, errtype.CodeFailedWriteMetadata, err)
		}
		b = b[n:]
	}
	return nil
}

// SendFile transfers count bytes from f to the connection. Plain
// connections use io.CopyN, which the Go runtime lowers to sendfile(2) on
// Linux when both ends are *os.File/*net.TCPConn; TLS connections fall back
// to a bounded bounce buffer since the TLS record layer must see every
// plaintext byte.
func (t *Transport) SendFile(f *os.File, count int64) error {
	var (
		n   int64
		err error
	)
	switch t.mode {
	case ModePlain:
		n, err = io.CopyN(t.conn, f, count)
	default:
		n, err = io.CopyBuffer(t.conn, io.LimitReader(f, count), make([]byte, sendFileBounceSize))
	}
	if err != nil || n != count {
		if err == nil {
			err = io.ErrShortWrite
		}
		return errtype.Wrap(errtype.ClassIOWrite, errtype.CodeFailedWriteBody, err)
	}
	return nil
}

// shutdownLinger bounds how long Close blocks draining unsent data,
// substituting for the original's TIOCOUTQ poll-sleep loop. It must stay
// positive: SetLinger(0) discards unacknowledged data and sends an RST,
// which can truncate a response WriteAll/SendFile just handed to the
// kernel.
const shutdownLinger = 3 * time.Second

// Shutdown closes the connection. Per the documented deviation from the
// original's write-failure sticky-leak behavior, it always closes the
// descriptor, even after a failed write, and discards the error Close
// returns instead of leaking the descriptor.
func (t *Transport) Shutdown() {
	if tc, ok := t.conn.(*net.TCPConn); ok {
		_ = tc.SetLinger(int(shutdownLinger.Seconds()))
	}
	_ = t.conn.Close()
}

// PeerIsLocal reports whether conn's remote address is loopback, covering
// IPv4, IPv6 and IPv4-mapped-IPv6 forms.
func PeerIsLocal(conn net.Conn) bool {
	addr, ok := conn.RemoteAddr().(*net.TCPAddr)
	if !ok {
		return false
	}
	return addr.IP.IsLoopback()
}
