package asyncclient

import (
	"io"
	"net"
	"time"

	"golang.org/x/sys/unix"
)

// pollConn wraps a non-blocking socket fd and parks callers on the Client's
// single readiness multiplexer instead of blocking in the kernel itself:
// on EAGAIN it registers interest and waits on a buffered per-fd channel
// that only the Client's run-loop goroutine ever signals. crypto/tls's
// Handshake/Read/Write are synchronous, so they call Read/Write below and
// transparently block here until the multiplexer reports readiness; the
// multiplexer itself stays singular even though many pollConns exist.
type pollConn struct {
	fd     int
	client *Client

	readable chan struct{}
	writable chan struct{}
}

func newPollConn(client *Client, fd int) *pollConn {
	return &pollConn{
		fd:       fd,
		client:   client,
		readable: make(chan struct{}, 1),
		writable: make(chan struct{}, 1),
	}
}

func (c *pollConn) notifyReadable() {
	select {
	case c.readable <- struct{}{}:
	default:
	}
}

func (c *pollConn) notifyWritable() {
	select {
	case c.writable <- struct{}{}:
	default:
	}
}

func (c *pollConn) waitReadable() error {
	c.client.setInterest(c.fd, true, false)
	<-c.readable
	return nil
}

func (c *pollConn) waitWritable() error {
	c.client.setInterest(c.fd, false, true)
	<-c.writable
	return nil
}

// Read implements net.Conn, retrying on EAGAIN by waiting for the
// multiplexer to report the fd readable.
func (c *pollConn) Read(b []byte) (int, error) {
	for {
		n, err := unix.Read(c.fd, b)
		if err == nil {
			if n == 0 {
				return 0, io.EOF
			}
			return n, nil
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			if werr := c.waitReadable(); werr != nil {
				return 0, werr
			}
			continue
		}
		return 0, err
	}
}

// Write implements net.Conn, retrying on EAGAIN by waiting for the
// multiplexer to report the fd writable.
func (c *pollConn) Write(b []byte) (int, error) {
	total := 0
	for total < len(b) {
		n, err := unix.Write(c.fd, b[total:])
		if n > 0 {
			total += n
		}
		if err == nil {
			continue
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			if werr := c.waitWritable(); werr != nil {
				return total, werr
			}
			continue
		}
		return total, err
	}
	return total, nil
}

func (c *pollConn) Close() error {
	c.client.forgetConn(c.fd)
	return unix.Close(c.fd)
}

// LocalAddr, RemoteAddr and the deadline setters are unused by this
// client: liveness is bounded by the poller's wait timeout, not by
// per-connection deadlines, so these satisfy net.Conn without doing
// anything.
func (c *pollConn) LocalAddr() net.Addr                { return nil }
func (c *pollConn) RemoteAddr() net.Addr               { return nil }
func (c *pollConn) SetDeadline(t time.Time) error      { return nil }
func (c *pollConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *pollConn) SetWriteDeadline(t time.Time) error { return nil }
