package asyncclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/toyinlola/commitgroup/internal/errkind"
)

const defaultPollTimeoutMs = 1000

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the structured logger used for per-request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithPollTimeout bounds how long a single poller.wait call may block;
// RunLoop re-checks for pending work every time it elapses.
func WithPollTimeout(d time.Duration) Option {
	return func(c *Client) { c.pollTimeoutMs = int(d.Milliseconds()) }
}

// WithTLSConfig overrides the default TLS configuration used for every
// connection.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(c *Client) { c.tlsConfig = cfg }
}

// Client is the single-threaded, event-driven HTTPS client: one poller
// (epoll/kqueue), one run-loop goroutine calling wait() on it, and any
// number of in-flight requests whose per-request goroutines block on
// per-fd channels fed exclusively by that loop goroutine.
type Client struct {
	poller        poller
	pollTimeoutMs int
	tlsConfig     *tls.Config
	logger        *slog.Logger

	mu       sync.Mutex
	conns    map[int]*pollConn
	inFlight int

	pending chan *request
}

// NewClient constructs a Client and its poller backend.
func NewClient(opts ...Option) (*Client, error) {
	p, err := newPoller()
	if err != nil {
		return nil, err
	}
	c := &Client{
		poller:        p,
		pollTimeoutMs: defaultPollTimeoutMs,
		logger:        slog.Default(),
		conns:         make(map[int]*pollConn),
		pending:       make(chan *request, 64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// PostAsync enqueues a POST request and returns a Future that resolves
// once RunLoop has driven it through CONNECTING -> ... -> DONE/ERROR.
func (c *Client) PostAsync(host, path string, body []byte, headers map[string]string) *Future {
	f := newFuture()
	c.mu.Lock()
	c.inFlight++
	c.mu.Unlock()
	req := &request{host: host, port: 443, path: path, body: body, headers: headers, future: f}
	go c.processRequest(req)
	return f
}

// RunLoop drives the single readiness multiplexer until every request
// submitted so far has reached DONE or ERROR. It is the one goroutine in
// the Client that ever calls poller.wait.
func (c *Client) RunLoop() {
	events := make([]pollEvent, 0, 64)
	for {
		c.mu.Lock()
		remaining := c.inFlight
		c.mu.Unlock()
		if remaining == 0 {
			return
		}

		events = events[:0]
		events, err := c.poller.wait(events, c.pollTimeoutMs)
		if err != nil {
			c.logger.Error("poller wait failed", "error", err)
			continue
		}
		for _, ev := range events {
			c.mu.Lock()
			conn := c.conns[ev.fd]
			c.mu.Unlock()
			if conn == nil {
				continue
			}
			if ev.readable {
				conn.notifyReadable()
			}
			if ev.writable {
				conn.notifyWritable()
			}
		}
	}
}

// Close releases the multiplexer's file descriptor.
func (c *Client) Close() error {
	return c.poller.close()
}

func (c *Client) registerConn(conn *pollConn) error {
	c.mu.Lock()
	c.conns[conn.fd] = conn
	c.mu.Unlock()
	return c.poller.register(conn.fd, false, false)
}

func (c *Client) forgetConn(fd int) {
	c.mu.Lock()
	delete(c.conns, fd)
	c.mu.Unlock()
	_ = c.poller.deregister(fd)
}

func (c *Client) setInterest(fd int, readable, writable bool) {
	_ = c.poller.modify(fd, readable, writable)
}

func (c *Client) requestDone() {
	c.mu.Lock()
	c.inFlight--
	c.mu.Unlock()
}

// processRequest drives one request through every state of the machine,
// fulfilling or failing its Future at the end.
func (c *Client) processRequest(req *request) {
	defer c.requestDone()

	ip, err := resolveHost(req.host)
	if err != nil {
		req.future.fail(StateConnecting, errkind.New(errkind.Network, "resolving host", err))
		return
	}

	fd, sa, err := createNonblockingSocket(ip, req.port)
	if err != nil {
		req.future.fail(StateConnecting, errkind.New(errkind.Network, "creating socket", err))
		return
	}

	conn := newPollConn(c, fd)
	if err := c.registerConn(conn); err != nil {
		_ = unix.Close(fd)
		req.future.fail(StateConnecting, errkind.New(errkind.Network, "registering socket", err))
		return
	}

	if err := connectNonblocking(conn, sa); err != nil {
		conn.Close()
		req.future.fail(StateConnecting, errkind.New(errkind.Network, "connecting", err))
		return
	}

	tlsConn := tls.Client(conn, c.tlsConfigFor(req.host))
	if err := tlsConn.HandshakeContext(context.Background()); err != nil {
		conn.Close()
		req.future.fail(StateTLSHandshake, errkind.New(errkind.Tls, "handshake", err))
		return
	}

	reqBytes := formatRequest(req.host, req.path, req.body, req.headers)
	if _, err := tlsConn.Write(reqBytes); err != nil {
		conn.Close()
		req.future.fail(StateWriting, errkind.New(errkind.Network, "writing request", err))
		return
	}

	resp, state, err := readResponse(tlsConn, nil)
	conn.Close()
	if err != nil {
		req.future.fail(state, err)
		return
	}
	req.future.fulfill(resp)
}

// connectNonblocking issues connect(2) on a non-blocking socket and waits
// on the multiplexer until the connection completes or fails.
func connectNonblocking(conn *pollConn, sa unix.Sockaddr) error {
	err := unix.Connect(conn.fd, sa)
	if err == nil {
		return nil
	}
	if err != unix.EINPROGRESS {
		return err
	}
	if werr := conn.waitWritable(); werr != nil {
		return werr
	}
	soerr, gerr := unix.GetsockoptInt(conn.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if gerr != nil {
		return gerr
	}
	if soerr != 0 {
		return unix.Errno(soerr)
	}
	return nil
}

func resolveHost(host string) (net.IP, error) {
	ips, err := net.DefaultResolver.LookupIP(context.Background(), "ip", host)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("asyncclient: no addresses for %s", host)
	}
	return ips[0], nil
}

func createNonblockingSocket(ip net.IP, port int) (int, unix.Sockaddr, error) {
	domain := unix.AF_INET
	if ip.To4() == nil {
		domain = unix.AF_INET6
	}
	fd, err := unix.Socket(domain, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return -1, nil, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return -1, nil, err
	}

	var sa unix.Sockaddr
	if domain == unix.AF_INET {
		var addr [4]byte
		copy(addr[:], ip.To4())
		sa = &unix.SockaddrInet4{Port: port, Addr: addr}
	} else {
		var addr [16]byte
		copy(addr[:], ip.To16())
		sa = &unix.SockaddrInet6{Port: port, Addr: addr}
	}
	return fd, sa, nil
}

func (c *Client) tlsConfigFor(host string) *tls.Config {
	if c.tlsConfig != nil {
		cfg := c.tlsConfig.Clone()
		if cfg.ServerName == "" {
			cfg.ServerName = host
		}
		return cfg
	}
	return &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
}

// formatRequest builds a minimal HTTP/1.1 POST request. The caller's
// headers follow the fixed Host, Content-Length and Connection lines, in
// map iteration order (not specified).
func formatRequest(host, path string, body []byte, headers map[string]string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "POST %s HTTP/1.1\r\n", path)
	fmt.Fprintf(&b, "Host: %s\r\n", host)
	fmt.Fprintf(&b, "Content-Length: %d\r\n", len(body))
	fmt.Fprintf(&b, "Connection: close\r\n")
	for k, v := range headers {
		fmt.Fprintf(&b, "%s: %s\r\n", k, v)
	}
	b.WriteString("\r\n")
	b.Write(body)
	return []byte(b.String())
}
