package asyncclient

// pollEvent describes one file descriptor becoming ready.
type pollEvent struct {
	fd       int
	readable bool
	writable bool
}

// poller is the kernel readiness multiplexer §4.4/§5 calls for: one
// instance per Client, owning exactly one multiplexer file descriptor
// (epoll on Linux, kqueue on BSD/Darwin), through which every in-flight
// request's socket registers interest.
type poller interface {
	// register begins watching fd for the given interest set.
	register(fd int, readable, writable bool) error
	// modify replaces fd's interest set.
	modify(fd int, readable, writable bool) error
	// deregister stops watching fd entirely.
	deregister(fd int) error
	// wait blocks until at least one registered fd is ready or timeoutMs
	// elapses (-1 blocks indefinitely), appending ready events to out.
	wait(out []pollEvent, timeoutMs int) ([]pollEvent, error)
	// close releases the multiplexer's own file descriptor.
	close() error
}
