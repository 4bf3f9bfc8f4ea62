//go:build linux

package asyncclient

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// epollPoller is the Linux readiness multiplexer backend.
type epollPoller struct {
	epfd int
}

func newPoller() (poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("asyncclient: epoll_create1: %w", err)
	}
	return &epollPoller{epfd: fd}, nil
}

func epollEventsFor(readable, writable bool) uint32 {
	var ev uint32
	if readable {
		ev |= unix.EPOLLIN
	}
	if writable {
		ev |= unix.EPOLLOUT
	}
	return ev
}

func (p *epollPoller) register(fd int, readable, writable bool) error {
	ev := unix.EpollEvent{Events: epollEventsFor(readable, writable), Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (p *epollPoller) modify(fd int, readable, writable bool) error {
	ev := unix.EpollEvent{Events: epollEventsFor(readable, writable), Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

func (p *epollPoller) deregister(fd int) error {
	err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if err != nil && err != unix.ENOENT {
		return err
	}
	return nil
}

func (p *epollPoller) wait(out []pollEvent, timeoutMs int) ([]pollEvent, error) {
	var raw [64]unix.EpollEvent
	n, err := unix.EpollWait(p.epfd, raw[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return out, nil
		}
		return out, fmt.Errorf("asyncclient: epoll_wait: %w", err)
	}
	for i := 0; i < n; i++ {
		out = append(out, pollEvent{
			fd:       int(raw[i].Fd),
			readable: raw[i].Events&unix.EPOLLIN != 0,
			writable: raw[i].Events&unix.EPOLLOUT != 0,
		})
	}
	return out, nil
}

func (p *epollPoller) close() error {
	return unix.Close(p.epfd)
}
