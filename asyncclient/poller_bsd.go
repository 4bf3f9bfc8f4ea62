//go:build darwin || freebsd || netbsd || openbsd

package asyncclient

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// kqueuePoller is the BSD/Darwin readiness multiplexer backend.
type kqueuePoller struct {
	kq int
}

func newPoller() (poller, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, fmt.Errorf("asyncclient: kqueue: %w", err)
	}
	return &kqueuePoller{kq: kq}, nil
}

// kqueueFlagsFor uses EV_ADD with EV_ENABLE/EV_DISABLE rather than
// EV_DELETE for inactive interest: deleting a filter that was never added
// returns ENOENT, which would otherwise need special-casing on every call.
func kqueueFlagsFor(active bool) uint16 {
	if active {
		return unix.EV_ADD | unix.EV_ENABLE
	}
	return unix.EV_ADD | unix.EV_DISABLE
}

func (p *kqueuePoller) apply(fd int, readable, writable bool) error {
	changes := []unix.Kevent_t{
		{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: kqueueFlagsFor(readable)},
		{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: kqueueFlagsFor(writable)},
	}
	_, err := unix.Kevent(p.kq, changes, nil, nil)
	return err
}

func (p *kqueuePoller) register(fd int, readable, writable bool) error {
	return p.apply(fd, readable, writable)
}

func (p *kqueuePoller) modify(fd int, readable, writable bool) error {
	return p.apply(fd, readable, writable)
}

func (p *kqueuePoller) deregister(fd int) error {
	changes := []unix.Kevent_t{
		{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE},
		{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE},
	}
	_, err := unix.Kevent(p.kq, changes, nil, nil)
	if err != nil && err != unix.ENOENT {
		return err
	}
	return nil
}

func (p *kqueuePoller) wait(out []pollEvent, timeoutMs int) ([]pollEvent, error) {
	var raw [64]unix.Kevent_t
	var ts *unix.Timespec
	if timeoutMs >= 0 {
		t := unix.NsecToTimespec(int64(timeoutMs) * 1e6)
		ts = &t
	}
	n, err := unix.Kevent(p.kq, nil, raw[:], ts)
	if err != nil {
		if err == unix.EINTR {
			return out, nil
		}
		return out, fmt.Errorf("asyncclient: kevent wait: %w", err)
	}

	idx := make(map[int]int, n)
	var events []pollEvent
	for i := 0; i < n; i++ {
		fd := int(raw[i].Ident)
		j, ok := idx[fd]
		if !ok {
			j = len(events)
			events = append(events, pollEvent{fd: fd})
			idx[fd] = j
		}
		switch raw[i].Filter {
		case unix.EVFILT_READ:
			events[j].readable = true
		case unix.EVFILT_WRITE:
			events[j].writable = true
		}
	}
	return append(out, events...), nil
}

func (p *kqueuePoller) close() error {
	return unix.Close(p.kq)
}
