// Linux socket lock using bind(2) via [golang.org/x/sys/unix].
//
// The socket is created with SOCK_CLOEXEC so that nothing leaks it by
// accident; [Lock.Inherit] is the single place that makes it survive exec.

//go:build linux

package gate

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
	"tools.zach/dev/rolo/internal/address"
)

// ///////////////////////////////////////////////
// Lock
// ///////////////////////////////////////////////

// Lock is a bound, non-listening IPv4 stream socket.
type Lock struct {
	fd   int
	addr address.LockAddress
}

// Acquire opens an AF_INET stream socket and binds it to addr. EADDRINUSE is
// reported as [ErrAlreadyRunning]; every other failure is a [*BindError]
// carrying the OS error unchanged.
func Acquire(addr address.LockAddress) (*Lock, error) {
	ip, err := addr.IP4()
	if err != nil {
		return nil, &BindError{Addr: addr, Err: err}
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}

	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: addr.Port, Addr: ip}); err != nil {
		unix.Close(fd)
		if errors.Is(err, unix.EADDRINUSE) {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, addr)
		}
		return nil, &BindError{Addr: addr, Err: err}
	}
	return &Lock{fd: fd, addr: addr}, nil
}

// Fd returns the socket descriptor, or -1 once closed.
func (l *Lock) Fd() int { return l.fd }

// Address returns the address the lock is bound to.
func (l *Lock) Address() address.LockAddress { return l.addr }

// Inherit clears FD_CLOEXEC so the socket stays open across execve and the
// replacement process keeps holding the address.
func (l *Lock) Inherit() error {
	if l.fd < 0 {
		return fmt.Errorf("lock %s: already closed", l.addr)
	}
	flags, err := unix.FcntlInt(uintptr(l.fd), unix.F_GETFD, 0)
	if err != nil {
		return fmt.Errorf("fcntl F_GETFD: %w", err)
	}
	if _, err := unix.FcntlInt(uintptr(l.fd), unix.F_SETFD, flags&^unix.FD_CLOEXEC); err != nil {
		return fmt.Errorf("fcntl F_SETFD: %w", err)
	}
	return nil
}

// Inheritable reports whether the socket would survive execve.
func (l *Lock) Inheritable() (bool, error) {
	if l.fd < 0 {
		return false, fmt.Errorf("lock %s: already closed", l.addr)
	}
	flags, err := unix.FcntlInt(uintptr(l.fd), unix.F_GETFD, 0)
	if err != nil {
		return false, fmt.Errorf("fcntl F_GETFD: %w", err)
	}
	return flags&unix.FD_CLOEXEC == 0, nil
}

// Close releases the address. Calling Close more than once is a no-op.
func (l *Lock) Close() error {
	if l.fd < 0 {
		return nil
	}
	fd := l.fd
	l.fd = -1
	if err := unix.Close(fd); err != nil {
		return fmt.Errorf("close lock %s: %w", l.addr, err)
	}
	return nil
}
