//go:build linux

package gate

import (
	"errors"
	"net"
	"os"
	"strconv"
	"strings"
	"testing"

	"golang.org/x/sys/unix"
	"tools.zach/dev/rolo/internal/address"
)

// freePort asks the kernel for an unused loopback port.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

// ///////////////////////////////////////////////
// Acquire
// ///////////////////////////////////////////////

func TestAcquireFree(t *testing.T) {
	addr := address.LockAddress{Host: "127.0.0.1", Port: freePort(t)}

	l, err := Acquire(addr)
	if err != nil {
		t.Fatalf("Acquire(%s) error: %v", addr, err)
	}
	defer l.Close()

	if l.Fd() < 0 {
		t.Errorf("Fd() = %d, want >= 0", l.Fd())
	}
	if l.Address() != addr {
		t.Errorf("Address() = %v, want %v", l.Address(), addr)
	}
}

func TestAcquireSynthesizedLoopback(t *testing.T) {
	addr := address.LockAddress{Host: address.Synthesize(os.Getuid()), Port: freePort(t)}

	l, err := Acquire(addr)
	if err != nil {
		t.Fatalf("Acquire(%s) error: %v", addr, err)
	}
	l.Close()
}

func TestAcquireBusy(t *testing.T) {
	addr := address.LockAddress{Host: "127.0.0.1", Port: freePort(t)}

	first, err := Acquire(addr)
	if err != nil {
		t.Fatalf("first Acquire error: %v", err)
	}
	defer first.Close()

	second, err := Acquire(addr)
	if err == nil {
		second.Close()
		t.Fatal("second Acquire succeeded, want ErrAlreadyRunning")
	}
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Acquire error = %v, want ErrAlreadyRunning", err)
	}
	var bindErr *BindError
	if errors.As(err, &bindErr) {
		t.Errorf("busy address reported as BindError: %v", err)
	}
}

func TestAcquireAfterClose(t *testing.T) {
	addr := address.LockAddress{Host: "127.0.0.1", Port: freePort(t)}

	first, err := Acquire(addr)
	if err != nil {
		t.Fatalf("first Acquire error: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	second, err := Acquire(addr)
	if err != nil {
		t.Fatalf("Acquire after Close error: %v", err)
	}
	second.Close()
}

func TestAcquireBusyAgainstListener(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	addr := address.LockAddress{Host: "127.0.0.1", Port: ln.Addr().(*net.TCPAddr).Port}

	if _, err := Acquire(addr); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("Acquire on listening port error = %v, want ErrAlreadyRunning", err)
	}
}

func TestAcquireInvalidOctet(t *testing.T) {
	addr := address.LockAddress{Host: "999.1.1.1", Port: 60000}

	_, err := Acquire(addr)
	var bindErr *BindError
	if !errors.As(err, &bindErr) {
		t.Fatalf("Acquire(%s) error = %v, want *BindError", addr, err)
	}
	if !strings.Contains(err.Error(), "999.1.1.1") {
		t.Errorf("error %q should name the address", err)
	}
}

func TestAcquirePrivilegedPort(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("running as root")
	}
	if data, err := os.ReadFile("/proc/sys/net/ipv4/ip_unprivileged_port_start"); err == nil {
		if start, convErr := strconv.Atoi(strings.TrimSpace(string(data))); convErr == nil && start <= 123 {
			t.Skipf("unprivileged ports start at %d", start)
		}
	}

	addr := address.LockAddress{Host: "127.0.0.1", Port: 123}
	l, err := Acquire(addr)
	if err == nil {
		l.Close()
		t.Skip("bind to port 123 permitted (CAP_NET_BIND_SERVICE?)")
	}

	var bindErr *BindError
	if !errors.As(err, &bindErr) {
		t.Fatalf("error = %v, want *BindError", err)
	}
	if !errors.Is(err, unix.EACCES) {
		t.Errorf("error = %v, want EACCES", err)
	}
	if !strings.Contains(err.Error(), "permission denied") {
		t.Errorf("error %q should carry the OS message", err)
	}
}

// ///////////////////////////////////////////////
// Inheritance
// ///////////////////////////////////////////////

func TestLockCloseOnExecUntilInherit(t *testing.T) {
	l, err := Acquire(address.LockAddress{Host: "127.0.0.1", Port: freePort(t)})
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	defer l.Close()

	inh, err := l.Inheritable()
	if err != nil {
		t.Fatalf("Inheritable error: %v", err)
	}
	if inh {
		t.Error("fresh lock should be close-on-exec")
	}

	if err := l.Inherit(); err != nil {
		t.Fatalf("Inherit error: %v", err)
	}
	inh, err = l.Inheritable()
	if err != nil {
		t.Fatalf("Inheritable error: %v", err)
	}
	if !inh {
		t.Error("lock should be inheritable after Inherit")
	}
}

// ///////////////////////////////////////////////
// Close
// ///////////////////////////////////////////////

func TestCloseIdempotent(t *testing.T) {
	l, err := Acquire(address.LockAddress{Host: "127.0.0.1", Port: freePort(t)})
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("first Close error: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("second Close error: %v", err)
	}
	if l.Fd() != -1 {
		t.Errorf("Fd() after Close = %d, want -1", l.Fd())
	}
	if err := l.Inherit(); err == nil {
		t.Error("Inherit after Close should fail")
	}
}
