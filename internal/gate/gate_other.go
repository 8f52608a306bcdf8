//go:build !linux

package gate

import (
	"errors"
	"fmt"

	"tools.zach/dev/rolo/internal/address"
)

// Lock is unavailable on this platform.
type Lock struct {
	addr address.LockAddress
}

// Acquire always fails: bind-as-lock relies on Linux loopback semantics,
// where all of 127.0.0.0/8 is bindable.
func Acquire(addr address.LockAddress) (*Lock, error) {
	return nil, fmt.Errorf("acquire %s: %w", addr, errors.ErrUnsupported)
}

func (l *Lock) Fd() int                      { return -1 }
func (l *Lock) Address() address.LockAddress { return l.addr }
func (l *Lock) Inherit() error               { return errors.ErrUnsupported }
func (l *Lock) Inheritable() (bool, error)   { return false, errors.ErrUnsupported }
func (l *Lock) Close() error                 { return nil }
