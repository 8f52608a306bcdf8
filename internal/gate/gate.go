// Package gate implements bind-as-lock: exclusive ownership of an IPv4
// address and port stands in for a lock file.
//
// A successful bind means no other instance holds the address. The bound
// socket is never listened on or read; it exists only to occupy the address
// for as long as some process keeps the descriptor open.
package gate

import (
	"errors"
	"fmt"

	"tools.zach/dev/rolo/internal/address"
)

// ErrAlreadyRunning is returned by [Acquire] when the address is already
// bound by another process.
var ErrAlreadyRunning = errors.New("address is in use")

// BindError reports any bind failure other than the address being in use,
// such as permission denied on a privileged port.
type BindError struct {
	Addr address.LockAddress
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }
