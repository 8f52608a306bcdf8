// Package guard runs one invocation of rolo: derive the lock address, try to
// bind it, then either report that the command is already running or hand
// off to it.
//
// Every path through [Guard.Run] is terminal. There is no retry and no
// waiting for a busy address to free up.
package guard

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"tools.zach/dev/rolo/internal/address"
	"tools.zach/dev/rolo/internal/cli"
	"tools.zach/dev/rolo/internal/gate"
	"tools.zach/dev/rolo/internal/handoff"
	"tools.zach/dev/rolo/internal/logger"
)

// Lock is a held address that can be kept across exec and released.
type Lock interface {
	handoff.Inheritable
	io.Closer
}

// Guard holds the collaborators of one invocation. The zero value is not
// usable; build one with [New] and replace fields in tests.
type Guard struct {
	// Log receives diagnostics.
	Log *slog.Logger
	// Out receives informational results such as the dry-run report.
	Out io.Writer
	// UID returns the invoking user's numeric id.
	UID func() int
	// Acquire binds the lock address.
	Acquire func(address.LockAddress) (Lock, error)
	// Exec replaces the process; it only returns on failure.
	Exec func(handoff.Command, ...handoff.Inheritable) error
}

// New returns a Guard wired to the real socket and exec facilities.
func New(log *slog.Logger, out io.Writer) *Guard {
	return &Guard{
		Log: log,
		Out: out,
		UID: os.Getuid,
		Acquire: func(a address.LockAddress) (Lock, error) {
			l, err := gate.Acquire(a)
			if err != nil {
				return nil, err
			}
			return l, nil
		},
		Exec: handoff.Exec,
	}
}

// Run executes the state machine for opts. It returns nil after a dry run
// that found the address free; a successful handoff never returns. The
// "already running" outcome is an error matching [gate.ErrAlreadyRunning].
func (g *Guard) Run(opts cli.Options) error {
	addr, err := address.Derive(opts.Address, g.UID(), opts.Port)
	if err != nil {
		return err
	}
	cmd := handoff.NewCommand(opts.Command).Expand(addr)

	g.Log.Debug(fmt.Sprintf("Will bind on %s:%d, command = '%s', args = '%s'",
		addr.Host, addr.Port, cmd.Program, strings.Join(cmd.Args, " ")))

	lock, err := g.Acquire(addr)
	if err != nil {
		if errors.Is(err, gate.ErrAlreadyRunning) {
			g.Log.Info("already running", "address", addr.String(), "command", cmd.String())
		} else {
			logger.Fail(g.Log, "bind failed", "address", addr.String(), "error", err)
		}
		return err
	}

	if opts.Test {
		defer lock.Close()
		g.Log.Info("address free, test mode", "address", addr.String())
		fmt.Fprintf(g.Out, "%s Address %s is free\n", logger.ConsolePrefix, addr)
		return nil
	}

	g.Log.Info("lock acquired, executing", "address", addr.String(), "command", cmd.String())
	if err := g.Exec(cmd, lock); err != nil {
		lock.Close()
		logger.Fail(g.Log, "exec failed", "command", cmd.String(), "error", err)
		return err
	}
	return nil
}
