package handoff

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// Inheritable is a descriptor the guard opened itself and wants the replaced
// process image to keep.
type Inheritable interface {
	Inherit() error
}

// ExecError reports a failure to replace the process image.
type ExecError struct {
	Program string
	Err     error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("exec %s: %v", e.Program, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// Replaced in tests.
var (
	lookPath = exec.LookPath
	execve   = sysExec
	environ  = os.Environ
)

// Exec resolves cmd on PATH, marks every descriptor in keep as inheritable
// and replaces the current process with cmd. Standard streams are not close-
// on-exec and pass through as they are. Descriptors outside keep are never
// touched, so nothing else the process opened leaks into the command.
//
// Exec only returns on failure.
func Exec(cmd Command, keep ...Inheritable) error {
	if cmd.Program == "" {
		return &ExecError{Program: cmd.Program, Err: errors.New("empty command")}
	}
	path, err := lookPath(cmd.Program)
	if err != nil && !errors.Is(err, exec.ErrDot) {
		var lookErr *exec.Error
		if errors.As(err, &lookErr) {
			err = lookErr.Err
		}
		return &ExecError{Program: cmd.Program, Err: err}
	}
	for _, k := range keep {
		if err := k.Inherit(); err != nil {
			return &ExecError{Program: cmd.Program, Err: fmt.Errorf("keep lock open: %w", err)}
		}
	}
	if err := execve(path, cmd.Argv(), environ()); err != nil {
		return &ExecError{Program: cmd.Program, Err: err}
	}
	return nil
}
