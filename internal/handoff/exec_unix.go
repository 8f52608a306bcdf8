//go:build unix

package handoff

import "golang.org/x/sys/unix"

// sysExec calls execve(2); on success it does not return.
func sysExec(path string, argv, env []string) error {
	return unix.Exec(path, argv, env)
}
