//go:build !unix

package handoff

import (
	"errors"
	"fmt"
)

func sysExec(path string, _, _ []string) error {
	return fmt.Errorf("replace process with %s: %w", path, errors.ErrUnsupported)
}
