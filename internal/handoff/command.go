// Package handoff replaces the guard process with the guarded command while
// keeping the lock descriptor open across the exec.
package handoff

import (
	"strconv"
	"strings"

	"tools.zach/dev/rolo/internal/address"
)

// Placeholders substituted by [Command.Expand].
const (
	AddressPlaceholder = "%address"
	PortPlaceholder    = "%port"
)

// Shell runs single-word commands that contain shell syntax.
const Shell = "/bin/sh"

// shellMeta lists the characters that make a single command word a shell
// script rather than a program name.
const shellMeta = "*?{}[]<>()~&|\\$;'`\"\n#= \t"

// ///////////////////////////////////////////////
// Command
// ///////////////////////////////////////////////

// Command is the program and arguments a guard execs into.
type Command struct {
	Program string
	Args    []string
}

// NewCommand builds a Command from the positional words left after option
// parsing. A lone word containing whitespace or shell metacharacters, such
// as "sleep 10 && echo done", is handed to [Shell] with -c.
func NewCommand(words []string) Command {
	if len(words) == 0 {
		return Command{}
	}
	if len(words) == 1 && strings.ContainsAny(words[0], shellMeta) {
		return Command{Program: Shell, Args: []string{"-c", words[0]}}
	}
	return Command{Program: words[0], Args: append([]string(nil), words[1:]...)}
}

// Expand returns a copy of c with %address and %port replaced by the
// resolved lock address in the program and every argument.
func (c Command) Expand(addr address.LockAddress) Command {
	r := strings.NewReplacer(
		AddressPlaceholder, addr.Host,
		PortPlaceholder, strconv.Itoa(addr.Port),
	)
	out := Command{Program: r.Replace(c.Program), Args: make([]string, len(c.Args))}
	for i, a := range c.Args {
		out.Args[i] = r.Replace(a)
	}
	return out
}

// Argv returns the argument vector passed to execve, program first.
func (c Command) Argv() []string {
	return append([]string{c.Program}, c.Args...)
}

// String joins the argument vector with spaces, for diagnostics.
func (c Command) String() string {
	return strings.Join(c.Argv(), " ")
}
