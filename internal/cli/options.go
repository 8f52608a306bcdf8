// Package cli turns the raw argument list into an immutable [Options] value.
//
// Option matching stops at the first token that is not a recognized option
// or at "--"; everything after that is the guarded command line, passed
// through verbatim even when it looks like flags.
package cli

import (
	"io"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"tools.zach/dev/rolo/internal/address"
	"tools.zach/dev/rolo/internal/paths"
)

// Syntax is the one-line usage shown when no arguments are given.
const Syntax = "Syntax: " + paths.BinaryName +
	" [--verbose] [--test] [--address <ip>] --port <port_number> <command> [<arguments>]"

// ///////////////////////////////////////////////
// Errors
// ///////////////////////////////////////////////

// UsageError is a problem with the command line, detected before any
// socket is opened. Msg is shown to the user as is.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return e.Msg }

// Usage errors returned by [Parse].
var (
	ErrSyntax       = &UsageError{Msg: Syntax}
	ErrPort         = &UsageError{Msg: "Port must be a positive number"}
	ErrPortTooLarge = &UsageError{Msg: "Port must not exceed " + strconv.Itoa(address.MaxPort)}
	ErrNoCommand    = &UsageError{Msg: "You must provide a command"}
)

// ///////////////////////////////////////////////
// Options
// ///////////////////////////////////////////////

// Options is the parsed command line.
type Options struct {
	// Port is the lock port, 1..65535.
	Port int
	// Verbose enables diagnostics on stderr.
	Verbose bool
	// Address is an explicit dotted-quad host; empty means synthesize one.
	Address string
	// Test checks the lock and exits without running Command.
	Test bool
	// Help and Version short-circuit everything else.
	Help    bool
	Version bool
	// Command is the guarded program followed by its arguments.
	Command []string
}

// WithDefaults returns a copy of o where an unset address and verbosity
// fall back to the given configuration values.
func (o Options) WithDefaults(addr string, verbose bool) Options {
	if o.Address == "" {
		o.Address = addr
	}
	o.Verbose = o.Verbose || verbose
	o.Command = append([]string(nil), o.Command...)
	return o
}

// flagValues receives pflag results before they are validated into Options.
type flagValues struct {
	port    string
	verbose bool
	address string
	test    bool
	help    bool
	version bool
}

// FlagSet returns the recognized options. The returned set is also used by
// the root command to render help.
func FlagSet() *pflag.FlagSet {
	return newFlagSet(&flagValues{})
}

func newFlagSet(v *flagValues) *pflag.FlagSet {
	fs := pflag.NewFlagSet(paths.BinaryName, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SetInterspersed(false)
	fs.SortFlags = false
	fs.StringVarP(&v.port, "port", "p", "", "port used as the lock (required)")
	fs.BoolVarP(&v.verbose, "verbose", "v", false, "print diagnostics to stderr")
	fs.StringVarP(&v.address, "address", "a", "", "bind on this IPv4 address instead of the per-user loopback address")
	fs.BoolVarP(&v.test, "test", "t", false, "only check whether the command is running; never run it")
	fs.BoolVarP(&v.help, "help", "h", false, "show this help")
	fs.BoolVar(&v.version, "version", false, "show version and exit")
	return fs
}

// ///////////////////////////////////////////////
// Parse
// ///////////////////////////////////////////////

// Parse validates args (without the program name) and returns the resulting
// Options. It has no side effects.
func Parse(args []string) (Options, error) {
	if len(args) == 0 {
		return Options{}, ErrSyntax
	}

	var v flagValues
	fs := newFlagSet(&v)
	flagArgs, rest := split(fs, args)
	if err := fs.Parse(flagArgs); err != nil {
		return Options{}, &UsageError{Msg: err.Error()}
	}

	opts := Options{
		Verbose: v.verbose,
		Address: v.address,
		Test:    v.test,
		Help:    v.help,
		Version: v.version,
	}
	if opts.Help || opts.Version {
		return opts, nil
	}

	port, err := strconv.Atoi(v.port)
	if err != nil || port <= 0 {
		return Options{}, ErrPort
	}
	if port > address.MaxPort {
		return Options{}, ErrPortTooLarge
	}
	opts.Port = port

	if len(rest) == 0 || rest[0] == "" {
		return Options{}, ErrNoCommand
	}
	opts.Command = append([]string(nil), rest...)
	return opts, nil
}

// split divides args into the leading recognized options and the command
// line. A "--" separator is consumed; an unrecognized token is kept as the
// first word of the command line.
func split(fs *pflag.FlagSet, args []string) (flagArgs, rest []string) {
	i := 0
	for i < len(args) {
		tok := args[i]
		if tok == "--" {
			return args[:i], args[i+1:]
		}
		n := optionWidth(fs, tok)
		if n == 0 {
			return args[:i], args[i:]
		}
		i += n
	}
	return args, nil
}

// optionWidth returns how many tokens the option starting at tok occupies:
// 1 for booleans and attached values, 2 when the value is the next token and
// 0 when tok is not a recognized option.
func optionWidth(fs *pflag.FlagSet, tok string) int {
	switch {
	case strings.HasPrefix(tok, "--") && len(tok) > 2:
		name, _, hasValue := strings.Cut(tok[2:], "=")
		f := fs.Lookup(name)
		if f == nil {
			return 0
		}
		if hasValue || takesNoValue(f) {
			return 1
		}
		return 2
	case strings.HasPrefix(tok, "-") && len(tok) > 1 && tok[1] != '-':
		// Grouped shorthands: "-vt", "-p60000", "-vp" "60000".
		for j := 1; j < len(tok); j++ {
			f := fs.ShorthandLookup(tok[j : j+1])
			if f == nil {
				return 0
			}
			if takesNoValue(f) {
				continue
			}
			if j+1 < len(tok) {
				return 1
			}
			return 2
		}
		return 1
	default:
		return 0
	}
}

func takesNoValue(f *pflag.Flag) bool {
	return f.NoOptDefVal != ""
}
