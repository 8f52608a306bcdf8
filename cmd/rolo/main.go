// Package main implements rolo, a single-instance guard: it binds a
// per-user loopback address as a lock and then replaces itself with the
// guarded command, which keeps the lock for as long as it runs.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
	"tools.zach/dev/rolo/internal/cli"
	"tools.zach/dev/rolo/internal/config"
	"tools.zach/dev/rolo/internal/gate"
	"tools.zach/dev/rolo/internal/guard"
	"tools.zach/dev/rolo/internal/logger"
	"tools.zach/dev/rolo/internal/paths"
)

// ///////////////////////////////////////////////
// Version
// ///////////////////////////////////////////////

// version is set at build time via ldflags:
//   - goreleaser: -X main.version={{.Version}}  -> "0.1.0"
//   - make build: -X main.version=$(VERSION)    -> "0.0.0-dev+05ffee5"
//
// When ldflags are not set (bare go build), resolveVersion reads the VCS info
// that Go embeds automatically.
var version = "dev"

// resolveVersion returns the build version string. If [version] was set via
// ldflags at build time it is returned as-is; otherwise VCS revision and dirty
// state embedded by the Go toolchain are used to construct a "dev+<hash>" tag.
func resolveVersion() string {
	if version != "dev" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}
	var revision string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if revision == "" {
		return version
	}
	hash := revision[:min(7, len(revision))]
	if dirty {
		return "dev+" + hash + ".dirty"
	}
	return "dev+" + hash
}

// ///////////////////////////////////////////////
// Exit Reporting
// ///////////////////////////////////////////////

// Exit codes. "Already running" is an expected outcome and deliberately not
// a failure.
const (
	exitOK             = 0
	exitAlreadyRunning = 0
	exitFailure        = 1
)

// msgAlreadyRunning is printed to stdout when the lock is held elsewhere.
const msgAlreadyRunning = "Address is in use. Is your application running?"

// die writes ":: msg" to w and returns code for the caller to exit with.
func die(w io.Writer, code int, msg string) int {
	fmt.Fprintf(w, "%s %s\n", logger.ConsolePrefix, msg)
	return code
}

// report maps an error from the root command to its stream and exit code.
func report(stdout, stderr io.Writer, err error) int {
	if errors.Is(err, gate.ErrAlreadyRunning) {
		return die(stdout, exitAlreadyRunning, msgAlreadyRunning)
	}
	return die(stderr, exitFailure, err.Error())
}

// ///////////////////////////////////////////////
// Root Command
// ///////////////////////////////////////////////

// newRootCmd builds the rolo command. Flag parsing is left to [cli.Parse]
// because option matching must stop at the first unrecognized token, which
// belongs to the guarded command.
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   paths.BinaryName + " [flags] [--] <command> [<arguments>...]",
		Short: "Run a command unless it is already running",
		Long: `rolo binds a per-user loopback address (127.<uid>.1 plus --port) as a lock,
then replaces itself with <command>. The socket stays open in the command, so
a second rolo with the same port finds the address in use and exits without
starting anything.

%address and %port in the command line are replaced with the lock address.`,
		DisableFlagParsing: true,
		SilenceErrors:      true,
		SilenceUsage:       true,
		CompletionOptions:  cobra.CompletionOptions{DisableDefaultCmd: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGuard(cmd, args, stdout, stderr)
		},
	}
	cmd.Flags().AddFlagSet(cli.FlagSet())
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd
}

// runGuard parses args, loads configuration and runs the guard. A successful
// handoff never returns.
func runGuard(cmd *cobra.Command, args []string, stdout, stderr io.Writer) error {
	opts, err := cli.Parse(args)
	if err != nil {
		return err
	}
	if opts.Help {
		return cmd.Help()
	}
	if opts.Version {
		fmt.Fprintln(stdout, paths.BinaryName, resolveVersion())
		return nil
	}

	cfg, err := config.Load(paths.ConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	opts = opts.WithDefaults(cfg.Lock.Address, cfg.Log.Verbose)

	logOpts := logger.Options{
		File:      cfg.Log.File,
		FileLevel: logger.ParseLevel(cfg.Log.Level),
		MaxSizeMB: cfg.Log.MaxSizeMB,
	}
	if opts.Verbose {
		logOpts.Console = stderr
		logOpts.ConsoleLevel = logger.LevelDebug
	}
	log, logCloser, err := logger.NewLogger(logOpts)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logCloser.Close()

	return guard.New(log, stdout).Run(opts)
}

// run executes rolo with args and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if args == nil {
		// cobra falls back to os.Args for a nil slice.
		args = []string{}
	}
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return report(stdout, stderr, err)
	}
	return exitOK
}

// ///////////////////////////////////////////////
// Main
// ///////////////////////////////////////////////

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
