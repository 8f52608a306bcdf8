package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tools.zach/dev/rolo/internal/address"
	"tools.zach/dev/rolo/internal/cli"
	"tools.zach/dev/rolo/internal/gate"
	"tools.zach/dev/rolo/internal/handoff"
	"tools.zach/dev/rolo/internal/paths"
)

// Environment used to re-run the test binary as rolo itself.
const (
	helperEnv     = "ROLO_TEST_HELPER"
	helperArgsEnv = "ROLO_TEST_ARGS"
)

func TestMain(m *testing.M) {
	if os.Getenv(helperEnv) == "1" {
		var args []string
		if a := os.Getenv(helperArgsEnv); a != "" {
			args = strings.Split(a, "\n")
		}
		os.Exit(run(args, os.Stdout, os.Stderr))
	}
	os.Exit(m.Run())
}

// isolateConfig points rolo at a config file inside a temp dir so the
// developer's own configuration never leaks into a test. The file is only
// written when content is non-empty.
func isolateConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, paths.ConfigFile)
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
	}
	t.Setenv(paths.ConfigEnv, path)
	return dir
}

// runCapture runs rolo in-process and returns its exit code and output.
func runCapture(args ...string) (code int, stdout, stderr string) {
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

// ///////////////////////////////////////////////
// resolveVersion Tests
// ///////////////////////////////////////////////

func TestResolveVersionWithLdflags(t *testing.T) {
	original := version
	defer func() { version = original }()

	version = "1.2.3"
	if got := resolveVersion(); got != "1.2.3" {
		t.Errorf("resolveVersion() = %q, want %q", got, "1.2.3")
	}
}

func TestResolveVersionDev(t *testing.T) {
	original := version
	defer func() { version = original }()

	version = "dev"
	got := resolveVersion()
	if !strings.HasPrefix(got, "dev") {
		t.Errorf("resolveVersion() = %q, expected to start with 'dev'", got)
	}
}

// ///////////////////////////////////////////////
// report Tests
// ///////////////////////////////////////////////

func TestReport(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{
			name:       "already running",
			err:        fmt.Errorf("%w: 127.0.0.1:1", gate.ErrAlreadyRunning),
			wantCode:   0,
			wantStdout: ":: Address is in use. Is your application running?\n",
		},
		{
			name:       "usage error",
			err:        cli.ErrNoCommand,
			wantCode:   1,
			wantStderr: ":: You must provide a command\n",
		},
		{
			name:       "invalid address",
			err:        &address.InvalidError{Host: "foo"},
			wantCode:   1,
			wantStderr: ":: Invalid address: foo\n",
		},
		{
			name:       "bind error",
			err:        &gate.BindError{Addr: address.LockAddress{Host: "127.0.0.1", Port: 123}, Err: errors.New("permission denied")},
			wantCode:   1,
			wantStderr: ":: bind 127.0.0.1:123: permission denied\n",
		},
		{
			name:       "exec error",
			err:        &handoff.ExecError{Program: "nope", Err: errors.New("executable file not found in $PATH")},
			wantCode:   1,
			wantStderr: ":: exec nope: executable file not found in $PATH\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			code := report(&out, &errOut, tt.err)
			if code != tt.wantCode {
				t.Errorf("code = %d, want %d", code, tt.wantCode)
			}
			if out.String() != tt.wantStdout {
				t.Errorf("stdout = %q, want %q", out.String(), tt.wantStdout)
			}
			if errOut.String() != tt.wantStderr {
				t.Errorf("stderr = %q, want %q", errOut.String(), tt.wantStderr)
			}
		})
	}
}

// ///////////////////////////////////////////////
// run Tests
// ///////////////////////////////////////////////

func TestRunNoArguments(t *testing.T) {
	isolateConfig(t, "")

	code, _, stderr := runCapture()
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.HasPrefix(stderr, ":: Syntax: rolo") {
		t.Errorf("stderr = %q, want syntax line", stderr)
	}
}

func TestRunNoCommand(t *testing.T) {
	isolateConfig(t, "")

	code, _, stderr := runCapture("--port", "60000")
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "You must provide a command") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestRunInvalidPort(t *testing.T) {
	isolateConfig(t, "")

	code, _, stderr := runCapture("--port", "zero", "sleep", "1")
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if stderr != ":: Port must be a positive number\n" {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestRunInvalidAddress(t *testing.T) {
	isolateConfig(t, "")

	code, _, stderr := runCapture("-a", "localhost", "-p", "60000", "sleep", "1")
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if stderr != ":: Invalid address: localhost\n" {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestRunBadConfig(t *testing.T) {
	isolateConfig(t, "[log]\nlevel = \"loud\"\n")

	code, _, stderr := runCapture("-p", "60000", "sleep", "1")
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.HasPrefix(stderr, ":: load config:") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestRunVersion(t *testing.T) {
	code, stdout, _ := runCapture("--version")
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if !strings.HasPrefix(stdout, "rolo ") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestRunHelp(t *testing.T) {
	code, stdout, _ := runCapture("--help")
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	for _, want := range []string{"--port", "--address", "--test", "--verbose", "%address"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("help output missing %q:\n%s", want, stdout)
		}
	}
}
