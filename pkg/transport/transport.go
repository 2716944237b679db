// Package transport runs file transfers and build commands against a build
// server, either over ssh with rsync, or on this machine for loopback
// targets.
package transport

import (
	"os"
	"os/exec"
	"syscall"

	"github.com/sidkik/cargo-remote/pkg/config"
	"github.com/sidkik/cargo-remote/pkg/errors"
	"github.com/sidkik/cargo-remote/pkg/session"
	mirror "github.com/sidkik/cargo-remote/pkg/sync"
)

// Variables mocked for unit testing.
var (
	runCommand    = (*exec.Cmd).Run
	outputCommand = (*exec.Cmd).Output
)

// For returns the file sync and shell implementations for `target`.
func For(target config.Remote) (session.FileSync, session.RemoteShell) {
	if target.IsLoopback() {
		return mirror.Local{}, LocalShell{}
	}
	return NewRsync(), SSH{}
}

// runInteractive runs `cmd` attached to the terminal and returns its exit
// code. An error is only returned if the command couldn't be run at all.
func runInteractive(cmd *exec.Cmd) (int, error) {
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := runCommand(cmd)
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return 0, err
	}

	// Report death by signal the way shells do.
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal()), nil
	}
	return exitErr.ExitCode(), nil
}
