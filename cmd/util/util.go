package util

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/buger/goterm"
	log "github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/sidkik/cargo-remote/pkg/errors"
)

// Mocked out for unit testing.
var (
	exitFunc             = os.Exit
	stderr     io.Writer = os.Stderr
	isTerminal           = func() bool { return term.IsTerminal(int(os.Stderr.Fd())) }
)

// HandleFatalError prints the error and exits the process with the exit code
// that corresponds to it. A failed remote build only exits, since Cargo
// already printed why it failed.
func HandleFatalError(err error) {
	log.WithError(err).Debug("Fatal error")

	var buildErr errors.RemoteBuildError
	if !errors.As(err, &buildErr) {
		msg := err.Error()
		if friendly, ok := errors.GetFriendlyError(err); ok {
			msg = friendly.FriendlyMessage()
		}
		fmt.Fprintln(stderr, Color("ERROR: ", goterm.RED)+msg)
	}
	exitFunc(errors.ExitCode(err))
}

// HandlePanic recovers from a panic, and exits with the generic failure
// code after printing the stack trace.
func HandlePanic() {
	if r := recover(); r != nil {
		fmt.Fprintf(stderr, "%s %v\n%s", Color("PANIC:", goterm.RED), r, debug.Stack())
		exitFunc(errors.ExitGeneric)
	}
}

// Color colors `msg` if stderr is a terminal.
func Color(msg string, color int) string {
	if !isTerminal() {
		return msg
	}
	return goterm.Color(msg, color)
}
