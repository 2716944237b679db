package errors

import (
	goerrors "errors"
	"fmt"
)

// Process exit codes. Failures of cargo-remote itself count down from 255 so
// that they rarely collide with the exit status of a remote build.
const (
	ExitOK      = 0
	ExitGeneric = 1

	ExitConfig        = 248
	ExitLockTransfer  = 249
	ExitTransferBack  = 250
	ExitRemoteCommand = 251
	ExitTransferOut   = 252
	ExitNoRemote      = 253
	ExitNoProject     = 254
	ExitMetadata      = 255
)

// ExitCoder is implemented by errors that determine the exit code of the
// process.
type ExitCoder interface {
	ExitCode() int
}

type exitCodeError struct {
	err  error
	code int
}

// WithExitCode marks `err` so that the CLI exits with `code` if it's fatal.
// Returns nil if `err` is nil.
func WithExitCode(err error, code int) error {
	if err == nil {
		return nil
	}
	return exitCodeError{err: err, code: code}
}

func (err exitCodeError) Error() string {
	return err.err.Error()
}

func (err exitCodeError) Unwrap() error {
	return err.err
}

func (err exitCodeError) ExitCode() int {
	return err.code
}

// ExitCode returns the exit code for `err`. The outermost ExitCoder in the
// chain wins. Errors without one map to ExitGeneric.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var coder ExitCoder
	if goerrors.As(err, &coder) {
		return coder.ExitCode()
	}
	return ExitGeneric
}

// RemoteBuildError is returned when the build command itself failed on the
// remote machine. It isn't a fault of cargo-remote, so the process exits with
// the remote command's status.
type RemoteBuildError struct {
	Code int
}

func (err RemoteBuildError) Error() string {
	return fmt.Sprintf("remote build exited with status %d", err.Code)
}

func (err RemoteBuildError) ExitCode() int {
	return err.Code
}
