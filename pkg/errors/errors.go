// Package errors contains the error helpers shared by the cargo-remote CLI.
// Errors are wrapped with a short description of the failed step as they
// travel up the stack, so that the final message reads like a trace:
// `run build: sync sources: rsync: exit status 23`.
package errors

import (
	goerrors "errors"
	"fmt"
)

// New returns an error with the given message.
func New(msg string) error {
	return goerrors.New(msg)
}

// Is is a passthrough to the standard library so that callers only need to
// import this package.
func Is(err, target error) bool {
	return goerrors.Is(err, target)
}

// As is a passthrough to the standard library so that callers only need to
// import this package.
func As(err error, target interface{}) bool {
	return goerrors.As(err, target)
}

type withContext struct {
	err     error
	context string
}

// WithContext annotates `err` with a description of what was being done
// when it occurred. Returns nil if `err` is nil.
func WithContext(err error, context string) error {
	if err == nil {
		return nil
	}
	return withContext{err: err, context: context}
}

func (err withContext) Error() string {
	return fmt.Sprintf("%s: %s", err.context, err.err)
}

func (err withContext) Unwrap() error {
	return err.err
}

// FriendlyError is an error whose message is meant to be shown to the user
// as-is, without the context that was added while it was returned.
type FriendlyError interface {
	error
	FriendlyMessage() string
}

type friendlyError struct {
	template string
	args     []interface{}
}

// NewFriendlyError creates an error that's displayed verbatim by the CLI.
func NewFriendlyError(template string, args ...interface{}) error {
	return friendlyError{template: template, args: args}
}

func (err friendlyError) Error() string {
	return err.FriendlyMessage()
}

func (err friendlyError) FriendlyMessage() string {
	return fmt.Sprintf(err.template, err.args...)
}

// RootCause returns the innermost error of a chain created by WithContext or
// WithExitCode.
func RootCause(err error) error {
	for {
		switch wrapped := err.(type) {
		case withContext:
			err = wrapped.err
		case exitCodeError:
			err = wrapped.err
		default:
			return err
		}
	}
}

// GetFriendlyError returns the outermost FriendlyError in the chain, if any.
func GetFriendlyError(err error) (FriendlyError, bool) {
	var friendly FriendlyError
	if goerrors.As(err, &friendly) {
		return friendly, true
	}
	return nil, false
}
