// Package session runs a remote build: it transfers the project to the
// build server, runs Cargo there, and retrieves the results.
package session

import (
	"strings"

	"github.com/sidkik/cargo-remote/pkg/config"
	"github.com/sidkik/cargo-remote/pkg/transfer"
	"github.com/sidkik/cargo-remote/pkg/workspace"
)

// FileSync carries out file transfers. Implementations must connect the
// transfer to the terminal so that credential prompts and progress reach the
// user.
type FileSync interface {
	Sync(transfer.Plan) error
}

// RemoteShell runs a command on a build server. It returns the command's
// exit status, or an error if the command couldn't be run at all.
type RemoteShell interface {
	Execute(target config.Remote, command string, pty bool) (int, error)
}

// Session is everything that's known about a build before it starts. It
// isn't modified once created.
type Session struct {
	Layout workspace.Layout
	Target config.Remote
}

// New creates the Session for building the Cargo workspace at
// `workspaceRoot` on `target`. Everything below `projectRoot` is sent to
// the build server.
func New(projectRoot, workspaceRoot string, target config.Remote) (Session, error) {
	layout, err := workspace.NewLayout(projectRoot, workspaceRoot, target.TempDir)
	if err != nil {
		return Session{}, err
	}
	return Session{Layout: layout, Target: target}, nil
}

// Options are the user's choices for one build.
type Options struct {
	// Command is the Cargo subcommand, such as "build", and Args are the
	// arguments that follow it.
	Command string
	Args    []string

	// BuildEnv is prepended to the Cargo invocation, e.g.
	// "RUST_BACKTRACE=1".
	BuildEnv string

	// Toolchain is passed to `rustup default` before building.
	Toolchain string

	CopyBack     bool
	CopyBackFile string
	CopyLock     bool

	Hidden   bool
	Compress bool
}

func (opts Options) transferOptions() transfer.Options {
	return transfer.Options{
		Hidden:       opts.Hidden,
		Compress:     opts.Compress,
		CopyBack:     opts.CopyBack,
		CopyBackFile: opts.CopyBackFile,
		CopyLock:     opts.CopyLock,
	}
}

// RemoteCommand returns the shell command that runs the build on the build
// server. Arguments are joined with spaces and not quoted, so the remote
// shell splits them.
func RemoteCommand(s Session, opts Options) string {
	var segments []string
	if s.Target.EnvProfile != "" {
		segments = append(segments, "source "+s.Target.EnvProfile)
	}

	if opts.Toolchain != "" {
		segments = append(segments, "rustup default "+opts.Toolchain)
	}

	segments = append(segments, "cd "+s.Layout.RemoteWorkspace())

	var build []string
	if opts.BuildEnv != "" {
		build = append(build, opts.BuildEnv)
	}
	build = append(build, "cargo")
	if opts.Command != "" {
		build = append(build, opts.Command)
	}
	build = append(build, opts.Args...)

	segments = append(segments, strings.Join(build, " "))
	return strings.Join(segments, "; ")
}
