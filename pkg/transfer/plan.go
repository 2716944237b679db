// Package transfer describes the file transfers of a remote build. It only
// plans them: the plans are carried out by a file-sync implementation such
// as rsync.
package transfer

import (
	"path"
	"path/filepath"

	"github.com/sidkik/cargo-remote/pkg/config"
	"github.com/sidkik/cargo-remote/pkg/workspace"
)

const (
	// BuildDir is the name of Cargo's build output directory. It's never
	// sent to the build server.
	BuildDir = "target"

	// LockFile is the name of Cargo's lock file.
	LockFile = "Cargo.lock"

	// HiddenPattern excludes dotfiles and dot-directories.
	HiddenPattern = ".*"
)

// Endpoint is one side of a transfer. An empty Host means the local machine.
type Endpoint struct {
	Host string
	Path string
}

// IsRemote returns whether the endpoint is on the build server.
func (e Endpoint) IsRemote() bool {
	return e.Host != ""
}

func (e Endpoint) String() string {
	if !e.IsRemote() {
		return e.Path
	}
	return e.Host + ":" + e.Path
}

// Plan is a fully-specified file transfer.
//
// A Source path ending with a slash means "the contents of this directory"
// rather than the directory itself, as with rsync.
type Plan struct {
	Source      Endpoint
	Destination Endpoint

	// Excludes are patterns matched against the name of every file and
	// directory below Source.
	Excludes []string

	// Mirror deletes files at the destination that don't exist at the
	// source.
	Mirror bool

	Compress bool
	Progress bool

	// Port is the ssh port of the remote endpoint.
	Port int

	// RemotePreCommand runs on the build server before the transfer starts.
	RemotePreCommand string
}

// Options are the user's choices that affect the transfers.
type Options struct {
	// Hidden transfers dotfiles to the build server.
	Hidden bool

	Compress bool

	// CopyBack retrieves the build output. If CopyBackFile is set, only that
	// file within the build output directory is retrieved.
	CopyBack     bool
	CopyBackFile string

	// CopyLock retrieves Cargo.lock after the build.
	CopyLock bool
}

// Plans are the transfers of one build session. Artifacts and Lock are nil
// when they're not requested.
type Plans struct {
	Outbound  Plan
	Artifacts *Plan
	Lock      *Plan
}

// Build plans the transfers for building `layout` on `target`.
func Build(layout workspace.Layout, target config.Remote, opts Options) Plans {
	host := target.Destination()
	remoteWorkspace := layout.RemoteWorkspace()

	excludes := []string{BuildDir}
	if !opts.Hidden {
		excludes = append(excludes, HiddenPattern)
	}

	plans := Plans{
		Outbound: Plan{
			Source:           Endpoint{Path: withTrailingSlash(layout.ProjectRoot)},
			Destination:      Endpoint{Host: host, Path: withTrailingSlash(layout.RemoteDir)},
			Excludes:         excludes,
			Mirror:           true,
			Compress:         opts.Compress,
			Progress:         true,
			Port:             target.SSHPort,
			RemotePreCommand: "mkdir -p " + target.TempDir,
		},
	}

	if opts.CopyBack {
		artifacts := Plan{
			Source:      Endpoint{Host: host, Path: path.Join(remoteWorkspace, BuildDir) + "/"},
			Destination: Endpoint{Path: filepath.Join(layout.WorkspaceRoot, BuildDir) + string(filepath.Separator)},
			Mirror:      true,
			Compress:    opts.Compress,
			Progress:    true,
			Port:        target.SSHPort,
		}
		if opts.CopyBackFile != "" {
			artifacts.Source.Path = path.Join(remoteWorkspace, BuildDir, filepath.ToSlash(opts.CopyBackFile))
			artifacts.Destination.Path = filepath.Join(layout.WorkspaceRoot, BuildDir, opts.CopyBackFile)
			artifacts.Mirror = false
		}
		plans.Artifacts = &artifacts
	}

	if opts.CopyLock {
		plans.Lock = &Plan{
			Source:      Endpoint{Host: host, Path: path.Join(remoteWorkspace, LockFile)},
			Destination: Endpoint{Path: filepath.Join(layout.WorkspaceRoot, LockFile)},
			Compress:    opts.Compress,
			Progress:    true,
			Port:        target.SSHPort,
		}
	}
	return plans
}

func withTrailingSlash(dir string) string {
	if dir == "" || dir[len(dir)-1] == '/' {
		return dir
	}
	return dir + "/"
}
