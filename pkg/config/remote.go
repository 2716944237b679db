package config

import (
	"fmt"
	"strings"
)

const (
	// DefaultSSHPort is the port used when no config source sets one.
	DefaultSSHPort = 22

	// DefaultTempDir is the remote directory that holds the build workspaces
	// when no config source sets one.
	DefaultTempDir = "~/remote-builds"

	// LoopbackHost is a reserved host name. Remotes with this host build in
	// a directory on the local machine rather than over ssh.
	LoopbackHost = "local"
)

// Remote describes a build server. In config files and CLI overrides, every
// field is optional and the zero value means "not set".
type Remote struct {
	// Name identifies the remote when several are configured.
	Name string `toml:"name,omitempty" json:"name,omitempty"`

	// Host is the ssh destination. It may contain a user (`me@builder`) or
	// be an alias from the user's ssh config.
	Host string `toml:"host,omitempty" json:"host"`

	// User overrides the login user encoded in Host, if any.
	User string `toml:"user,omitempty" json:"user,omitempty"`

	SSHPort int    `toml:"ssh_port,omitempty" json:"sshPort"`
	TempDir string `toml:"temp_dir,omitempty" json:"tempDir"`

	// EnvProfile is a file on the remote that's sourced before building.
	EnvProfile string `toml:"env,omitempty" json:"env,omitempty"`
}

// Defaults returns the built-in remote that every resolved remote is layered
// on top of.
func Defaults() Remote {
	return Remote{
		SSHPort: DefaultSSHPort,
		TempDir: DefaultTempDir,
	}
}

// Merge returns a copy of `r` with every field that's set in `overlay`
// replaced by the overlay's value.
func (r Remote) Merge(overlay Remote) Remote {
	if overlay.Name != "" {
		r.Name = overlay.Name
	}
	if overlay.Host != "" {
		r.Host = overlay.Host
	}
	if overlay.User != "" {
		r.User = overlay.User
	}
	if overlay.SSHPort != 0 {
		r.SSHPort = overlay.SSHPort
	}
	if overlay.TempDir != "" {
		r.TempDir = overlay.TempDir
	}
	if overlay.EnvProfile != "" {
		r.EnvProfile = overlay.EnvProfile
	}
	return r
}

// Destination returns the connection string passed to ssh and rsync.
func (r Remote) Destination() string {
	if r.User == "" {
		return r.Host
	}

	host := r.Host
	if at := strings.LastIndex(host, "@"); at != -1 {
		host = host[at+1:]
	}
	return r.User + "@" + host
}

// IsLoopback returns whether the remote builds on the local machine.
func (r Remote) IsLoopback() bool {
	return r.Host == LoopbackHost
}

func (r Remote) String() string {
	if r.Name == "" {
		return fmt.Sprintf("%s:%d", r.Destination(), r.SSHPort)
	}
	return fmt.Sprintf("%s (%s:%d)", r.Name, r.Destination(), r.SSHPort)
}

// InvalidRemoteError is returned when the resolved remote can't be used.
type InvalidRemoteError struct {
	Field, Reason string
}

func (err InvalidRemoteError) Error() string {
	return fmt.Sprintf("invalid %s: %s", err.Field, err.Reason)
}

func (r Remote) validate() error {
	if r.SSHPort < 1 || r.SSHPort > 65535 {
		return InvalidRemoteError{
			Field:  "ssh_port",
			Reason: fmt.Sprintf("%d is not between 1 and 65535", r.SSHPort),
		}
	}
	if strings.TrimRight(r.TempDir, "/") == "" {
		return InvalidRemoteError{Field: "temp_dir", Reason: "must not be the filesystem root"}
	}
	return nil
}
