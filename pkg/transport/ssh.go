package transport

import (
	"os"
	"os/exec"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/cargo-remote/pkg/config"
	"github.com/sidkik/cargo-remote/pkg/errors"
)

// sshErrorStatus is the status ssh exits with when it fails itself, for
// example because the build server can't be reached or authentication fails.
const sshErrorStatus = 255

// ErrSSHFailed is returned when ssh exits with sshErrorStatus. A remote
// command that exits with 255 is indistinguishable from it.
var ErrSSHFailed = errors.New("ssh exited with status 255 (connection or authentication failure)")

// SSH runs commands on a build server with the ssh client.
type SSH struct{}

// Args returns the ssh arguments that run `command` on `target`.
func (SSH) Args(target config.Remote, command string, pty bool) []string {
	var args []string
	if pty {
		args = append(args, "-t")
	}

	if target.SSHPort != 0 {
		args = append(args, "-p", strconv.Itoa(target.SSHPort))
	}
	return append(args, target.Destination(), command)
}

// Execute runs `command` on `target` and returns its exit status. If `pty`
// is set, ssh allocates a terminal on the build server so that Cargo's
// output keeps its colors and progress bars.
func (s SSH) Execute(target config.Remote, command string, pty bool) (int, error) {
	cmd := exec.Command("ssh", s.Args(target, command, pty)...)
	log.WithField("args", cmd.Args).Debug("Running ssh")

	code, err := runInteractive(cmd)
	if err != nil {
		return 0, errors.WithContext(err, "run ssh")
	}
	if code == sshErrorStatus {
		return 0, ErrSSHFailed
	}
	return code, nil
}

// LocalShell runs commands on this machine. It serves loopback targets.
type LocalShell struct {
	// Path is the shell that interprets commands. It defaults to $SHELL,
	// or /bin/sh if that's unset.
	Path string
}

// Execute runs `command` with the local shell. The target and `pty` are
// ignored since the command inherits the current terminal.
func (s LocalShell) Execute(_ config.Remote, command string, _ bool) (int, error) {
	shell := s.Path
	if shell == "" {
		shell = os.Getenv("SHELL")
	}
	if shell == "" {
		shell = "/bin/sh"
	}

	cmd := exec.Command(shell, "-c", command)
	log.WithField("args", cmd.Args).Debug("Running local shell")

	code, err := runInteractive(cmd)
	if err != nil {
		return 0, errors.WithContext(err, "run shell")
	}
	return code, nil
}
