package transport

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/hashicorp/go-version"
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/cargo-remote/pkg/errors"
	"github.com/sidkik/cargo-remote/pkg/transfer"
)

// progress2Version is the first rsync release that supports
// `--info=progress2`.
var progress2Version = version.Must(version.NewVersion("3.1.0"))

// Rsync carries out transfer plans with the rsync binary.
type Rsync struct {
	// Binary is the path or name of the rsync executable.
	Binary string

	probed     bool
	version    *version.Version
	versionErr error
}

// NewRsync returns an Rsync that runs the rsync found in PATH.
func NewRsync() *Rsync {
	return &Rsync{Binary: "rsync"}
}

// Version returns the version of the local rsync. The binary is only
// queried once.
func (r *Rsync) Version() (*version.Version, error) {
	if r.probed {
		return r.version, r.versionErr
	}
	r.probed = true

	out, err := outputCommand(exec.Command(r.Binary, "--version"))
	if err != nil {
		r.versionErr = errors.WithContext(err, "run rsync --version")
		return nil, r.versionErr
	}

	r.version, r.versionErr = ParseVersion(string(out))
	return r.version, r.versionErr
}

// ParseVersion extracts the version from the output of `rsync --version`.
func ParseVersion(output string) (*version.Version, error) {
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[0] != "rsync" || fields[1] != "version" {
			continue
		}

		v, err := version.NewVersion(fields[2])
		if err != nil {
			return nil, errors.WithContext(err, "parse rsync version")
		}
		return v, nil
	}
	return nil, errors.New("unrecognized rsync version output")
}

// Args returns the rsync arguments that carry out `plan`.
func (r *Rsync) Args(plan transfer.Plan) []string {
	args := []string{"-a"}
	if plan.Mirror {
		args = append(args, "--delete")
	}

	if plan.Compress {
		args = append(args, "--compress")
	}

	if plan.Progress {
		args = append(args, r.progressFlag())
	}

	for _, exclude := range plan.Excludes {
		args = append(args, "--exclude", exclude)
	}

	if plan.RemotePreCommand != "" {
		args = append(args, "--rsync-path", plan.RemotePreCommand+" && rsync")
	}

	if plan.Source.IsRemote() || plan.Destination.IsRemote() {
		rsh := "ssh"
		if plan.Port != 0 {
			rsh = fmt.Sprintf("ssh -p %d", plan.Port)
		}
		args = append(args, "-e", rsh)
	}

	return append(args, plan.Source.String(), plan.Destination.String())
}

func (r *Rsync) progressFlag() string {
	v, err := r.Version()
	if err != nil {
		log.WithError(err).Debug("Failed to detect rsync version")
		return "--progress"
	}

	if v.LessThan(progress2Version) {
		return "--progress"
	}
	return "--info=progress2"
}

// Sync runs rsync for `plan`. The transfer's progress is written directly
// to the terminal.
func (r *Rsync) Sync(plan transfer.Plan) error {
	cmd := exec.Command(r.Binary, r.Args(plan)...)
	log.WithField("args", cmd.Args).Debug("Running rsync")

	code, err := runInteractive(cmd)
	if err != nil {
		return errors.WithContext(err, "run rsync")
	}

	if code != 0 {
		return fmt.Errorf("rsync exited with status %d", code)
	}
	return nil
}
