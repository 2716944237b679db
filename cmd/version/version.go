package version

import (
	"fmt"
	"io"
	"os"

	goversion "github.com/hashicorp/go-version"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/cargo-remote/pkg/transport"
	"github.com/sidkik/cargo-remote/pkg/version"
)

// Mocked for unit testing.
var (
	stdout       io.Writer = os.Stdout
	rsyncVersion           = func() (*goversion.Version, error) { return transport.NewRsync().Version() }
)

// New creates a new `version` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of cargo-remote and of the local rsync",
		Run: func(_ *cobra.Command, _ []string) {
			run()
		},
	}
}

func run() {
	fmt.Fprintf(stdout, "cargo-remote version: %s\n", version.Get())

	v, err := rsyncVersion()
	if err != nil {
		log.WithError(err).Debug("Failed to get rsync version")
		fmt.Fprintln(stdout, "rsync version:        not found")
		return
	}
	fmt.Fprintf(stdout, "rsync version:        %s\n", v)
}
