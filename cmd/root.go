package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	configCmd "github.com/sidkik/cargo-remote/cmd/config"
	"github.com/sidkik/cargo-remote/cmd/remote"
	"github.com/sidkik/cargo-remote/cmd/util"
	"github.com/sidkik/cargo-remote/cmd/version"
)

// verboseLogKey is the environment variable used to enable verbose logging.
// When it's set to `true`, Debug events are logged, rather than just Info and
// above.
const verboseLogKey = "CARGO_REMOTE_LOG_VERBOSE"

// Execute runs the main CLI process.
func Execute() {
	if os.Getenv(verboseLogKey) == "true" {
		log.SetLevel(log.DebugLevel)
	}

	if err := NewRoot().Execute(); err != nil {
		util.HandleFatalError(err)
	}
}

// NewRoot creates the root command. Cargo runs `cargo-remote remote ARGS`
// for `cargo remote ARGS`, so the root command is named after Cargo.
func NewRoot() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "cargo",
		SilenceUsage: true,

		// The call to rootCmd.Execute prints the error, so we silence errors
		// here to avoid double printing.
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		configCmd.New(),
		remote.New(),
		version.New(),
	)
	return rootCmd
}
