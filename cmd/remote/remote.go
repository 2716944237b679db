package remote

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/buger/goterm"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/cargo-remote/cmd/util"
	"github.com/sidkik/cargo-remote/pkg/config"
	"github.com/sidkik/cargo-remote/pkg/errors"
	"github.com/sidkik/cargo-remote/pkg/project"
	"github.com/sidkik/cargo-remote/pkg/session"
	"github.com/sidkik/cargo-remote/pkg/transport"
)

// Mocked for unit testing.
var (
	stderr        io.Writer = os.Stderr
	locateProject           = project.Locate
	getPaths                = config.GetPaths
	newBackends             = transport.For
	clock                   = clockwork.NewRealClock()
	color                   = util.Color
)

// Defaults of the build options.
const (
	DefaultBuildEnv  = "RUST_BACKTRACE=1"
	DefaultToolchain = "stable"
)

type options struct {
	session.Options

	overrides    config.Remote
	manifestPath string
	workDir      string
	noCopyLock   bool
	noCompress   bool
}

// New creates a new `remote` command.
func New() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "remote [flags] COMMAND [ARGS...]",
		Short: "Build a Cargo project on a remote machine",
		Long: "Transfer the project to a build server over ssh, run the Cargo\n" +
			"command there, and optionally copy the build output back.\n\n" +
			"Every argument after COMMAND is passed to Cargo.",
		Example: "  cargo remote -r builder -c build --release\n" +
			"  cargo remote -H builder.example.com -u me test -- --nocapture",
		Args: cobra.MinimumNArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			if err := run(opts, args); err != nil {
				util.HandleFatalError(err)
			}
		},
	}

	// Flags after the Cargo command belong to Cargo.
	cmd.Flags().SetInterspersed(false)

	// -h is --transfer-hidden, so the help flag only has a long form.
	cmd.Flags().Bool("help", false, "help for remote")

	cmd.Flags().StringVarP(&opts.overrides.Name, "remote", "r", "",
		"The name of the remote from the config to build on")
	cmd.Flags().StringVarP(&opts.overrides.Host, "remote-host", "H", "",
		"The ssh host of the build server. Use \"local\" to build in a local directory.")
	cmd.Flags().StringVarP(&opts.overrides.User, "remote-user", "u", "",
		"The user to log in to the build server as")
	cmd.Flags().IntVarP(&opts.overrides.SSHPort, "remote-ssh-port", "p", 0,
		"The ssh port of the build server (default 22)")
	cmd.Flags().StringVar(&opts.overrides.TempDir, "remote-temp-dir", "",
		"The directory on the build server that projects are copied into (default \"~/remote-builds\")")
	cmd.Flags().StringVarP(&opts.overrides.EnvProfile, "env", "e", "",
		"A file on the build server that's sourced before building, such as ~/.profile")

	cmd.Flags().StringVar(&opts.BuildEnv, "build-env", DefaultBuildEnv,
		"Environment variables that are set for the Cargo command")
	cmd.Flags().StringVar(&opts.Toolchain, "rustup-default", DefaultToolchain,
		"The toolchain that's selected with 'rustup default' before building")

	copyBack := cmd.Flags().VarPF(copyBackValue{enabled: &opts.CopyBack, file: &opts.CopyBackFile},
		"copy-back", "c",
		"Transfer the target directory back to the local machine. "+
			"If a path is given, only that file within the target directory is transferred.")
	copyBack.NoOptDefVal = wholeTargetDir

	cmd.Flags().BoolVar(&opts.noCopyLock, "no-copy-lock", false,
		"Don't transfer Cargo.lock back to the local machine")
	cmd.Flags().BoolVarP(&opts.Hidden, "transfer-hidden", "h", false,
		"Transfer hidden files and directories to the build server")
	cmd.Flags().BoolVar(&opts.noCompress, "no-compress", false,
		"Don't compress the file transfers")
	cmd.Flags().StringVar(&opts.manifestPath, "manifest-path", "",
		"The path to Cargo.toml")
	cmd.Flags().StringVarP(&opts.workDir, "workdir", "w", "",
		"The directory that's transferred to the build server. "+
			"It must contain the Cargo workspace. (default: the workspace root)")

	return cmd
}

func run(opts options, args []string) error {
	opts.Command = args[0]
	opts.Args = args[1:]
	opts.CopyLock = !opts.noCopyLock
	opts.Compress = !opts.noCompress

	proj, err := locateProject(opts.manifestPath, opts.workDir)
	if err != nil {
		return errors.WithContext(err, "locate project")
	}

	target, err := resolveTarget(proj.ProjectRoot, opts.overrides)
	if err != nil {
		return err
	}

	s, err := session.New(proj.ProjectRoot, proj.WorkspaceRoot, target)
	if err != nil {
		return errors.WithExitCode(errors.WithContext(err, "plan workspace"), errors.ExitNoProject)
	}
	log.WithFields(log.Fields{
		"project":         proj.Name,
		"remote":          target.String(),
		"remoteWorkspace": s.Layout.RemoteWorkspace(),
	}).Debug("Starting build session")

	fileSync, shell := newBackends(target)
	runner := &session.Runner{
		Sync:  fileSync,
		Shell: shell,
		Log:   log.StandardLogger(),
		Clock: clock,
	}

	err = runner.Run(s, opts.Options)
	printSummary(runner.Phases(), runner.State())
	return err
}

func resolveTarget(projectRoot string, overrides config.Remote) (config.Remote, error) {
	paths, err := getPaths(projectRoot)
	if err != nil {
		return config.Remote{}, errors.WithExitCode(
			errors.WithContext(err, "get config paths"), errors.ExitConfig)
	}

	target, err := config.Resolve(config.LoadSources(paths), overrides)
	if err != nil {
		if errors.RootCause(err) == config.ErrNoRemote {
			return config.Remote{}, errors.WithExitCode(errors.NewFriendlyError(
				"No remote build server was defined.\n"+
					"Use the --remote-host flag, or add one with `cargo-remote config`.\n"+
					"Config files:\n  %s\n  %s", paths.Project, paths.User), errors.ExitNoRemote)
		}
		return config.Remote{}, errors.WithExitCode(
			errors.WithContext(err, "resolve remote"), errors.ExitConfig)
	}
	return target, nil
}

var phaseNames = map[session.State]string{
	session.SyncingOut:          "Transfer sources",
	session.Building:            "Build",
	session.RetrievingArtifacts: "Retrieve artifacts",
	session.RetrievingLock:      "Retrieve Cargo.lock",
}

// printSummary prints how long each phase took, and whether it succeeded.
func printSummary(phases []session.PhaseResult, state session.State) {
	if len(phases) == 0 {
		return
	}

	var total time.Duration
	failed := false
	for _, phase := range phases {
		status := color("ok", goterm.GREEN)
		if phase.Err != nil {
			status = color("failed", goterm.RED)
			failed = true
		}
		fmt.Fprintf(stderr, "%-20s %-8s %s\n", phaseNames[phase.State], status,
			phase.Duration.Round(time.Millisecond))
		total += phase.Duration
	}

	result := color("Finished", goterm.GREEN)
	switch {
	case state == session.Aborted:
		result = color("Aborted", goterm.RED)
	case failed:
		result = color("Build failed", goterm.RED)
	}
	fmt.Fprintf(stderr, "%s in %s\n", result, total.Round(time.Millisecond))
}
