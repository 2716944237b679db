package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/cargo-remote/cmd/util"
	"github.com/sidkik/cargo-remote/pkg/config"
	"github.com/sidkik/cargo-remote/pkg/errors"
	"github.com/sidkik/cargo-remote/pkg/project"
)

// Mocked for unit testing.
var (
	stdout            io.Writer = os.Stdout
	stdin             io.Reader = os.Stdin
	getUserConfigPath           = config.GetUserConfigPath
	getPaths                    = config.GetPaths
	locateProject               = project.Locate
	getCurrentUser              = user.Current
)

// New creates a new `config` command.
func New() *cobra.Command {
	var cliOpts config.Remote
	var projectLocal bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Add a build server to the cargo-remote configuration",
		Long: "Add a build server to the user configuration, or to the project\n" +
			"configuration with --project. A remote with the same name is replaced.\n" +
			"Fields that aren't set with flags are prompted for interactively.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := SetupConfig(cliOpts, projectLocal); err != nil {
				err = errors.NewFriendlyError("Failed to setup configuration:\n%s", err)
				util.HandleFatalError(errors.WithExitCode(err, errors.ExitConfig))
			}
		},
	}
	cmd.Flags().BoolVar(&projectLocal, "project", false,
		"Write to the config file of the current project instead of the user config")
	cmd.Flags().StringVar(&cliOpts.Name, "name", "",
		"The name of the remote. "+
			"Optional: If not set, `cargo-remote config` will interactively prompt.")
	cmd.Flags().StringVar(&cliOpts.Host, "host", "",
		"The ssh host of the build server. "+
			"Optional: If not set, `cargo-remote config` will interactively prompt.")
	cmd.Flags().StringVar(&cliOpts.User, "user", "",
		"The user to log in as. "+
			"Optional: If not set, `cargo-remote config` will interactively prompt.")
	cmd.Flags().IntVar(&cliOpts.SSHPort, "ssh-port", 0,
		"The ssh port of the build server. "+
			"Optional: If not set, `cargo-remote config` will interactively prompt.")
	cmd.Flags().StringVar(&cliOpts.TempDir, "temp-dir", "",
		"The directory that builds happen in on the build server. "+
			"Optional: If not set, `cargo-remote config` will interactively prompt.")
	cmd.Flags().StringVar(&cliOpts.EnvProfile, "env", "",
		"A file on the build server that's sourced before building")

	cmd.AddCommand(newShowCommand(), newListCommand())
	return cmd
}

// SetupConfig adds a remote to the user config, or to the project config if
// `projectLocal` is set.
func SetupConfig(cliOpts config.Remote, projectLocal bool) error {
	path, err := configPath(projectLocal)
	if err != nil {
		return errors.WithContext(err, "get config path")
	}

	file, err := config.ParseFile(path)
	if err != nil {
		if _, ok := errors.RootCause(err).(errors.FileNotFound); !ok {
			return errors.WithContext(err, "read config")
		}
		log.WithField("path", path).Debug("Creating new config file")
	}

	remote, err := generateRemote(cliOpts, file)
	if err != nil {
		return errors.WithContext(err, "generate remote")
	}

	file.Upsert(remote)
	if err := config.WriteFile(path, file); err != nil {
		return errors.WithContext(err, "write config")
	}

	fmt.Fprintf(stdout, "Wrote remote %q to %s\n", remote.Name, path)
	return nil
}

func configPath(projectLocal bool) (string, error) {
	if !projectLocal {
		return getUserConfigPath()
	}

	proj, err := locateProject("", "")
	if err != nil {
		return "", errors.WithContext(err, "locate project")
	}
	return filepath.Join(proj.ProjectRoot, config.ProjectConfigName), nil
}

func nonEmptyValidationFn(field string) func(string) (string, bool) {
	return func(resp string) (string, bool) {
		if strings.TrimSpace(resp) == "" {
			return fmt.Sprintf("The %s is required.", field), false
		}
		return "", true
	}
}

func portValidationFn(resp string) (string, bool) {
	port, err := strconv.Atoi(resp)
	if err != nil || port < 1 || port > 65535 {
		return "The port must be a number between 1 and 65535.", false
	}
	return "", true
}

type prompt struct {
	helpString, prompt, defaultAnswer, currAnswer string
	field                                         *string
	validationFn                                  func(string) (string, bool)
}

// generateRemote interacts with the user to decide on the remote to add.
// The answers of an existing remote with the same name are offered as
// choices.
func generateRemote(cliOpts config.Remote, file config.File) (config.Remote, error) {
	defaults := guessDefaults()
	remote := cliOpts
	reader := bufio.NewReader(stdin)

	if cliOpts.Name == "" {
		var firstName string
		if len(file.Remotes) != 0 {
			firstName = file.Remotes[0].Name
		}

		err := runPrompts(reader, []prompt{{
			helpString: "Enter a name for the build server.\n" +
				"It's used to pick the server with `cargo remote --remote NAME`.",
			prompt:        "Remote name",
			defaultAnswer: defaults.Name,
			currAnswer:    firstName,
			field:         &remote.Name,
			validationFn:  nonEmptyValidationFn("name"),
		}})
		if err != nil {
			return config.Remote{}, err
		}
	}

	var curr config.Remote
	for _, existing := range file.Remotes {
		if existing.Name == remote.Name {
			curr = existing
			break
		}
	}

	var port string
	if cliOpts.SSHPort != 0 {
		port = strconv.Itoa(cliOpts.SSHPort)
	}

	var currPort string
	if curr.SSHPort != 0 {
		currPort = strconv.Itoa(curr.SSHPort)
	}

	var prompts []prompt
	if cliOpts.Host == "" {
		prompts = append(prompts, prompt{
			helpString: "Enter the ssh host of the build server.\n" +
				"Aliases from your ssh config work too. Use \"local\" to build\n" +
				"in a directory on this machine.",
			prompt:       "Build server host",
			currAnswer:   curr.Host,
			field:        &remote.Host,
			validationFn: nonEmptyValidationFn("host"),
		})
	}

	if cliOpts.User == "" {
		prompts = append(prompts, prompt{
			helpString:    "Enter the user to log in to the build server as.",
			prompt:        "Build server user",
			defaultAnswer: defaults.User,
			currAnswer:    curr.User,
			field:         &remote.User,
		})
	}

	if cliOpts.SSHPort == 0 {
		prompts = append(prompts, prompt{
			helpString:    "Enter the ssh port of the build server.",
			prompt:        "SSH port",
			defaultAnswer: strconv.Itoa(defaults.SSHPort),
			currAnswer:    currPort,
			field:         &port,
			validationFn:  portValidationFn,
		})
	}

	if cliOpts.TempDir == "" {
		prompts = append(prompts, prompt{
			helpString: "Enter the directory on the build server that projects are\n" +
				"copied into. Each project gets its own subdirectory.",
			prompt:        "Build directory",
			defaultAnswer: defaults.TempDir,
			currAnswer:    curr.TempDir,
			field:         &remote.TempDir,
		})
	}

	if err := runPrompts(reader, prompts); err != nil {
		return config.Remote{}, err
	}

	// The port was either set by a flag or validated by the prompt.
	remote.SSHPort, _ = strconv.Atoi(port)
	if remote.EnvProfile == "" {
		remote.EnvProfile = curr.EnvProfile
	}
	return remote, nil
}

// runPrompts asks each prompt until its answer is valid, and stores the
// answer in the prompt's field.
func runPrompts(reader *bufio.Reader, prompts []prompt) error {
	for _, prompt := range prompts {
		var resp string
		var err error
		for {
			resp, err = promptUser(reader, prompt.helpString, prompt.prompt,
				prompt.defaultAnswer, prompt.currAnswer)
			if err != nil {
				return errors.WithContext(err, "read response")
			}

			if prompt.validationFn == nil {
				break
			}

			validationErr, ok := prompt.validationFn(resp)
			if ok {
				break
			}

			fmt.Fprintln(stdout, validationErr)
		}

		*prompt.field = resp
	}
	return nil
}

// guessDefaults returns the suggested answers for the prompts.
func guessDefaults() config.Remote {
	defaults := config.Defaults()
	defaults.Name = "default"

	if u, err := getCurrentUser(); err == nil {
		defaults.User = u.Username
	} else {
		log.WithError(err).Info("Failed to guess user")
	}
	return defaults
}
