package config

import (
	"github.com/ghodss/yaml"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/cargo-remote/cmd/util"
	"github.com/sidkik/cargo-remote/pkg/config"
	"github.com/sidkik/cargo-remote/pkg/errors"
)

func newShowCommand() *cobra.Command {
	var name, manifestPath string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the remote that `cargo remote` builds on",
		Run: func(_ *cobra.Command, _ []string) {
			if err := showRemote(name, manifestPath); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVarP(&name, "remote", "r", "", "The name of the remote to show")
	cmd.Flags().StringVar(&manifestPath, "manifest-path", "", "The path to Cargo.toml")
	return cmd
}

func newListCommand() *cobra.Command {
	var manifestPath string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print every configured remote",
		Run: func(_ *cobra.Command, _ []string) {
			if err := listRemotes(manifestPath); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVar(&manifestPath, "manifest-path", "", "The path to Cargo.toml")
	return cmd
}

func showRemote(name, manifestPath string) error {
	sources, err := loadSources(manifestPath)
	if err != nil {
		return err
	}

	remote, err := config.Resolve(sources, config.Remote{Name: name})
	if err != nil {
		code := errors.ExitConfig
		if errors.RootCause(err) == config.ErrNoRemote {
			code = errors.ExitNoRemote
		}
		return errors.WithExitCode(errors.WithContext(err, "resolve remote"), code)
	}
	return printYAML(remote)
}

type listedSource struct {
	Source  string          `json:"source"`
	Path    string          `json:"path"`
	Remotes []config.Remote `json:"remotes"`
}

func listRemotes(manifestPath string) error {
	sources, err := loadSources(manifestPath)
	if err != nil {
		return err
	}

	listed := []listedSource{}
	for _, source := range sources {
		remotes := source.Remotes
		if remotes == nil {
			remotes = []config.Remote{}
		}
		listed = append(listed, listedSource{
			Source:  source.Name,
			Path:    source.Path,
			Remotes: remotes,
		})
	}
	return printYAML(listed)
}

// loadSources loads the config sources of the current project. Outside of a
// project, only the user config is loaded.
func loadSources(manifestPath string) ([]config.Source, error) {
	var projectRoot string
	if proj, err := locateProject(manifestPath, ""); err == nil {
		projectRoot = proj.ProjectRoot
	} else {
		log.WithError(err).Debug("Not in a Cargo project. Skipping project config.")
	}

	paths, err := getPaths(projectRoot)
	if err != nil {
		return nil, errors.WithExitCode(errors.WithContext(err, "get config paths"), errors.ExitConfig)
	}
	if projectRoot == "" {
		paths.Project = ""
	}
	return config.LoadSources(paths), nil
}

func printYAML(v interface{}) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}
	_, err = stdout.Write(out)
	return err
}
