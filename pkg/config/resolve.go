package config

import (
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/cargo-remote/pkg/errors"
)

// ErrNoRemote is returned by Resolve when no config source or CLI flag
// determines a host.
var ErrNoRemote = errors.New("no remote build server was defined")

// Source is the set of remotes declared in one config file.
type Source struct {
	// Name describes the source in log messages, e.g. "project".
	Name    string
	Path    string
	Remotes []Remote
}

// LoadSources parses the config files in `paths`. The sources are returned
// in precedence order: project-local before user-global.
//
// Config files are optional. A file that can't be read or parsed is logged
// and treated as if it declared no remotes.
func LoadSources(paths Paths) []Source {
	return []Source{
		loadSource("project", paths.Project),
		loadSource("user", paths.User),
	}
}

func loadSource(name, path string) Source {
	source := Source{Name: name, Path: path}
	if path == "" {
		return source
	}

	file, err := ParseFile(path)
	if err != nil {
		if _, ok := errors.RootCause(err).(errors.FileNotFound); ok {
			log.WithField("path", path).Debug("No config file")
			return source
		}

		msg := err.Error()
		if friendly, ok := errors.GetFriendlyError(err); ok {
			msg = friendly.FriendlyMessage()
		}
		log.WithField("path", path).Warnf("Ignoring %s config: %s", name, msg)
		return source
	}

	seen := map[string]struct{}{}
	for _, remote := range file.Remotes {
		if remote.Name == "" {
			source.Remotes = append(source.Remotes, remote)
			continue
		}
		if _, ok := seen[remote.Name]; ok {
			log.WithField("path", path).Warnf(
				"Remote %q is declared more than once. Only the first one is used.", remote.Name)
		}
		seen[remote.Name] = struct{}{}
		source.Remotes = append(source.Remotes, remote)
	}
	return source
}

// Resolve picks the remote to build on.
//
// A blueprint is chosen from the configured remotes: the first one named
// `overrides.Name` if a name is given, otherwise the first one declared.
// When nothing matches, a blueprint made of the built-in defaults is used,
// but only if the overrides name a host themselves. The fields that are set
// in `overrides` then replace the blueprint's, and any field still unset
// falls back to the built-in default.
func Resolve(sources []Source, overrides Remote) (Remote, error) {
	var candidates []Remote
	for _, source := range sources {
		candidates = append(candidates, source.Remotes...)
	}

	blueprint, ok := selectBlueprint(candidates, overrides.Name)
	if !ok {
		if overrides.Host == "" {
			return Remote{}, ErrNoRemote
		}
		blueprint = Defaults()
	}

	remote := Defaults().Merge(blueprint).Merge(overrides)
	if remote.Host == "" {
		return Remote{}, ErrNoRemote
	}

	if err := remote.validate(); err != nil {
		return Remote{}, errors.WithContext(err, "validate remote")
	}
	return remote, nil
}

func selectBlueprint(candidates []Remote, name string) (Remote, bool) {
	for _, candidate := range candidates {
		if name == "" || candidate.Name == name {
			return candidate, true
		}
	}
	return Remote{}, false
}
