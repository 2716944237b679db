package config

import (
	"os"
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"

	"github.com/sidkik/cargo-remote/pkg/errors"
)

const (
	// ProjectConfigName is the name of the config file in the project root.
	ProjectConfigName = ".cargo-remote.toml"

	// UserConfigName is the name of the user-global config file inside the
	// `cargo-remote` XDG config directory.
	UserConfigName = "cargo-remote.toml"

	xdgPrefix = "cargo-remote"
)

// Mocked out for unit testing.
var (
	homedirExpand = homedir.Expand
	getenv        = os.Getenv
)

// Paths contains the locations of the config files that are consulted for a
// project. They're resolved once at startup.
type Paths struct {
	Project string
	User    string
}

// GetPaths returns the config file locations for the project rooted at
// `projectRoot`.
func GetPaths(projectRoot string) (Paths, error) {
	userPath, err := GetUserConfigPath()
	if err != nil {
		return Paths{}, errors.WithContext(err, "get user config path")
	}

	return Paths{
		Project: filepath.Join(projectRoot, ProjectConfigName),
		User:    userPath,
	}, nil
}

// GetUserConfigPath returns the path to the user-global config. It follows
// the XDG base directory lookup: the first existing file in
// $XDG_CONFIG_HOME, then $XDG_CONFIG_DIRS. If none exists, the path inside
// $XDG_CONFIG_HOME is returned so that it can be created.
func GetUserConfigPath() (string, error) {
	configHome := getenv("XDG_CONFIG_HOME")
	if configHome == "" || !filepath.IsAbs(configHome) {
		var err error
		configHome, err = homedirExpand("~/.config")
		if err != nil {
			return "", errors.WithContext(err, "expand home directory")
		}
	}
	preferred := filepath.Join(configHome, xdgPrefix, UserConfigName)

	candidates := []string{preferred}
	configDirs := getenv("XDG_CONFIG_DIRS")
	if configDirs == "" {
		configDirs = "/etc/xdg"
	}
	for _, dir := range strings.Split(configDirs, ":") {
		if filepath.IsAbs(dir) {
			candidates = append(candidates, filepath.Join(dir, xdgPrefix, UserConfigName))
		}
	}

	for _, path := range candidates {
		if fi, err := fs.Stat(path); err == nil && !fi.IsDir() {
			return path, nil
		}
	}
	return preferred, nil
}
