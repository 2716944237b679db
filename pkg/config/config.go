package config

import (
	"bytes"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/cargo-remote/pkg/errors"
)

// parseConfigErrTemplate is a template for when a config file is not valid
// TOML, or when its fields have the wrong types.
const parseConfigErrTemplate = "Configuration file could not be parsed. " +
	"Please review %q.\n" +
	"Common pitfalls include:\n" +
	" - Using the wrong types for fields (ssh_port is a number)\n" +
	" - Declaring remotes with [remote] instead of [[remote]]\n\n" +
	"For reference, here is the error from the parser:\n" +
	"%s"

// fs is used for mock tests. It will be overridden by afero.NewMemMapFs()
// in the tests.
var fs = afero.NewOsFs()

// File is the contents of a cargo-remote config file.
type File struct {
	Remotes []Remote `toml:"remote"`
}

// ParseFile reads the config file at `path`. It returns an
// errors.FileNotFound if the file doesn't exist.
func ParseFile(path string) (File, error) {
	configBytes, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return File{}, errors.FileNotFound{Path: path}
		}
		return File{}, errors.WithContext(err, "read file")
	}

	var file File
	if err := toml.Unmarshal(configBytes, &file); err != nil {
		return File{}, errors.NewFriendlyError(parseConfigErrTemplate, path, describeTOMLError(err))
	}

	// Decode again in strict mode to point out typos in field names. Unlike
	// type errors, these don't invalidate the rest of the file.
	strict := toml.NewDecoder(bytes.NewReader(configBytes))
	strict.DisallowUnknownFields()
	if err := strict.Decode(&File{}); err != nil {
		log.WithField("path", path).Warnf("Ignoring unknown fields in config file:\n%s",
			describeTOMLError(err))
	}
	return file, nil
}

// WriteFile writes `file` to `path`, creating the parent directory if needed.
func WriteFile(path string, file File) error {
	tomlBytes, err := toml.Marshal(file)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.WithContext(err, "create config directory")
	}

	if err := afero.WriteFile(fs, path, tomlBytes, 0644); err != nil {
		return errors.WithContext(err, "write")
	}
	return nil
}

// Upsert replaces the remote with the same name as `remote`, or appends it
// if there's none.
func (f *File) Upsert(remote Remote) {
	for i, existing := range f.Remotes {
		if existing.Name == remote.Name {
			f.Remotes[i] = remote
			return
		}
	}
	f.Remotes = append(f.Remotes, remote)
}

func describeTOMLError(err error) string {
	switch err := err.(type) {
	case *toml.DecodeError:
		return err.String()
	case *toml.StrictMissingError:
		return err.String()
	default:
		return err.Error()
	}
}
