// Package project finds the Cargo project that's being built.
package project

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/cargo-remote/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Variables mocked for unit testing.
var (
	cargoMetadata = cargoMetadataImpl
	evalSymlinks  = filepath.EvalSymlinks
)

// ErrNoProject is returned when the Cargo metadata doesn't contain any
// packages.
var ErrNoProject = errors.WithExitCode(errors.New("no project found"), errors.ExitNoProject)

// Project describes where a Cargo project lives on the local machine.
type Project struct {
	// Name is the name of the first package in the workspace.
	Name string

	// WorkspaceRoot is the directory of the Cargo workspace.
	WorkspaceRoot string

	// ProjectRoot is the directory that's transferred to the build server.
	// It's the working directory if one was given, and WorkspaceRoot
	// otherwise.
	ProjectRoot string
}

// MetadataError is returned when `cargo metadata` fails.
type MetadataError struct {
	Err    error
	Stderr string
}

func (err MetadataError) Error() string {
	msg := fmt.Sprintf("could not read cargo metadata: %s", err.Err)
	if err.Stderr != "" {
		msg += "\n" + strings.TrimSpace(err.Stderr)
	}
	return msg
}

func (err MetadataError) Unwrap() error {
	return err.Err
}

func (err MetadataError) ExitCode() int {
	return errors.ExitMetadata
}

// NotAncestorError is returned when the working directory doesn't contain
// the Cargo workspace.
type NotAncestorError struct {
	WorkDir, WorkspaceRoot string
}

func (err NotAncestorError) Error() string {
	return fmt.Sprintf("working directory %q is not an ancestor of the workspace root %q",
		err.WorkDir, err.WorkspaceRoot)
}

func (err NotAncestorError) ExitCode() int {
	return errors.ExitNoProject
}

type metadata struct {
	WorkspaceRoot string `json:"workspace_root"`
	Packages      []struct {
		Name         string `json:"name"`
		ManifestPath string `json:"manifest_path"`
	} `json:"packages"`
}

// Locate finds the Cargo project for `manifestPath`, or for the current
// directory if it's empty. If `workDir` is set, it must contain the
// workspace, and it becomes the project root.
func Locate(manifestPath, workDir string) (Project, error) {
	out, err := cargoMetadata(manifestPath)
	if err != nil {
		return Project{}, err
	}

	var meta metadata
	if err := json.Unmarshal(out, &meta); err != nil {
		return Project{}, MetadataError{Err: errors.WithContext(err, "parse")}
	}

	if len(meta.Packages) == 0 {
		return Project{}, ErrNoProject
	}

	workspaceRoot := meta.WorkspaceRoot
	if workspaceRoot == "" {
		workspaceRoot = filepath.Dir(meta.Packages[0].ManifestPath)
	}

	workspaceRoot, err = canonicalize(workspaceRoot)
	if err != nil {
		return Project{}, errors.WithExitCode(
			errors.WithContext(err, "resolve workspace root"), errors.ExitNoProject)
	}

	project := Project{
		Name:          meta.Packages[0].Name,
		WorkspaceRoot: workspaceRoot,
		ProjectRoot:   workspaceRoot,
	}

	if workDir != "" {
		workDir, err = canonicalize(workDir)
		if err != nil {
			return Project{}, errors.WithExitCode(
				errors.WithContext(err, "resolve working directory"), errors.ExitNoProject)
		}

		if !isAncestor(workDir, workspaceRoot) {
			return Project{}, NotAncestorError{WorkDir: workDir, WorkspaceRoot: workspaceRoot}
		}
		project.ProjectRoot = workDir
	}

	log.WithFields(log.Fields{
		"name":          project.Name,
		"workspaceRoot": project.WorkspaceRoot,
		"projectRoot":   project.ProjectRoot,
	}).Debug("Located project")
	return project, nil
}

func cargoMetadataImpl(manifestPath string) ([]byte, error) {
	args := []string{"metadata", "--format-version", "1", "--no-deps"}
	if manifestPath != "" {
		args = append(args, "--manifest-path", manifestPath)
	}

	out, err := exec.Command("cargo", args...).Output()
	if err != nil {
		metaErr := MetadataError{Err: err}
		if exitErr, ok := err.(*exec.ExitError); ok {
			metaErr.Stderr = string(exitErr.Stderr)
		}
		return nil, metaErr
	}
	return out, nil
}

func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return evalSymlinks(abs)
}

// isAncestor returns whether `dir` is `path` or one of its parents.
func isAncestor(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
