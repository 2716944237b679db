// Package workspace decides where a project lives on the build server.
//
// The remote directory is derived from a hash of the local project root
// rather than from the project name, so that two checkouts of the same
// project never share a remote directory, while repeated builds of one
// checkout reuse it and only transfer what changed.
package workspace

import (
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Layout maps the local project onto the build server.
type Layout struct {
	// ProjectRoot is the local directory that is transferred.
	ProjectRoot string

	// WorkspaceRoot is the local Cargo workspace root. It's either
	// ProjectRoot or one of its descendants.
	WorkspaceRoot string

	// Offset is the slash-separated path from ProjectRoot to WorkspaceRoot.
	// It's "." when they're the same directory.
	Offset string

	// RemoteDir is the directory on the build server that mirrors
	// ProjectRoot.
	RemoteDir string
}

// OutsideProjectError is returned when the workspace root isn't inside the
// project root.
type OutsideProjectError struct {
	ProjectRoot, WorkspaceRoot string
}

func (err OutsideProjectError) Error() string {
	return fmt.Sprintf("workspace root %q is not inside %q", err.WorkspaceRoot, err.ProjectRoot)
}

// NewLayout computes the Layout for a project. Both roots must be canonical
// absolute paths.
func NewLayout(projectRoot, workspaceRoot, tempDir string) (Layout, error) {
	offset, err := Offset(projectRoot, workspaceRoot)
	if err != nil {
		return Layout{}, err
	}

	return Layout{
		ProjectRoot:   projectRoot,
		WorkspaceRoot: workspaceRoot,
		Offset:        offset,
		RemoteDir:     RemoteDir(projectRoot, tempDir),
	}, nil
}

// RemoteDir returns the directory on the build server for the project at
// `projectRoot`. The same path always maps to the same directory.
func RemoteDir(projectRoot, tempDir string) string {
	hash := xxhash.Sum64String(projectRoot)
	return strings.TrimRight(tempDir, "/") + "/" + strconv.FormatUint(hash, 16)
}

// Offset returns the slash-separated relative path from `projectRoot` to
// `workspaceRoot`.
func Offset(projectRoot, workspaceRoot string) (string, error) {
	rel, err := filepath.Rel(projectRoot, workspaceRoot)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", OutsideProjectError{ProjectRoot: projectRoot, WorkspaceRoot: workspaceRoot}
	}
	return filepath.ToSlash(rel), nil
}

// RemoteWorkspace returns the directory on the build server that
// corresponds to WorkspaceRoot. Cargo runs there.
func (l Layout) RemoteWorkspace() string {
	if l.Offset == "." || l.Offset == "" {
		return l.RemoteDir
	}
	return path.Join(l.RemoteDir, l.Offset)
}
