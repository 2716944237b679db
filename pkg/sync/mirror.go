package sync

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/sidkik/cargo-remote/pkg/errors"
)

// A File is a file or directory below the root of a snapshot.
type File struct {
	// ContentsPath is the path to the file that can be opened by the
	// process.
	ContentsPath string

	// RelativePath is the slash-separated path of the file relative to the
	// root of the snapshot. Files are compared across snapshots by this path.
	RelativePath string

	// FileAttributes contains metadata that's used for comparing equality
	// between files in different snapshots.
	FileAttributes
}

// Snapshot is a collection of files keyed by their RelativePath.
type Snapshot map[string]File

// Add updates the Snapshot.
func (snapshot Snapshot) Add(f File) {
	snapshot[f.RelativePath] = f
}

// TakeSnapshot returns the information on the files below `root` that don't
// match any of the `excludes`. A missing root results in an empty snapshot.
func TakeSnapshot(root string, excludes []string) (Snapshot, error) {
	files := Snapshot{}
	if _, err := fs.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return files, nil
		}
		return nil, errors.WithContext(err, "stat root")
	}

	err := afero.Walk(fs, root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if path == root {
			return nil
		}

		relativePath, err := filepath.Rel(root, path)
		if err != nil || strings.HasPrefix(relativePath, "..") {
			return errors.WithContext(err, "normalized path")
		}
		relativePath = filepath.ToSlash(relativePath)

		if Excluded(relativePath, excludes) {
			if fi.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		attrs := FileAttributes{Mode: fi.Mode(), ModTime: fi.ModTime()}
		if !fi.IsDir() {
			attrs.ContentsHash, err = HashFile(path)
			if err != nil {
				return errors.WithContext(err, "hash")
			}
		}

		files.Add(File{
			ContentsPath:   path,
			RelativePath:   relativePath,
			FileAttributes: attrs,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Diff returns the files that need to be created or updated at the
// destination, and the paths that need to be removed from it. The returned
// slices are sorted so that parents come before their children.
func (source Snapshot) Diff(dst Snapshot) (toCopy []File, toRemove []string) {
	for _, exp := range source {
		curr, ok := dst[exp.RelativePath]
		if !ok || !curr.FileAttributes.Equal(exp.FileAttributes) {
			toCopy = append(toCopy, exp)
		}

		// A file that became a directory, or the other way around, has to
		// be removed before it can be replaced.
		if ok && curr.Mode.IsDir() != exp.Mode.IsDir() {
			toRemove = append(toRemove, exp.RelativePath)
		}
	}

	for _, curr := range dst {
		if _, ok := source[curr.RelativePath]; !ok {
			toRemove = append(toRemove, curr.RelativePath)
		}
	}

	sort.Slice(toCopy, func(i, j int) bool {
		return toCopy[i].RelativePath < toCopy[j].RelativePath
	})
	sort.Strings(toRemove)
	return toCopy, toRemove
}

// Result summarizes what a mirror changed.
type Result struct {
	Copied, Removed int
}

// mirrorDir makes the contents of `dstRoot` match `srcRoot`. Paths at the
// destination that don't exist at the source are only removed if `mirror`
// is set.
func mirrorDir(srcRoot, dstRoot string, excludes []string, mirror bool) (Result, error) {
	source, err := TakeSnapshot(srcRoot, excludes)
	if err != nil {
		return Result{}, errors.WithContext(err, "snapshot source")
	}

	dst, err := TakeSnapshot(dstRoot, excludes)
	if err != nil {
		return Result{}, errors.WithContext(err, "snapshot destination")
	}

	toCopy, toRemove := source.Diff(dst)
	var result Result

	if mirror {
		removedDirs := []string{}
		for _, path := range toRemove {
			if underAny(path, removedDirs) {
				continue
			}
			if err := fs.RemoveAll(filepath.Join(dstRoot, filepath.FromSlash(path))); err != nil {
				return result, errors.WithContext(err, "remove")
			}
			removedDirs = append(removedDirs, path)
			result.Removed++
		}
	} else {
		// Without mirroring, only clear the paths that are in the way of a
		// file changing type.
		for _, path := range toRemove {
			if _, ok := source[path]; ok {
				if err := fs.RemoveAll(filepath.Join(dstRoot, filepath.FromSlash(path))); err != nil {
					return result, errors.WithContext(err, "remove")
				}
			}
		}
	}

	if err := fs.MkdirAll(dstRoot, 0755); err != nil {
		return result, errors.WithContext(err, "create destination")
	}

	for _, f := range toCopy {
		dstPath := filepath.Join(dstRoot, filepath.FromSlash(f.RelativePath))
		if f.Mode.IsDir() {
			if err := fs.MkdirAll(dstPath, f.Mode.Perm()); err != nil {
				return result, errors.WithContext(err, "create directory")
			}
			continue
		}

		if err := copyFile(f.ContentsPath, dstPath, f.FileAttributes); err != nil {
			return result, errors.WithContext(err, "copy "+f.RelativePath)
		}
		result.Copied++
	}
	return result, nil
}

// copyFile copies the file at `src` to `dst`, and gives it the mode and
// modification time in `attrs`.
func copyFile(src, dst string, attrs FileAttributes) error {
	contents, err := afero.ReadFile(fs, src)
	if err != nil {
		return errors.WithContext(err, "read")
	}

	if err := fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return errors.WithContext(err, "create parent")
	}

	if err := afero.WriteFile(fs, dst, contents, attrs.Mode.Perm()); err != nil {
		return errors.WithContext(err, "write")
	}

	// WriteFile doesn't change the mode of existing files.
	if err := fs.Chmod(dst, attrs.Mode.Perm()); err != nil {
		return errors.WithContext(err, "chmod")
	}

	if err := fs.Chtimes(dst, attrs.ModTime, attrs.ModTime); err != nil {
		return errors.WithContext(err, "set modification time")
	}
	return nil
}

func underAny(path string, dirs []string) bool {
	for _, dir := range dirs {
		if strings.HasPrefix(path, dir+"/") {
			return true
		}
	}
	return false
}
