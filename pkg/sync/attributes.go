package sync

import (
	"crypto/sha512"
	"encoding/base64"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/sidkik/cargo-remote/pkg/errors"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

// FileAttributes contains some metadata used to compare whether two files are
// equal.
type FileAttributes struct {
	// ContentsHash is the sha512 hash of the contents of the file. It's empty
	// for directories.
	ContentsHash string

	// Mode is the file mode of the file.
	Mode os.FileMode

	// ModTime is the time of the last file modification.
	ModTime time.Time
}

// Equal returns whether two files are equal (i.e. whether a sync is necessary).
func (f FileAttributes) Equal(otherFile FileAttributes) bool {
	if f.Mode.IsDir() || otherFile.Mode.IsDir() {
		return f.Mode.IsDir() == otherFile.Mode.IsDir()
	}
	return f.ContentsHash == otherFile.ContentsHash &&
		f.Mode == otherFile.Mode &&
		f.ModTime.Equal(otherFile.ModTime)
}

// HashFile returns the sha512 hash of the file at the given path.
func HashFile(path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", errors.WithContext(err, "open")
	}
	defer f.Close()

	hasher := sha512.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", errors.WithContext(err, "read")
	}

	return base64.StdEncoding.EncodeToString(hasher.Sum(nil)), nil
}

// Excluded returns whether any component of the slash-separated relative
// path `path` matches one of `patterns`.
func Excluded(path string, patterns []string) bool {
	for _, component := range strings.Split(path, "/") {
		for _, pattern := range patterns {
			if ok, _ := filepath.Match(pattern, component); ok {
				return true
			}
		}
	}
	return false
}
