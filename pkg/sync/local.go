package sync

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/cargo-remote/pkg/errors"
	"github.com/sidkik/cargo-remote/pkg/transfer"
)

// Mocked out for unit testing.
var homedirExpand = homedir.Expand

// Local carries out transfer plans by copying files on this machine. The
// host of each endpoint is ignored.
type Local struct{}

// Sync makes the plan's destination match its source.
func (Local) Sync(plan transfer.Plan) error {
	src, err := expandPath(plan.Source.Path)
	if err != nil {
		return errors.WithContext(err, "expand source")
	}

	dst, err := expandPath(plan.Destination.Path)
	if err != nil {
		return errors.WithContext(err, "expand destination")
	}

	srcInfo, err := fs.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.FileNotFound{Path: src}
		}
		return errors.WithContext(err, "stat source")
	}

	var result Result
	switch {
	case !srcInfo.IsDir():
		if strings.HasSuffix(dst, "/") {
			dst = filepath.Join(dst, filepath.Base(src))
		}
		attrs := FileAttributes{Mode: srcInfo.Mode(), ModTime: srcInfo.ModTime()}
		if err := copyFile(src, dst, attrs); err != nil {
			return errors.WithContext(err, "copy file")
		}
		result.Copied = 1
	default:
		if !strings.HasSuffix(src, "/") {
			dst = filepath.Join(dst, filepath.Base(src))
		}
		result, err = mirrorDir(src, dst, plan.Excludes, plan.Mirror)
		if err != nil {
			return err
		}
	}

	log.WithFields(log.Fields{
		"source":      src,
		"destination": dst,
		"copied":      result.Copied,
		"removed":     result.Removed,
	}).Debug("Synced files")
	return nil
}

// expandPath expands a leading tilde and keeps any trailing slash, which
// homedir.Expand drops.
func expandPath(path string) (string, error) {
	expanded, err := homedirExpand(path)
	if err != nil {
		return "", err
	}
	if strings.HasSuffix(path, "/") && !strings.HasSuffix(expanded, "/") {
		expanded += "/"
	}
	return expanded, nil
}
