package remote

import (
	"github.com/spf13/pflag"
)

// copyBackValue is the value of the `--copy-back` flag. The flag can be
// passed without a value to retrieve the entire build output directory, or
// with a path relative to it to only retrieve one file.
type copyBackValue struct {
	enabled *bool
	file    *string
}

var _ pflag.Value = copyBackValue{}

// wholeTargetDir is the value of `--copy-back` when it's passed without a
// path.
const wholeTargetDir = "."

func (v copyBackValue) String() string {
	if v.enabled == nil || !*v.enabled {
		return ""
	}
	if *v.file == "" {
		return wholeTargetDir
	}
	return *v.file
}

func (v copyBackValue) Set(s string) error {
	*v.enabled = true
	if s == wholeTargetDir {
		s = ""
	}
	*v.file = s
	return nil
}

func (v copyBackValue) Type() string {
	return "path"
}
