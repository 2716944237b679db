package version

import "runtime/debug"

// EmptyValue is the value of Version when it isn't set at link time with
// `-ldflags "-X github.com/sidkik/cargo-remote/pkg/version.Version=..."`.
const EmptyValue = "set-by-make"

// Version is the latest tag on git for releases. On non-release commits, it may
// include additional information such as the most recent commit hash.
var Version = EmptyValue

// Mocked for unit testing.
var readBuildInfo = debug.ReadBuildInfo

// Get returns Version, falling back to the module version recorded by
// `go install` when it wasn't set at link time.
func Get() string {
	if Version != EmptyValue {
		return Version
	}

	if info, ok := readBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}
