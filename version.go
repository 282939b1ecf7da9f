package taprootthreshold

import (
	"fmt"
	"runtime/debug"
	"strings"
)

var (
	// Commit is the tag and commit description of this build. It is set
	// through -ldflags at compile time.
	Commit string

	// CommitHash is the VCS revision the binary was built from, as
	// reported by the Go toolchain.
	CommitHash string

	// GoVersion is the version of Go the binary was built with.
	GoVersion string
)

// semverAlphabet is the set of characters allowed in the pre-release fields
// of a semantic version.
const semverAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz-"

// The application version, following semantic versioning 2.0.0.
const (
	// AppMajor is the major version.
	AppMajor uint = 0

	// AppMinor is the minor version.
	AppMinor uint = 1

	// AppPatch is the patch version.
	AppPatch uint = 0

	// AppStatus is the release status, such as alpha or beta.
	AppStatus = "alpha"

	// AppPreRelease is an optional pre-release identifier.
	AppPreRelease = ""
)

func init() {
	for _, field := range []string{AppStatus, AppPreRelease} {
		if strings.Trim(field, semverAlphabet) != "" {
			panic(fmt.Sprintf("version field %q contains characters "+
				"outside of %q", field, semverAlphabet))
		}
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	GoVersion = info.GoVersion
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			CommitHash = setting.Value
		}
	}
}

// Version returns the semantic version of the application followed by the
// commit it was built from.
func Version() string {
	return fmt.Sprintf("%s commit=%s", SemanticVersion(), Commit)
}

// SemanticVersion returns major.minor.patch with the release status and
// pre-release identifier appended, if set.
func SemanticVersion() string {
	version := fmt.Sprintf("%d.%d.%d", AppMajor, AppMinor, AppPatch)

	var suffix []string
	if AppStatus != "" {
		suffix = append(suffix, AppStatus)
	}
	if AppPreRelease != "" {
		suffix = append(suffix, AppPreRelease)
	}
	if len(suffix) == 0 {
		return version
	}

	return version + "-" + strings.Join(suffix, ".")
}
