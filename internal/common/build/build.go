// Package build holds version information injected at link time, e.g.
// -ldflags "-X github.com/cqnkjsx/htcondor/internal/common/build.ReleaseVersion=v1.2.0".
package build

import "runtime"

var (
	ReleaseVersion = "UNKNOWN_VERSION"
	GitCommit      = "UNKNOWN_GIT_COMMIT"
	BuildTime      = "UNKNOWN_BUILD_TIME"
	GoVersion      = runtime.Version()
)
