// Package version holds build information stamped in via -ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Build information. Populated at build time:
//
//	go build -ldflags "-X github.com/jackzampolin/intake/version.GitRelease=v0.2.0 ..."
var (
	GitRelease    = "dev"
	GitCommit     = "unknown"
	GitCommitDate = "unknown"
)

// GoInfo describes the Go toolchain and platform the binary was built with.
var GoInfo = fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
