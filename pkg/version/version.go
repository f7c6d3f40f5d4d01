// Package version carries build identity injected at link time.
package version

// Populated via -ldflags at release build; defaults identify a dev build.
var (
	// Version is the semantic version of the binary.
	Version = "dev"

	// Commit is the VCS revision the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)
