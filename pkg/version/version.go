// Package version carries build identification for the daemon and its
// tools, and the control-protocol version clients can check.
package version

import "fmt"

// Protocol is the control-protocol version served on the socket.
// Clients with the same major version interoperate.
const Protocol = "1.0"

// Set at build time via -ldflags "-X .../pkg/version.Version=...".
var (
	// Version is the release version, or "dev" for local builds.
	Version = "dev"

	// Commit is the VCS revision the binary was built from.
	Commit = "unknown"
)

// String returns the human-readable build identification.
func String() string {
	return fmt.Sprintf("%s (%s, protocol %s)", Version, Commit, Protocol)
}
