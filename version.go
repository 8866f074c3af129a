// Package scribe provides the version information for scribe-go.
package scribe

// Version is the current version of scribe-go.
const Version = "0.1.0"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}
