// Package orderflow provides the version information for orderflow.
package orderflow

// Version is the current version of orderflow.
const Version = "0.1.0"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}
