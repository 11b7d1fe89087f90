// Package dbwizard provides the connection-string synthesis core of the
// model wizard's database configuration page.
package dbwizard

const (
	// Version represents the current module version
	Version = "v0.1.0"

	// APIVersion represents the host API compatibility version
	APIVersion = "v1"

	// ProtocolVersion represents the plugin protocol version
	ProtocolVersion = 1
)

// Info describes the running build to an IDE host.
type Info struct {
	Version         string `json:"version"`
	APIVersion      string `json:"api_version"`
	ProtocolVersion int    `json:"protocol_version"`
}

// GetInfo returns information about the current build
func GetInfo() *Info {
	return &Info{
		Version:         Version,
		APIVersion:      APIVersion,
		ProtocolVersion: ProtocolVersion,
	}
}
