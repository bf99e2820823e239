package train

import (
	"runtime"

	"github.com/kolkov/phasetrain/internal/train/checkpoint"
)

// Version information for phasetrain.
const (
	// Version is the current release.
	Version = "0.3.0"

	// VersionMajor is the major version number.
	VersionMajor = 0

	// VersionMinor is the minor version number.
	VersionMinor = 3

	// VersionPatch is the patch version number.
	VersionPatch = 0
)

// Info describes the running build.
type Info struct {
	// Version is the release string.
	Version string

	// Algorithm names the training scheme.
	Algorithm string

	// CheckpointFormat is the envelope format checkpoints are written in.
	CheckpointFormat string

	// GoVersion is the toolchain the binary was built with.
	GoVersion string
}

// GetInfo returns information about this build.
func GetInfo() Info {
	return Info{
		Version:          Version,
		Algorithm:        "per-record synchronized Kaczmarz (KAN addends)",
		CheckpointFormat: checkpoint.Format,
		GoVersion:        runtime.Version(),
	}
}
