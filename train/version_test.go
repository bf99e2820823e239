package train

import (
	"fmt"
	"testing"

	"golang.org/x/mod/semver"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo()

	if info.Version != Version {
		t.Errorf("Version = %q, want %q", info.Version, Version)
	}
	if want := fmt.Sprintf("%d.%d.%d", VersionMajor, VersionMinor, VersionPatch); Version != want {
		t.Errorf("Version %q does not match components %q", Version, want)
	}
	if !semver.IsValid(info.CheckpointFormat) {
		t.Errorf("CheckpointFormat %q is not semver", info.CheckpointFormat)
	}
	if info.GoVersion == "" || info.Algorithm == "" {
		t.Errorf("incomplete info: %+v", info)
	}
}
