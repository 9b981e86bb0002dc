package versions

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

const unknownStr = "unknown"

// Build metadata, overridden with -ldflags "-X".
var (
	Version = "dev"
	//nolint:goconst // placeholder replaced at link time
	Commit = unknownStr
	//nolint:goconst // placeholder replaced at link time
	BuildDate = unknownStr
)

// VersionInfo describes the running binary
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetVersionInfo returns the version information of the running binary
func GetVersionInfo() VersionInfo {
	info := VersionInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}

	if info.Version == "dev" {
		fillFromBuildInfo(&info)
	}
	return info.normalized()
}

// fillFromBuildInfo uses VCS stamping when the binary was built without ldflags.
func fillFromBuildInfo(info *VersionInfo) {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			if info.Commit == unknownStr {
				info.Commit = setting.Value
			}
		case "vcs.time":
			if info.BuildDate == unknownStr {
				info.BuildDate = setting.Value
			}
		}
	}
}

func (v VersionInfo) normalized() VersionInfo {
	if v.BuildDate != unknownStr {
		if t, err := time.Parse(time.RFC3339, v.BuildDate); err == nil {
			v.BuildDate = t.UTC().Format("2006-01-02 15:04:05 MST")
		}
	}
	if v.Version == "dev" {
		v.Version = fmt.Sprintf("build-%.8s", v.Commit)
	}
	return v
}
