// Package version reports rwconn build information.
package version

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	json "github.com/goccy/go-json"
)

// Build metadata, overridden with -ldflags "-X". Empty values are filled from
// the module build info when the binary was built with go install or from a
// VCS checkout.
var (
	Version   = ""
	BuildDate = ""
	GitCommit = ""
)

const unknown = "unknown"

// Info describes the running rwconn binary.
type Info struct {
	Version   string `json:"version"`
	BuildDate string `json:"build_date"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Modified  bool   `json:"modified,omitempty"`
}

// Get returns the build information for the running binary.
func Get() Info {
	bi, _ := debug.ReadBuildInfo()
	return fromBuildInfo(bi)
}

func fromBuildInfo(bi *debug.BuildInfo) Info {
	info := Info{
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
	if bi != nil {
		if info.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.GitCommit == "" {
					info.GitCommit = s.Value
				}
			case "vcs.time":
				if info.BuildDate == "" {
					info.BuildDate = s.Value
				}
			case "vcs.modified":
				info.Modified = s.Value == "true"
			}
		}
	}
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.BuildDate == "" {
		info.BuildDate = unknown
	}
	if info.GitCommit == "" {
		info.GitCommit = unknown
	}
	return info
}

// ShortCommit returns the first 12 characters of the commit hash.
func (i Info) ShortCommit() string {
	if len(i.GitCommit) > 12 {
		return i.GitCommit[:12]
	}
	return i.GitCommit
}

// String returns a one line version string.
func (i Info) String() string {
	return fmt.Sprintf("rwconn %s (%s %s)", i.Version, i.Platform, i.GoVersion)
}

// FullString returns the multi-line form printed by `rwconn version`.
func (i Info) FullString() string {
	commit := i.ShortCommit()
	if i.Modified {
		commit += "-dirty"
	}
	return fmt.Sprintf(`rwconn %s
Build Date: %s
Git Commit: %s
Platform:   %s
Go Version: %s`, i.Version, i.BuildDate, commit, i.Platform, i.GoVersion)
}

// WriteJSON writes i to w as an indented JSON object.
func (i Info) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(i)
}
