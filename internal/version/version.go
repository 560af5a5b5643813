package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"time"
)

// Set at build time:
//
//	go build -ldflags="-X github.com/muurk/brewlink/internal/version.Version=v0.3.0 \
//	                   -X github.com/muurk/brewlink/internal/version.Commit=abc1234"
//
// Unset values are filled from the module's VCS build info, then from "dev".
var (
	Version = ""
	Commit  = ""
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Modified  bool   `json:"modified"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

var (
	once sync.Once
	info Info
)

// Get returns the version info, resolving it on first use.
func Get() Info {
	once.Do(func() {
		info = resolve(Version, Commit, readSettings())
	})
	return info
}

func readSettings() map[string]string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}
	settings := make(map[string]string, len(bi.Settings))
	for _, s := range bi.Settings {
		settings[s.Key] = s.Value
	}
	return settings
}

// resolve fills unset version fields from VCS build settings.
func resolve(version, commit string, vcs map[string]string) Info {
	i := Info{
		Version:   version,
		Commit:    commit,
		Modified:  vcs["vcs.modified"] == "true",
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	if i.Commit == "" {
		i.Commit = vcs["vcs.revision"]
		if len(i.Commit) > 7 {
			i.Commit = i.Commit[:7]
		}
	}
	if i.Commit == "" {
		i.Commit = "unknown"
	}

	// Build info carries no tags, so the best we have is the commit date
	if i.Version == "" {
		if t, err := time.Parse(time.RFC3339, vcs["vcs.time"]); err == nil {
			i.Version = "dev-" + t.Format("20060102")
		} else {
			i.Version = "dev"
		}
	}
	return i
}

// String returns "v0.3.0 (commit: abc1234)", with "-dirty" for a modified
// tree.
func (i Info) String() string {
	commit := i.Commit
	if i.Modified {
		commit += "-dirty"
	}
	return fmt.Sprintf("%s (commit: %s)", i.Version, commit)
}

// Full returns the full version string including commit
func Full() string {
	return Get().String()
}
