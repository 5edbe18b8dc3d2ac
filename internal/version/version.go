package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is set via ldflags during build:
	// go build -ldflags "-X github.com/r9s-ai/fetch-resolver/internal/version.Version=v0.1.0"
	Version = "dev"

	// Set via: -X github.com/r9s-ai/fetch-resolver/internal/version.Commit=abc123
	Commit = "unknown"

	// BuildDate is RFC3339, e.g. 2026-01-29T11:24:55Z.
	BuildDate = "unknown"
)

type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

func (i Info) String() string {
	return fmt.Sprintf(
		"fetch-resolver %s\ncommit: %s\nbuilt at: %s\ngo version: %s\nplatform: %s",
		i.Version,
		i.Commit,
		i.BuildDate,
		i.GoVersion,
		i.Platform,
	)
}
