package main

import (
	"runtime/debug"

	"github.com/specdriven/sdd/cmd"
)

// Version is overridden by -ldflags "-X main.Version=..." on release builds.
var Version = "dev"

func resolveVersion() string {
	info, _ := debug.ReadBuildInfo()
	return versionFrom(Version, info)
}

// versionFrom falls back from the linker-injected version to whatever the
// Go build info can tell us about this binary.
func versionFrom(injected string, info *debug.BuildInfo) string {
	if injected != "" && injected != "dev" {
		return injected
	}
	if info == nil {
		return injected
	}

	// `go install module@vX.Y.Z` stamps the module version directly.
	if mv := info.Main.Version; mv != "" && mv != "(devel)" {
		return mv
	}

	settings := make(map[string]string, len(info.Settings))
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}
	rev := settings["vcs.revision"]
	if rev == "" {
		return injected
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	v := "devel+" + rev
	if settings["vcs.modified"] == "true" {
		v += "+dirty"
	}
	return v
}

func main() {
	cmd.SetVersion(resolveVersion())
	cmd.Execute()
}
