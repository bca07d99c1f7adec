package main

import (
	"runtime/debug"
	"testing"
)

func TestVersionFrom(t *testing.T) {
	vcs := &debug.BuildInfo{
		Main: debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.modified", Value: "true"},
		},
	}

	cases := []struct {
		name     string
		injected string
		info     *debug.BuildInfo
		want     string
	}{
		{"ldflags wins", "v1.2.3", vcs, "v1.2.3"},
		{"no build info", "dev", nil, "dev"},
		{"module version from go install", "dev",
			&debug.BuildInfo{Main: debug.Module{Version: "v0.9.0"}}, "v0.9.0"},
		{"vcs revision truncated and marked dirty", "dev", vcs,
			"devel+0123456789ab+dirty"},
		{"devel without vcs stamps", "dev",
			&debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, "dev"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := versionFrom(tc.injected, tc.info); got != tc.want {
				t.Errorf("versionFrom(%q) = %q, want %q", tc.injected, got, tc.want)
			}
		})
	}
}
