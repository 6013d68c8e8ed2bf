package main

import (
	_ "embed"
	"runtime/debug"
	"strings"
)

//go:embed VERSION
var embeddedVersion string

// Version reports the restcat release. Tagged installs report the module
// version; source builds report VERSION plus the commit they were built from.
func Version() string {
	info, _ := debug.ReadBuildInfo()
	return versionFrom(strings.TrimSpace(embeddedVersion), info)
}

// versionFrom renders "<release>-dev+<commit>[.dirty]" for source builds.
func versionFrom(release string, info *debug.BuildInfo) string {
	if info == nil {
		return release
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}

	var commit string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			commit = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if len(commit) < 7 {
		return release + "-dev"
	}
	v := release + "-dev+" + commit[:7]
	if dirty {
		v += ".dirty"
	}
	return v
}
