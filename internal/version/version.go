// Package version holds build metadata for the ember CLI.
// The variables can be overridden at build time via -ldflags.
package version

import "github.com/fatih/color"

var (
	versionMajorColor = color.New(color.FgYellow, color.Bold)
	versionMinorColor = color.New(color.FgGreen, color.Bold)
	versionPatchColor = color.New(color.FgBlue, color.Bold)

	// Major, Minor and Patch form the semantic version.
	Major = "0"
	Minor = "3"
	Patch = "0"

	// Suffix is appended after the patch number, e.g. "-dev".
	Suffix = "-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// GitMessage is an optional git commit message.
	GitMessage = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

// Plain returns the version without color.
func Plain() string {
	return Major + "." + Minor + "." + Patch + Suffix
}

// Colored returns the version with each component highlighted.
// Color is dropped when fatih/color detects a non-terminal.
func Colored() string {
	return versionMajorColor.Sprint(Major) + "." + versionMinorColor.Sprint(Minor) + "." + versionPatchColor.Sprint(Patch) + Suffix
}
