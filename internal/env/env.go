// Package env resolves teip's environment-variable configuration
// (TEIP_HIGHLIGHT, TEIP_GREP_PATH, TEIP_SED_PATH, TEIP_AWK_PATH) with
// defaults, the same inline flag-with-fallback style the teacher repo
// uses for its own CLI defaults, applied here to env vars instead.
package env

import (
	"os"

	"github.com/fatih/color"
)

// defaultHighlight renders a cyan-bracketed, bold-red span, matching
// original teip's ANSI default before TEIP_HIGHLIGHT is customized.
func defaultHighlight() string {
	bracket := color.New(color.FgCyan).SprintFunc()
	content := color.New(color.FgRed, color.Bold).SprintFunc()
	return bracket("[") + content("{}") + bracket("]")
}

// Highlight returns the TEIP_HIGHLIGHT format string, or the built-in
// default when unset.
func Highlight() string {
	if v, ok := os.LookupEnv("TEIP_HIGHLIGHT"); ok {
		return v
	}
	return defaultHighlight()
}

// GrepPath returns the command used by the -A/-B/-C convenience
// aliases, honoring TEIP_GREP_PATH.
func GrepPath() string { return lookupOr("TEIP_GREP_PATH", "grep") }

// SedPath returns the command used by the --sed convenience alias,
// honoring TEIP_SED_PATH.
func SedPath() string { return lookupOr("TEIP_SED_PATH", "sed") }

// AwkPath returns the command used by the --awk convenience alias,
// honoring TEIP_AWK_PATH.
func AwkPath() string { return lookupOr("TEIP_AWK_PATH", "awk") }

func lookupOr(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return fallback
}
