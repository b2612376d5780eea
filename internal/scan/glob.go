package scan

import (
	"regexp"
	"strings"
)

// GlobToRegexp translates a glob-like include/exclude pattern into an
// anchored, case-insensitive matcher. Regex metacharacters are escaped and
// `*` maps to `.*`; no other glob syntax is supported.
func GlobToRegexp(glob string) (*regexp.Regexp, error) {
	escaped := regexp.QuoteMeta(glob)
	translated := strings.ReplaceAll(escaped, `\*`, `.*`)
	return regexp.Compile(`(?i)^` + translated + `$`)
}

// compilePatterns translates each glob, skipping ones that fail to compile.
// A bad pattern is a per-item failure, never fatal for the scan.
func compilePatterns(globs []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(globs))
	for _, g := range globs {
		re, err := GlobToRegexp(g)
		if err != nil {
			continue
		}
		out = append(out, re)
	}
	return out
}
