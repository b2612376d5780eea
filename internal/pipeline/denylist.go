package pipeline

import (
	"path"
	"strings"
)

// deniedExtensions are binary, image, and generated formats that never
// contribute useful context.
var deniedExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true,
	".ico": true, ".webp": true, ".bmp": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true, ".otf": true,
	".mp3": true, ".mp4": true, ".wav": true, ".avi": true, ".mov": true,
	".pdf": true, ".zip": true, ".gz": true, ".tar": true, ".rar": true, ".7z": true,
	".exe": true, ".bin": true, ".so": true, ".dylib": true, ".dll": true,
	".map": true, ".lock": true,
}

// deniedFiles are lockfiles and generated manifests excluded by name.
var deniedFiles = map[string]bool{
	"package-lock.json": true,
	"yarn.lock":         true,
	"pnpm-lock.yaml":    true,
	"Gemfile.lock":      true,
	"go.sum":            true,
	"Cargo.lock":        true,
	"poetry.lock":       true,
	".DS_Store":         true,
}

// deniedDirs are dependency and metadata directories pruned wholesale.
var deniedDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	".svn":         true,
	"dist":         true,
	"build":        true,
	"out":          true,
	"vendor":       true,
	"coverage":     true,
	".next":        true,
	".nuxt":        true,
	"__pycache__":  true,
	".idea":        true,
	".vscode":      true,
}

// PruneCandidates removes paths that can never contribute context: binary
// and generated extensions, lockfiles, minified assets, and anything under
// a dependency or metadata directory.
func PruneCandidates(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if denied(p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func denied(p string) bool {
	base := path.Base(p)
	if deniedFiles[base] {
		return true
	}
	if deniedExtensions[strings.ToLower(path.Ext(base))] {
		return true
	}
	if strings.HasSuffix(base, ".min.js") || strings.HasSuffix(base, ".min.css") {
		return true
	}
	for _, seg := range strings.Split(path.Dir(p), "/") {
		if deniedDirs[seg] {
			return true
		}
	}
	return false
}
