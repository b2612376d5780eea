package collab

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"askrepo/internal/cache"
)

// LocalTreeFetcher serves file contents from a directory on disk. It lets
// the CLI exercise the full pipeline against a local checkout without any
// remote provider configured.
type LocalTreeFetcher struct {
	Root string

	// MaxFileBytes bounds a single file read; larger files are reported
	// as not found. Zero means 1MB.
	MaxFileBytes int64
}

// FetchContents reads each path relative to Root. Missing or oversized
// files come back with Found=false.
func (f *LocalTreeFetcher) FetchContents(ctx context.Context, scope cache.Scope, paths []string) ([]FileContent, error) {
	maxBytes := f.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}

	out := make([]FileContent, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		full := filepath.Join(f.Root, filepath.FromSlash(path))
		info, err := os.Stat(full)
		if err != nil || info.IsDir() || info.Size() > maxBytes {
			out = append(out, FileContent{Path: path, Found: false})
			continue
		}
		data, err := os.ReadFile(full)
		if err != nil {
			out = append(out, FileContent{Path: path, Found: false})
			continue
		}
		out = append(out, FileContent{Path: path, Content: string(data), Found: true})
	}
	return out, nil
}

// ListTree walks Root and returns slash-separated relative file paths,
// skipping VCS and dependency directories.
func (f *LocalTreeFetcher) ListTree() ([]string, error) {
	skipDirs := map[string]bool{
		".git":         true,
		"node_modules": true,
		"vendor":       true,
		"dist":         true,
		"build":        true,
	}

	var paths []string
	err := filepath.WalkDir(f.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if d.IsDir() {
			if skipDirs[d.Name()] || strings.HasPrefix(d.Name(), ".") && path != f.Root {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(f.Root, path)
		if err != nil {
			return nil
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}
