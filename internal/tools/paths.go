package tools

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ignoredDirs are version-control and tooling artifact names hidden from
// list_dir and skipped by search_code, whether directory or file.
var ignoredDirs = map[string]bool{
	".git":          true,
	".svn":          true,
	".hg":           true,
	"__pycache__":   true,
	".mypy_cache":   true,
	".pytest_cache": true,
	".venv":         true,
	"venv":          true,
	"node_modules":  true,
}

func isIgnoredDir(name string) bool {
	return ignoredDirs[name]
}

// canonicalRoot returns the absolute, symlink-free form of root and checks
// that it is a directory.
func canonicalRoot(root string) (string, error) {
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving project root %s: %w", root, err)
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolving project root %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("project root %s: %w", root, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project root %s: %w: not a directory", root, ErrWrongEntryType)
	}
	return abs, nil
}

// resolve maps a tool-supplied path to an absolute path inside the sandbox.
// Relative paths are joined with the root; absolute paths are taken as-is.
// Symlinks along the existing part of the path are followed before the
// containment check, so a link pointing outside the root is rejected too.
func (e *Executor) resolve(p string) (string, error) {
	candidate := strings.TrimSpace(p)
	if candidate == "" {
		candidate = "."
	}
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(e.root, candidate)
	}
	resolved, err := evalExisting(filepath.Clean(candidate))
	if err != nil {
		return "", err
	}
	if !within(e.root, resolved) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, p)
	}
	return resolved, nil
}

// within reports whether path equals root or lies below it. The separator
// check keeps "/srv/app-other" from matching root "/srv/app".
func within(root, path string) bool {
	if path == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}

// evalExisting resolves symlinks in the longest existing prefix of path and
// re-attaches the components that do not exist yet.
func evalExisting(path string) (string, error) {
	var missing []string
	current := path
	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			for i := len(missing) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, missing[i])
			}
			return resolved, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("resolving %s: %w", path, err)
		}
		parent := filepath.Dir(current)
		if parent == current {
			return path, nil
		}
		missing = append(missing, filepath.Base(current))
		current = parent
	}
}

// rel returns abs relative to the root with forward slashes.
func (e *Executor) rel(abs string) string {
	r, err := filepath.Rel(e.root, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(r)
}
