// Package discover finds the source files an audit run inspects.
package discover

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"
)

// ErrRootNotFound is returned when the audit root does not exist.
var ErrRootNotFound = errors.New("root not found")

// FileEntry represents a discovered source file.
type FileEntry struct {
	Path string // Relative to audit root
}

// Options controls which files are selected.
type Options struct {
	// Extensions lists accepted file extensions, including the dot.
	Extensions []string
	// Exclude holds gitignore-style patterns matched against root-relative paths.
	Exclude []string
	// RespectGitignore skips files ignored by git (or by root/.gitignore
	// when root is not a git checkout).
	RespectGitignore bool
	// Prune skips VCS, virtualenv and cache directories, hidden files and
	// directories, and symlinked files.
	Prune bool
}

var skipDirs = map[string]struct{}{
	"__pycache__":   {},
	"node_modules":  {},
	".git":          {},
	".hg":           {},
	".svn":          {},
	"venv":          {},
	".venv":         {},
	"env":           {},
	".env":          {},
	".tox":          {},
	".mypy_cache":   {},
	".ruff_cache":   {},
	".pytest_cache": {},
}

// Files discovers auditable source files under root, sorted by path.
// Files whose name starts with "_" are private modules and never returned.
// Symlinked files are followed unless opts.Prune is set; symlinked
// directories are never descended into.
func Files(root string, opts Options) ([]FileEntry, error) {
	info, err := os.Stat(root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrRootNotFound, root)
	}
	if err != nil {
		return nil, fmt.Errorf("root path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", root)
	}

	exts := make(map[string]struct{}, len(opts.Extensions))
	for _, e := range opts.Extensions {
		exts[e] = struct{}{}
	}

	var excl *ignore.GitIgnore
	if len(opts.Exclude) > 0 {
		excl = ignore.CompileIgnoreLines(opts.Exclude...)
	}

	var gitFiles map[string]struct{}
	var gi *ignore.GitIgnore
	if opts.RespectGitignore {
		gitFiles = gitLsFiles(root)
		if gitFiles == nil {
			gi = loadGitignore(root)
		}
	}

	var results []FileEntry

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}

		name := d.Name()

		if d.IsDir() {
			if path == root || !opts.Prune {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, "_") {
			return nil
		}
		if opts.Prune && strings.HasPrefix(name, ".") {
			return nil
		}

		if d.Type()&os.ModeSymlink != 0 {
			if opts.Prune {
				return nil
			}
			if target, err := os.Stat(path); err != nil || !target.Mode().IsRegular() {
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}

		if _, ok := exts[filepath.Ext(name)]; !ok {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		slashRel := filepath.ToSlash(rel)

		if excl != nil && excl.MatchesPath(slashRel) {
			return nil
		}
		if gitFiles != nil {
			if _, ok := gitFiles[slashRel]; !ok {
				return nil
			}
		} else if gi != nil && gi.MatchesPath(slashRel) {
			return nil
		}

		results = append(results, FileEntry{Path: rel})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})

	return results, nil
}

// All yields the discovered paths in order. The sequence can be ranged over
// any number of times.
func All(entries []FileEntry) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, e := range entries {
			if !yield(e.Path) {
				return
			}
		}
	}
}

func gitLsFiles(root string) map[string]struct{} {
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	files := make(map[string]struct{})
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			files[line] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}
