package project

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FindRoot walks up from dir to the nearest directory holding a package.json.
func FindRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "package.json")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("package.json not found in any parent directory")
		}
		dir = parent
	}
}

// Filter selects which files under a root are sources.
type Filter struct {
	Include  []string
	Exclude  []string
	SkipDirs []string
	// SkipPaths are absolute directories pruned wherever they sit, such as
	// a build output directory inside the root.
	SkipPaths []string
}

// Match reports whether the slash-separated relative path rel is a source.
func (f Filter) Match(rel string) bool {
	for _, pattern := range f.Exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return false
		}
	}
	for _, pattern := range f.Include {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// SkipDir reports whether a directory with the given base name is pruned.
func (f Filter) SkipDir(name string) bool {
	if isBadName(name) {
		return true
	}
	for _, d := range f.SkipDirs {
		if d == name {
			return true
		}
	}
	return false
}

// InSkipPath reports whether the absolute path lies in one of SkipPaths.
func (f Filter) InSkipPath(path string) bool {
	for _, p := range f.SkipPaths {
		if p != "" && HasFilePathPrefix(path, p) {
			return true
		}
	}
	return false
}

// A WalkError records the path that stopped ListSources.
type WalkError struct {
	Path string
	Err  error
}

func (e *WalkError) Error() string {
	return fmt.Sprintf("walk %s: %v", e.Path, e.Err)
}

func (e *WalkError) Unwrap() error {
	return e.Err
}

// ListSources returns the files under root selected by f, sorted by Path.
func ListSources(root string, f Filter) ([]SourceFile, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	prefix := WithFilePathSeparator(root)
	var files []SourceFile
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return &WalkError{Path: path, Err: err}
		}
		if path == root {
			return nil
		}
		if d.IsDir() {
			if f.SkipDir(d.Name()) || f.InSkipPath(path) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || isBadName(d.Name()) {
			return nil
		}
		rel := filepath.ToSlash(strings.TrimPrefix(path, prefix))
		if !f.Match(rel) {
			return nil
		}
		files = append(files, SourceFile{Path: rel, ID: filepath.ToSlash(path)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// Resolve maps a path given on the command line to a SourceFile under root.
func Resolve(root, path string) (SourceFile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return SourceFile{}, err
	}
	if !HasFilePathPrefix(abs, root) {
		return SourceFile{}, fmt.Errorf("%s is outside project root %s", path, root)
	}
	return SourceFile{
		Path: filepath.ToSlash(TrimFilePathPrefix(abs, root)),
		ID:   filepath.ToSlash(abs),
	}, nil
}
