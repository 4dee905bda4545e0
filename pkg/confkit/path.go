package confkit

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// maxWalkDepth bounds how many parent directories are inspected.
const maxWalkDepth = 8

// ProjectRoot locates the directory that holds go.mod or .git. The working
// directory is searched first so installed binaries find their etc/ folder;
// the source tree of this package is the fallback for tests and go run.
func ProjectRoot() (string, error) {
	wd, wdErr := os.Getwd()
	if wdErr == nil {
		if root, ok := findRoot(wd); ok {
			return root, nil
		}
	}
	if _, file, _, ok := runtime.Caller(0); ok {
		if root, ok := findRoot(filepath.Dir(file)); ok {
			return root, nil
		}
	}
	if wdErr != nil {
		return ".", fmt.Errorf("getwd: %w", wdErr)
	}
	return wd, nil
}

// MustProjectRoot returns the repository root path or panics on failure.
func MustProjectRoot() string {
	root, err := ProjectRoot()
	if err != nil {
		panic(err)
	}
	return root
}

// ProjectPath joins the repository root with rel.
func ProjectPath(rel string) (string, error) {
	root, err := ProjectRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, rel), nil
}

// MustProjectPath returns ProjectPath(rel) and panics on failure.
func MustProjectPath(rel string) string {
	p, err := ProjectPath(rel)
	if err != nil {
		panic(err)
	}
	return p
}

func findRoot(start string) (string, bool) {
	var root string
	walkUp(start, func(dir string) bool {
		if isRoot(dir) {
			root = dir
			return true
		}
		return false
	})
	return root, root != ""
}

// walkUp calls visit for start and its parents until visit returns true,
// the filesystem root is reached or maxWalkDepth directories were seen.
func walkUp(start string, visit func(dir string) bool) {
	dir := start
	for i := 0; i < maxWalkDepth; i++ {
		if visit(dir) {
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

func isRoot(dir string) bool {
	return fileExists(filepath.Join(dir, "go.mod")) || fileExists(filepath.Join(dir, ".git"))
}

func fileExists(p string) bool {
	if p == "" {
		return false
	}
	_, err := os.Stat(p)
	return err == nil
}
