package supervisor

import (
	"errors"
	"os"
	"path/filepath"
)

// ErrNotFound is wrapped by the LaunchError FindExecutable returns when no
// candidate exists.
var ErrNotFound = errors.New("hand server executable not found")

// DefaultSearchPaths lists where the server binary usually lives: the build
// tree, then next to the running executable.
func DefaultSearchPaths() []string {
	paths := []string{filepath.Join("build", "grasp", "grasp")}
	if exe, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(exe), "grasp"))
	}
	return paths
}

// FindExecutable returns the absolute path of override when set, otherwise
// of the first entry in search that exists.
func FindExecutable(override string, search []string) (string, error) {
	if override != "" {
		if _, err := os.Stat(override); err != nil {
			return "", &LaunchError{Path: override, Err: err}
		}
		return filepath.Abs(override)
	}

	for _, path := range search {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		return filepath.Abs(path)
	}
	return "", &LaunchError{Err: ErrNotFound}
}
