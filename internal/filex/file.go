// Package filex contains small filesystem helpers shared by client components.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDir makes sure dir exists, creating parents as needed, and returns
// its absolute path. Relative paths are resolved against the working
// directory. The directory is created with owner-only permissions since it
// may hold session credentials.
func EnsureDir(dir string) (string, error) {
	abs := dir
	if !filepath.IsAbs(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		abs = filepath.Join(cwd, dir)
	}

	if err := os.MkdirAll(abs, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}

	return abs, nil
}
