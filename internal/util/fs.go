package util

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDir creates path and any missing parents.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	return nil
}

// SafeJoin joins a stored filename onto root, stripping any directory
// components so a crafted name cannot escape the documents directory.
func SafeJoin(root, name string) string {
	return filepath.Join(root, filepath.Base(name))
}
