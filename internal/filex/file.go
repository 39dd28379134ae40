// Package filex contains small filesystem helpers shared by the server
// storage layer and the client.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDir creates dir (and any missing parents) if it does not exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}

// EnsureSubDir creates (if needed) and returns the path of a subdirectory
// of parent.
func EnsureSubDir(parent, name string) (string, error) {
	dir := filepath.Join(parent, name)
	if err := EnsureDir(dir); err != nil {
		return "", err
	}
	return dir, nil
}
