package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/vkozyrev/backupd/internal/common"
	"github.com/vkozyrev/backupd/internal/filex"
)

// LocalStore keeps blobs on the local filesystem, one subdirectory per user
// under the configured root.
type LocalStore struct {
	root string
}

// NewLocalStore creates the root directory if needed and returns a store
// backed by it.
func NewLocalStore(root string) (*LocalStore, error) {
	if err := filex.EnsureDir(root); err != nil {
		return nil, err
	}
	return &LocalStore{root: root}, nil
}

// blobPath resolves a user/filename pair to a path under the store root,
// rejecting names that would escape the user's directory.
func (s *LocalStore) blobPath(userID, filename string) (string, error) {
	if strings.Contains(filename, "/") || strings.Contains(filename, "\\") ||
		filename == "" || filename == "." || filename == ".." {
		return "", fmt.Errorf("invalid filename %q", filename)
	}
	return filepath.Join(s.root, userID, filename), nil
}

func (s *LocalStore) Put(ctx context.Context, userID, filename string, data []byte) error {
	path, err := s.blobPath(userID, filename)
	if err != nil {
		return err
	}
	if _, err := filex.EnsureSubDir(s.root, userID); err != nil {
		return err
	}

	// Write to a temp file first so a crashed write never leaves a
	// half-written blob under the final name.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename blob: %w", err)
	}
	return nil
}

func (s *LocalStore) Get(ctx context.Context, userID, filename string) ([]byte, error) {
	path, err := s.blobPath(userID, filename)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return data, nil
}

func (s *LocalStore) Stat(ctx context.Context, userID, filename string) (*BlobInfo, error) {
	path, err := s.blobPath(userID, filename)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("stat blob: %w", err)
	}
	return &BlobInfo{Name: filename, Size: info.Size(), ModTime: info.ModTime()}, nil
}

func (s *LocalStore) Delete(ctx context.Context, userID, filename string) error {
	path, err := s.blobPath(userID, filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

func (s *LocalStore) List(ctx context.Context, userID string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, userID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list blobs: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".upload-") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// Users lists the per-user subdirectories of the store root.
func (s *LocalStore) Users(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}
