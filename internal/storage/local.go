package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStore keeps documents under a base directory on disk.
type LocalStore struct {
	baseDir string
}

func NewLocalStore(baseDir string) (*LocalStore, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create document directory: %w", err)
	}
	return &LocalStore{baseDir: abs}, nil
}

func (s *LocalStore) Persist(ctx context.Context, name, _ string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ref := objectKey(time.Now(), name)
	absPath := filepath.Join(s.baseDir, filepath.FromSlash(ref))
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create document directory: %w", err)
	}

	tmp := absPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write document: %w", err)
	}
	if err := os.Rename(tmp, absPath); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to write document: %w", err)
	}
	return ref, nil
}

func (s *LocalStore) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	absPath := filepath.Join(s.baseDir, filepath.FromSlash(ref))
	if !strings.HasPrefix(absPath, s.baseDir+string(filepath.Separator)) {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}
