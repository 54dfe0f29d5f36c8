package utils

import (
	"io"
	"os"
	"path/filepath"
)

// BlobStore stores bot code artifacts and per-match game logs by key.
type BlobStore interface {
	Upload(key string, r io.Reader, contentType string) error
	Download(key string, destPath string) error
}

// DiskStore keeps blobs under a local directory. Used for development
// and tests; production uses R2Store.
type DiskStore struct {
	Root string
}

func NewDiskStore(root string) *DiskStore {
	return &DiskStore{Root: root}
}

func (s *DiskStore) Upload(key string, r io.Reader, contentType string) error {
	destPath := filepath.Join(s.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(destPath), os.ModePerm); err != nil {
		return err
	}
	dst, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, r)
	return err
}

func (s *DiskStore) Download(key string, destPath string) error {
	src, err := os.Open(filepath.Join(s.Root, filepath.FromSlash(key)))
	if err != nil {
		return err
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), os.ModePerm); err != nil {
		return err
	}
	dst, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}
