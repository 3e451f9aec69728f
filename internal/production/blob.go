package production

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrBlobNotFound indicates no object is stored at the path.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore keeps production packs.
type BlobStore interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// LocalBlobStore stores objects as files under Dir.
type LocalBlobStore struct {
	Dir string
}

// NewLocalBlobStore creates dir if needed.
func NewLocalBlobStore(dir string) (*LocalBlobStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("blob store: dir is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("blob store: create dir: %w", err)
	}
	return &LocalBlobStore{Dir: dir}, nil
}

// Put writes data at path, replacing any previous object. The write goes
// through a temp file so readers never see a partial pack.
func (s *LocalBlobStore) Put(ctx context.Context, path string, data []byte, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return fmt.Errorf("blob store: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return fmt.Errorf("blob store: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("blob store: write: %w", err)
	}
	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("blob store: close: %w", err)
	}
	if err = os.Rename(tmpName, full); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("blob store: rename: %w", err)
	}
	return nil
}

// Open returns a reader for the object at path.
func (s *LocalBlobStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("blob store: open: %w", err)
	}
	return f, nil
}

// resolve maps an object path into Dir, rejecting paths that escape it.
func (s *LocalBlobStore) resolve(path string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(path))
	if clean == string(filepath.Separator) {
		return "", fmt.Errorf("blob store: invalid path %q", path)
	}
	return filepath.Join(s.Dir, clean), nil
}
