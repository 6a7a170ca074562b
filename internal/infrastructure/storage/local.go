package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalStore writes images into a directory served statically under
// /images. Stored URLs have the form "images/<name>".
type LocalStore struct {
	dir string
}

// NewLocalStore creates dir if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Dir is the directory images are written to.
func (s *LocalStore) Dir() string { return s.dir }

func (s *LocalStore) Save(ctx context.Context, filename, _ string, content io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := objectName(filename)
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create image: %w", err)
	}

	if _, err := io.Copy(f, content); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write image: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close image: %w", err)
	}

	return path.Join(ImagePrefix, name), nil
}

// Delete removes the file behind url. URLs outside the image prefix are
// rejected so a stored value can never point the delete elsewhere.
func (s *LocalStore) Delete(_ context.Context, url string) error {
	name := strings.TrimPrefix(path.Clean("/"+url), "/"+ImagePrefix+"/")
	if name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("delete image: %q is not a stored image", url)
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	return nil
}
