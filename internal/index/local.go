package index

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DirStore is an ObjectStore over a plain directory tree. It serves local
// development and tests, and doubles as the publish target for snapshots
// built on the same host that serves them.
type DirStore struct {
	root string
}

// NewDirStore creates a DirStore rooted at dir.
func NewDirStore(root string) *DirStore { return &DirStore{root: root} }

func (s *DirStore) Exists(ctx context.Context, name string) (bool, error) {
	_, err := os.Stat(filepath.Join(s.root, filepath.FromSlash(name)))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *DirStore) Download(ctx context.Context, name, dest string) error {
	return copyFile(filepath.Join(s.root, filepath.FromSlash(name)), dest)
}

func (s *DirStore) Upload(ctx context.Context, src, name string) error {
	dest := filepath.Join(s.root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}
	return copyFile(src, dest)
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
