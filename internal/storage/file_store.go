package storage

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FileStore keeps the document as a file on a billy filesystem, osfs in
// production and memfs in tests.
type FileStore struct {
	fs     billy.Filesystem
	name   string
	logger *zap.Logger
}

// NewFileStore creates a store for the file name relative to the root of fs.
func NewFileStore(fs billy.Filesystem, name string, logger *zap.Logger) *FileStore {
	return &FileStore{fs: fs, name: name, logger: logger}
}

// Location returns the config:// address of the document.
func (s *FileStore) Location() string {
	return "config://" + s.name
}

// Get reads the document.
func (s *FileStore) Get(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := util.ReadFile(s.fs, s.name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", s.Location(), err)
	}
	return data, nil
}

// Put writes data to a temporary file next to the document and renames it over
// the document.
func (s *FileStore) Put(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := path.Dir(s.name)
	if dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	tmp := s.fs.Join(dir, fmt.Sprintf(".%s.%s.tmp", path.Base(s.name), uuid.NewString()))
	if err := util.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := s.fs.Rename(tmp, s.name); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("replace %s: %w", s.Location(), err)
	}

	s.logger.Debug("Document stored",
		zap.String("location", s.Location()),
		zap.Int("bytes", len(data)),
	)
	return nil
}
