package avatars

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/gophid/internal/filex"
)

type DiskStorage struct {
	dir string
}

// NewDiskStorage creates dir if needed.
func NewDiskStorage(dir string) (*DiskStorage, error) {
	abs, err := filex.EnsureSubdDir(dir)
	if err != nil {
		return nil, err
	}
	return &DiskStorage{dir: abs}, nil
}

func (s *DiskStorage) Dir() string { return s.dir }

func (s *DiskStorage) Store(ctx context.Context, localPath, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return filex.MoveFile(localPath, filepath.Join(s.dir, name))
}

func (s *DiskStorage) URL(origin, name string) string {
	return strings.TrimRight(origin, "/") + URLPrefix + "/" + url.PathEscape(name)
}
