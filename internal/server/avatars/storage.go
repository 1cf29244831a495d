// Package avatars places processed avatar images where clients can fetch
// them: a local directory served by the HTTP layer, or an S3 bucket.
package avatars

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// URLPrefix is the path under which the HTTP server exposes DiskStorage.
const URLPrefix = "/avatars"

// Storage moves a finished file at localPath under name. After Store
// returns nil, URL(origin, name) resolves to the complete file.
type Storage interface {
	Store(ctx context.Context, localPath, name string) error
	URL(origin, name string) string
}

func checkName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid avatar name %q", name)
	}
	return nil
}
