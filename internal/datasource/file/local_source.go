// Package file reads and writes exports on the local disk: replaying a saved
// export instead of fetching it, archiving what was fetched, and reading
// operator-maintained column lists.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Local is a datasource.Source backed by one file.
type Local struct{ path string }

// NewLocal returns a Local bound to path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Open returns the file for reading. A context that is already done is
// reported without touching the filesystem. Filesystem errors are wrapped
// with the path and still match os.ErrNotExist and friends.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}

// WriteArchive stores b as dir/name, creating dir when needed. The file is
// written under a temporary name and renamed, so readers never see a partial
// export. It returns the final path.
func WriteArchive(dir, name string, b []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("archive dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".export-*")
	if err != nil {
		return "", fmt.Errorf("archive temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return "", fmt.Errorf("archive write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("archive close: %w", err)
	}
	final := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), final); err != nil {
		return "", fmt.Errorf("archive rename: %w", err)
	}
	return final, nil
}
