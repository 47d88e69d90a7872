// Package datasource defines where export bytes come from. The HTTP fetcher
// (httpds) is the production source; file.Local replays a saved export.
package datasource

import (
	"context"
	"fmt"
	"io"
)

// Source opens a readable export.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// ReadAll opens src and reads it to the end. A positive limit caps the
// payload; exceeding it is an error rather than a silent truncation.
func ReadAll(ctx context.Context, src Source, limit int64) ([]byte, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var r io.Reader = rc
	if limit > 0 {
		r = io.LimitReader(rc, limit+1)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("datasource: read: %w", err)
	}
	if limit > 0 && int64(len(b)) > limit {
		return nil, fmt.Errorf("datasource: payload exceeds %d bytes", limit)
	}
	return b, nil
}
