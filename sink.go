package mdrender

import (
	"context"
	"fmt"

	"github.com/alnah/go-mdrender/internal/fileutil"
)

// filePermissions applies to saved artifacts.
const filePermissions = 0o644

// Sink receives finished artifacts.
type Sink interface {
	// Save stores data under filename and returns where it went.
	Save(ctx context.Context, data []byte, filename string) (string, error)
}

// FileSink writes artifacts into Dir, replacing existing files atomically.
type FileSink struct {
	Dir string // defaults to the working directory
}

// Save implements Sink.
func (s FileSink) Save(ctx context.Context, data []byte, filename string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	path, err := fileutil.WriteAtomic(dir, filename, data, filePermissions)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSave, err)
	}
	return path, nil
}
