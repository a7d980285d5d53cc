package upload

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Local writes uploads under dir; the server exposes dir at /uploads.
type Local struct {
	dir string
}

func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{dir: dir}, nil
}

func (l *Local) Dir() string { return l.dir }

func (l *Local) Upload(ctx context.Context, fh *multipart.FileHeader) (*File, error) {
	mimeType, err := Check(fh)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	name := "specialist-" + uuid.NewString() + strings.ToLower(filepath.Ext(fh.Filename))
	path := filepath.Join(l.dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	n, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("write upload: %w", err)
	}

	return &File{
		OriginalName: fh.Filename,
		FileName:     name,
		Path:         path,
		Size:         n,
		MimeType:     mimeType,
	}, nil
}
