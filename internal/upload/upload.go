package upload

import (
	"context"
	"mime/multipart"
	"strings"
)

// Uploader stores one validated image and reports where it ended up.
type Uploader interface {
	Upload(ctx context.Context, fh *multipart.FileHeader) (*File, error)
}

// File describes a stored upload. Backends fill the fields they know.
type File struct {
	OriginalName string
	FileName     string // name on local disk
	Path         string // local path or remote URL
	URL          string
	SecureURL    string
	Size         int64
	MimeType     string
}

// StoredPath picks the public location of the file: secure_url, url, a
// remote path, the local /uploads route, then the original name.
func (f *File) StoredPath() string {
	switch {
	case f.SecureURL != "":
		return f.SecureURL
	case f.URL != "":
		return f.URL
	case strings.HasPrefix(f.Path, "http"):
		return f.Path
	case f.FileName != "":
		return "/uploads/" + f.FileName
	}
	return f.OriginalName
}
