package upload

import (
	"errors"
	"fmt"
	"mime/multipart"

	"github.com/gabriel-vasile/mimetype"
)

// MaxFileSize is the per-image limit.
const MaxFileSize = 10 << 20

var (
	ErrInvalidType = errors.New("Invalid file type. Only JPEG, PNG, GIF, and WebP images are allowed.")
	ErrTooLarge    = fmt.Errorf("File too large. Maximum size is %d MB", MaxFileSize>>20)
)

var allowedMimes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
}

// Check enforces the size limit and sniffs the content type. It returns the
// detected mime type.
func Check(fh *multipart.FileHeader) (string, error) {
	if fh.Size > MaxFileSize {
		return "", ErrTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return "", fmt.Errorf("detect mime type: %w", err)
	}
	if !mimetype.EqualsAny(mt.String(), allowedMimes...) {
		return "", ErrInvalidType
	}
	return mt.String(), nil
}

// IsClientError reports whether err came from a rejected file rather than a
// storage failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidType) || errors.Is(err, ErrTooLarge)
}
