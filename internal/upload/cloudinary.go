package upload

import (
	"context"
	"fmt"
	"math/rand/v2"
	"mime/multipart"
	"net/url"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/sudo-init-do/specialisthub/internal/config"
)

// Cloudinary uploads images through the Cloudinary SDK into the configured folder.
type Cloudinary struct {
	cfg config.CloudinaryConfig
	cld *cloudinary.Cloudinary
	now func() time.Time
}

func NewCloudinary(cfg config.CloudinaryConfig) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary client: %w", err)
	}
	return &Cloudinary{cfg: cfg, cld: cld, now: time.Now}, nil
}

// Sign computes the Cloudinary request signature over the non-empty params.
func Sign(params map[string]string, secret string) (string, error) {
	values := url.Values{}
	for k, v := range params {
		if v != "" {
			values.Set(k, v)
		}
	}
	return api.SignParameters(values, secret)
}

func (c *Cloudinary) Upload(ctx context.Context, fh *multipart.FileHeader) (*File, error) {
	mimeType, err := Check(fh)
	if err != nil {
		return nil, err
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	res, err := c.cld.Upload.Upload(ctx, src, uploader.UploadParams{
		Folder:       c.cfg.Folder,
		PublicID:     fmt.Sprintf("specialist-%d-%d", c.now().UnixMilli(), rand.IntN(1e9)),
		ResourceType: "image",
	})
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary error: %s", res.Error.Message)
	}

	size := int64(res.Bytes)
	if size == 0 {
		size = fh.Size
	}
	return &File{
		OriginalName: fh.Filename,
		SecureURL:    res.SecureURL,
		URL:          res.URL,
		Size:         size,
		MimeType:     mimeType,
	}, nil
}
