package blob

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

type cloudinaryAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// Cloudinary stores blobs as Cloudinary assets. The path hint without its
// extension becomes the public id.
type Cloudinary struct {
	api cloudinaryAPI
}

func NewCloudinary(cloudinaryURL string) (*Cloudinary, error) {
	if cloudinaryURL == "" {
		return nil, fmt.Errorf("cloudinary: CLOUDINARY_URL required")
	}
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}
	return &Cloudinary{api: &cld.Upload}, nil
}

func (c *Cloudinary) Upload(ctx context.Context, data []byte, pathHint string) (string, error) {
	id, err := publicID(pathHint)
	if err != nil {
		return "", err
	}
	overwrite := true
	resp, err := c.api.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		PublicID:  id,
		Overwrite: &overwrite,
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary: upload %s: %w", id, err)
	}
	if resp.SecureURL != "" {
		return resp.SecureURL, nil
	}
	if resp.URL != "" {
		return resp.URL, nil
	}
	return "", fmt.Errorf("cloudinary: upload %s returned empty url", id)
}

func (c *Cloudinary) Delete(ctx context.Context, pathHint string) error {
	id, err := publicID(pathHint)
	if err != nil {
		return err
	}
	if _, err := c.api.Destroy(ctx, uploader.DestroyParams{PublicID: id}); err != nil {
		return fmt.Errorf("cloudinary: destroy %s: %w", id, err)
	}
	return nil
}

func publicID(hint string) (string, error) {
	key, err := cleanKey(hint)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(key, path.Ext(key)), nil
}
