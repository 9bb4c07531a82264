package blob

import (
	"context"
	"fmt"
)

// Config selects and configures a Store.
type Config struct {
	Backend       string   `json:"backend"` // local, s3 or cloudinary
	LocalDir      string   `json:"local_dir"`
	PublicBase    string   `json:"public_base"`
	S3            S3Config `json:"s3"`
	CloudinaryURL string   `json:"-"`
}

func New(ctx context.Context, c Config) (Store, error) {
	switch c.Backend {
	case "", "local":
		return NewLocal(c.LocalDir, c.PublicBase)
	case "s3":
		return NewS3(ctx, c.S3)
	case "cloudinary":
		return NewCloudinary(c.CloudinaryURL)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", c.Backend)
	}
}
