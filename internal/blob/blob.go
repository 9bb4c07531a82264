// Package blob stores avatar and attachment files and hands back their
// public URL. The chat core only keeps that URL.
package blob

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/dmitrijs2005/chatsync/internal/common"
)

// Store uploads opaque bytes under a path hint and returns a public URL.
type Store interface {
	Upload(ctx context.Context, data []byte, pathHint string) (string, error)
	Delete(ctx context.Context, pathHint string) error
}

// Kind selects the validation rules for an upload.
type Kind int

const (
	Attachment Kind = iota
	Avatar
)

// Validate checks size and sniffed content type. Attachments may be images
// or PDFs, avatars only images; both are capped at MaxAttachmentSize. It
// returns the detected content type.
func Validate(data []byte, kind Kind) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: file is empty", common.ErrValidation)
	}
	if len(data) > common.MaxAttachmentSize {
		return "", fmt.Errorf("%w: file is larger than %d KB", common.ErrValidation, common.MaxAttachmentSize/1024)
	}

	ct := http.DetectContentType(data)
	mediaType, _, _ := strings.Cut(ct, ";")

	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return mediaType, nil
	case mediaType == "application/pdf" && kind == Attachment:
		return mediaType, nil
	case kind == Avatar:
		return "", fmt.Errorf("%w: avatar must be an image, got %s", common.ErrValidation, mediaType)
	default:
		return "", fmt.Errorf("%w: only images and PDF files can be attached, got %s", common.ErrValidation, mediaType)
	}
}

// cleanKey turns a path hint into a relative slash-separated key that cannot
// escape its root.
func cleanKey(hint string) (string, error) {
	key := strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(hint, "\\", "/")), "/")
	if key == "" {
		return "", fmt.Errorf("%w: empty path", common.ErrValidation)
	}
	return key, nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
