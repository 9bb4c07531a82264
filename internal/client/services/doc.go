// Package services contains the chat operations of the client: user
// profiles, channels with their posts and reactions, and reply threads.
//
// Services are thin layers over the collection mirrors. Writes go through a
// mirror, so the local copy changes first and the remote store follows; a
// rejected remote write is logged and returned while the optimistic local
// state stays in place until the next snapshot.
package services

import (
	"github.com/dmitrijs2005/chatsync/internal/timex"
	"github.com/google/uuid"
)

// Seams for tests.
var (
	nowMillis = timex.NowMillis
	newID     = uuid.NewString
)

// extensionFor maps a sniffed content type to a file extension for blob keys.
func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	case "application/pdf":
		return ".pdf"
	}
	return ""
}
