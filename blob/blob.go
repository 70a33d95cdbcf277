package blob

import (
	"context"
	"net/http"
	"strings"

	"github.com/calehh/impact-app/types"
	"github.com/google/uuid"
	svg "github.com/h2non/go-is-svg"
)

const KeyPrefix = "proofs/"

// Store persists proof files and returns the URL they are reachable under.
type Store interface {
	Put(ctx context.Context, data []byte, originalName string) (string, error)
	Close() error
}

// Reader is implemented by stores whose blobs are served by this node.
type Reader interface {
	Get(ctx context.Context, key string) ([]byte, string, error)
}

// extensions lists the accepted proof MIME types.
var extensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// DetectMimeType returns the file MIME type
func DetectMimeType(data []byte) string {
	// svg needs a specific check because the algorithm
	// implemented by http.DetectContentType doesn't detect svg
	if svg.IsSVG(data) {
		return "image/svg+xml"
	}
	return http.DetectContentType(data)
}

// Validate checks a proof upload and returns its content type.
func Validate(data []byte, maxBytes int64) (string, error) {
	if len(data) == 0 {
		return "", types.Validationf("empty proof file")
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return "", types.Validationf("proof file exceeds %d bytes", maxBytes)
	}
	mt := DetectMimeType(data)
	if _, ok := extensions[mt]; !ok {
		return "", types.Validationf("unsupported proof type %s", mt)
	}
	return mt, nil
}

// NewKey returns a fresh storage key. The original file name never
// contributes, so uploads cannot collide or overwrite each other.
func NewKey(contentType string) string {
	ext, ok := extensions[contentType]
	if !ok {
		ext = "bin"
	}
	return KeyPrefix + uuid.NewString() + "." + ext
}

// ValidKey reports whether key has the shape produced by NewKey.
func ValidKey(key string) bool {
	if !strings.HasPrefix(key, KeyPrefix) {
		return false
	}
	name := strings.TrimPrefix(key, KeyPrefix)
	id, ext, ok := strings.Cut(name, ".")
	if !ok || ext == "" || strings.ContainsAny(ext, "/.") {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

func publicURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
