package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"strings"

	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// ImageInfo contains metadata about an encoded image blob.
//
// Metadata is read from the image header only; pixel data is not decoded.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the format name reported by the registered decoder:
	// "png", "jpeg", "gif", "bmp", "tiff" or "webp".
	Format string `json:"format"`

	// SizeBytes is the length of the encoded blob.
	SizeBytes int `json:"size_bytes"`
}

// Inspect reads the header of an encoded image and returns its metadata.
//
// Parameters:
//   - blob: The encoded image bytes as read from a file or produced by EncodeJPEG.
//
// Returns:
//   - *ImageInfo: Dimensions, detected format and blob size.
//   - error: Non-nil if the blob is empty or no registered decoder recognises it.
func Inspect(blob []byte) (*ImageInfo, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("failed to inspect image: empty blob")
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("failed to inspect image: %w", err)
	}
	return &ImageInfo{
		Width:     cfg.Width,
		Height:    cfg.Height,
		Format:    format,
		SizeBytes: len(blob),
	}, nil
}

// Decode fully decodes an encoded image blob.
func Decode(blob []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// MatchesImageType reports whether a declared MIME type belongs to the
// image/* family. Parameters such as "; charset=..." are ignored and the
// comparison is case-insensitive. A bare "image/" has no subtype and is rejected.
func MatchesImageType(mimeType string) bool {
	t := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	sub, ok := strings.CutPrefix(t, "image/")
	return ok && sub != "" && !strings.ContainsAny(sub, "/ ")
}
