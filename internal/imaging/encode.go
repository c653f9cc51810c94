package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// JPEGMimeType is the MIME type of blobs produced by EncodeJPEG.
const JPEGMimeType = "image/jpeg"

// DefaultJPEGQuality is used when EncodeJPEG receives a quality outside 1-100.
const DefaultJPEGQuality = 92

// EncodeJPEG rasterizes img into a JPEG blob.
//
// Quality outside the range 1-100 falls back to DefaultJPEGQuality. Alpha is
// flattened by the encoder.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("failed to encode frame: nil image")
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("failed to encode frame: empty bounds %v", b)
	}
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURI renders blob as a self-contained base64 data URI suitable as a
// preview source, e.g. "data:image/png;base64,iVBOR...".
func DataURI(mimeType string, blob []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(blob)
}
