// Package imaging provides the raster helpers used while acquiring an image.
//
// The package covers three steps of the acquisition pipeline:
//   - MatchesImageType: the image/* gate applied to every candidate input
//   - EncodeJPEG: rasterizing a captured camera frame into a JPEG blob
//   - DataURI: rendering any blob as a base64 preview URI
//
// Inspect reads image headers for display purposes. Decoders for PNG, JPEG,
// GIF, BMP, TIFF and WebP are registered on import.
//
// # Thread Safety
//
// All functions are stateless and safe for concurrent use.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Empty or unrecognised blobs passed to Inspect or Decode
//   - Nil or zero-sized images passed to EncodeJPEG
package imaging
