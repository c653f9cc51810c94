// Package acquire turns user input into a single SelectedImage.
//
// Three input paths are supported: a file picked from a dialog, the first
// file of a drag-and-drop, and a frame captured from a live camera. Each is an
// ImageSource variant and all of them normalize to the same SelectedImage
// shape: the raw blob, its MIME type and a data URI preview.
//
// # Selection
//
// Only inputs whose declared MIME type is image/* are accepted. Anything else
// is discarded with ErrUnsupportedType and the current selection is left
// untouched. A successful acquisition replaces the current selection wholesale.
//
// Every acquisition attempt carries a generation token. When a slow read
// completes after a newer attempt has started, its result is dropped with
// ErrSuperseded, so the latest user action always wins.
//
// # Camera Lifecycle
//
//	Inactive --ActivateCamera--> Requesting --granted--> Active
//	Requesting --denied/error--> Inactive
//	Active --CaptureFrame--> Capturing --(auto)--> Inactive
//	Active --DeactivateCamera--> Inactive
//
// Leaving Active or Capturing always stops every track of the session.
// CaptureFrame releases the camera whether or not the capture succeeds, and
// Close releases it on teardown. A grant that arrives after the request was
// abandoned is stopped immediately. File and drop input are refused with
// ErrCameraBusy while the camera is not Inactive, including a file read that
// started earlier and completes after the camera was activated.
//
// # Thread Safety
//
// Acquirer is safe for concurrent use. Blocking work (file reads, device
// consent, frame encoding) happens outside the internal lock.
package acquire
