package acquire

// ImageSource is the closed set of input paths. The variant only records how
// the blob was obtained; every variant normalizes to a SelectedImage.
type ImageSource interface {
	// Kind names the input path: "file", "drop" or "camera".
	Kind() string

	isImageSource()
}

// FileSelection is a file chosen in a file dialog.
type FileSelection struct {
	File File
}

// DragDrop is the file list of a drop event. Only the first file is used.
type DragDrop struct {
	Files []File
}

// CameraCapture is an encoded frame grabbed from the live camera.
type CameraCapture struct {
	Blob     []byte
	MimeType string
}

func (FileSelection) Kind() string { return "file" }
func (DragDrop) Kind() string      { return "drop" }
func (CameraCapture) Kind() string { return "camera" }

func (FileSelection) isImageSource() {}
func (DragDrop) isImageSource()      {}
func (CameraCapture) isImageSource() {}

// cameraCaptureName is the file name given to captured frames.
const cameraCaptureName = "camera-capture.jpg"

// SelectedImage is a validated image ready for submission. It is never
// mutated after creation; Blob must be treated as read-only.
type SelectedImage struct {
	// Source is the Kind of the ImageSource that produced the image.
	Source string

	// Name is the file name sent with the upload.
	Name string

	// Blob is the raw encoded image.
	Blob []byte

	// MimeType always matches image/*.
	MimeType string

	// PreviewURI is a base64 data URI of Blob.
	PreviewURI string

	// Generation is the acquisition token that produced this image.
	Generation uint64
}

// CameraState is the position of the camera lifecycle state machine.
type CameraState int

const (
	// CameraInactive means no camera session exists and file input is accepted.
	CameraInactive CameraState = iota

	// CameraRequesting means access was requested and the grant is pending.
	CameraRequesting

	// CameraActive means a session is live and bound to the preview surface.
	CameraActive

	// CameraCapturing means a frame is being grabbed and encoded.
	CameraCapturing
)

func (s CameraState) String() string {
	switch s {
	case CameraInactive:
		return "inactive"
	case CameraRequesting:
		return "requesting"
	case CameraActive:
		return "active"
	case CameraCapturing:
		return "capturing"
	default:
		return "unknown"
	}
}
