package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ironsheep/scan-quiz/internal/camera"
	"github.com/ironsheep/scan-quiz/internal/imaging"
)

var (
	// ErrUnsupportedType is returned for inputs whose MIME type is not image/*.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrNoFile is returned for a drop event without files.
	ErrNoFile = errors.New("no file provided")

	// ErrSuperseded is returned when a newer acquisition attempt started
	// before this one completed. The result was discarded.
	ErrSuperseded = errors.New("acquisition superseded")

	// ErrCameraBusy is returned when the camera is not Inactive, either on a
	// second activation or on file input while the camera UI is shown.
	ErrCameraBusy = errors.New("camera is in use")

	// ErrCameraInactive is returned by CaptureFrame outside the Active state.
	ErrCameraInactive = errors.New("camera is not active")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("acquirer closed")
)

// PreviewSurface displays a live camera stream. Attach is called when the
// camera becomes Active and Detach when the session ends.
type PreviewSurface interface {
	Attach(s camera.Stream)
	Detach()
}

// Options configures an Acquirer. The zero value is usable: it has no
// camera, a no-op logger and default JPEG quality.
type Options struct {
	// Device provides the live camera. Nil disables the camera path.
	Device camera.Device

	// Facing is the preferred camera. Defaults to the rear camera.
	Facing camera.FacingMode

	// JPEGQuality is used to encode captured frames.
	JPEGQuality int

	// Preview receives the live stream while the camera is Active.
	Preview PreviewSurface

	// OnSelect is called, outside the internal lock, after every new selection.
	OnSelect func(SelectedImage)

	// Logger receives operator-facing diagnostics.
	Logger *zap.Logger
}

// Session is a granted camera stream. It exists only while the camera is
// Active or Capturing and is owned exclusively by the Acquirer.
type Session struct {
	ID      string
	Stream  camera.Stream
	Started time.Time
}

// Acquirer owns the current selection and the camera session.
type Acquirer struct {
	opts   Options
	logger *zap.Logger

	mu      sync.Mutex
	gen     uint64 // latest acquisition token
	camGen  uint64 // latest camera request token
	current *SelectedImage
	state   CameraState
	session *Session
	closed  bool
}

// New creates an Acquirer with no selection and the camera Inactive.
func New(opts Options) *Acquirer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Facing == "" {
		opts.Facing = camera.FacingEnvironment
	}
	return &Acquirer{
		opts:   opts,
		logger: logger.Named("acquire"),
	}
}

// SelectFile acquires a file chosen from a file dialog.
func (a *Acquirer) SelectFile(ctx context.Context, f File) (SelectedImage, error) {
	return a.Acquire(ctx, FileSelection{File: f})
}

// DropFile acquires the first file of a drop event.
func (a *Acquirer) DropFile(ctx context.Context, files []File) (SelectedImage, error) {
	return a.Acquire(ctx, DragDrop{Files: files})
}

// Acquire normalizes any ImageSource into a SelectedImage and makes it the
// current selection. On error the previous selection is unchanged.
func (a *Acquirer) Acquire(ctx context.Context, src ImageSource) (SelectedImage, error) {
	var (
		file     File
		blob     []byte
		mimeType string
		name     string
	)
	switch s := src.(type) {
	case FileSelection:
		file = s.File
	case DragDrop:
		if len(s.Files) == 0 {
			return SelectedImage{}, ErrNoFile
		}
		file = s.Files[0]
	case CameraCapture:
		blob = s.Blob
		mimeType = s.MimeType
		if mimeType == "" {
			mimeType = imaging.JPEGMimeType
		}
		name = cameraCaptureName
	default:
		return SelectedImage{}, fmt.Errorf("unknown image source %T", src)
	}

	if file != nil {
		mimeType = file.Type()
		name = file.Name()
	} else if src.Kind() != "camera" {
		return SelectedImage{}, ErrNoFile
	}

	if !imaging.MatchesImageType(mimeType) {
		a.logger.Debug("discarding non-image input",
			zap.String("source", src.Kind()),
			zap.String("name", name),
			zap.String("mime", mimeType))
		return SelectedImage{}, ErrUnsupportedType
	}

	token, err := a.begin(src.Kind() != "camera")
	if err != nil {
		return SelectedImage{}, err
	}

	if file != nil {
		blob, err = readFile(ctx, file)
		if err != nil {
			a.logger.Warn("failed to read input file", zap.String("name", name), zap.Error(err))
			return SelectedImage{}, err
		}
	}
	if len(blob) == 0 {
		return SelectedImage{}, fmt.Errorf("empty image %q: %w", name, ErrUnsupportedType)
	}

	return a.commit(SelectedImage{
		Source:     src.Kind(),
		Name:       name,
		Blob:       blob,
		MimeType:   mimeType,
		PreviewURI: imaging.DataURI(mimeType, blob),
		Generation: token,
	})
}

// begin reserves a new acquisition token. File input is refused while the
// camera is not Inactive.
func (a *Acquirer) begin(fileInput bool) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return 0, ErrClosed
	}
	if fileInput && a.state != CameraInactive {
		return 0, ErrCameraBusy
	}
	a.gen++
	return a.gen, nil
}

// commit installs img as the current selection unless a newer attempt began.
// A file read that completes after the camera left Inactive is discarded.
func (a *Acquirer) commit(img SelectedImage) (SelectedImage, error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return SelectedImage{}, ErrClosed
	}
	if img.Source != (CameraCapture{}).Kind() && a.state != CameraInactive {
		state := a.state
		a.mu.Unlock()
		a.logger.Debug("discarding file input while camera is shown",
			zap.String("name", img.Name),
			zap.Stringer("camera", state))
		return SelectedImage{}, ErrCameraBusy
	}
	if img.Generation != a.gen {
		latest := a.gen
		a.mu.Unlock()
		a.logger.Debug("discarding stale acquisition",
			zap.Uint64("generation", img.Generation),
			zap.Uint64("latest", latest))
		return SelectedImage{}, ErrSuperseded
	}
	a.current = &img
	a.mu.Unlock()

	a.logger.Info("image selected",
		zap.String("source", img.Source),
		zap.String("name", img.Name),
		zap.String("mime", img.MimeType),
		zap.Int("bytes", len(img.Blob)))
	if a.opts.OnSelect != nil {
		a.opts.OnSelect(img)
	}
	return img, nil
}

// readFile reads f fully, honouring ctx between open and read.
func readFile(ctx context.Context, f File) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", f.Name(), err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", f.Name(), err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return data, nil
}

// ActivateCamera requests the live camera and binds it to the preview
// surface. On denial or device error the camera stays Inactive, the failure
// is logged, and the wrapped error is returned.
func (a *Acquirer) ActivateCamera(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrClosed
	}
	if a.opts.Device == nil {
		a.mu.Unlock()
		a.logger.Warn("camera unavailable", zap.Error(camera.ErrNoDevice))
		return fmt.Errorf("activate camera: %w", camera.ErrNoDevice)
	}
	if a.state != CameraInactive {
		a.mu.Unlock()
		return ErrCameraBusy
	}
	a.state = CameraRequesting
	a.camGen++
	token := a.camGen
	a.mu.Unlock()

	stream, err := a.opts.Device.Open(ctx, camera.Constraints{Facing: a.opts.Facing})

	a.mu.Lock()
	defer a.mu.Unlock()

	if token != a.camGen || a.state != CameraRequesting || a.closed {
		// Abandoned while waiting for consent.
		if stopped := camera.StopAll(stream); stopped > 0 {
			a.logger.Info("released late camera grant", zap.Int("tracks", stopped))
		}
		if a.closed {
			return ErrClosed
		}
		return ErrSuperseded
	}
	if err != nil {
		camera.StopAll(stream)
		a.state = CameraInactive
		a.logger.Warn("error accessing camera", zap.Error(err))
		return fmt.Errorf("activate camera: %w", err)
	}

	a.session = &Session{
		ID:      uuid.NewString(),
		Stream:  stream,
		Started: time.Now(),
	}
	a.state = CameraActive
	if a.opts.Preview != nil {
		a.opts.Preview.Attach(stream)
	}
	a.logger.Info("camera active",
		zap.String("session", a.session.ID),
		zap.Int("tracks", len(stream.Tracks())))
	return nil
}

// CaptureFrame grabs the current frame, encodes it as JPEG and makes it the
// current selection. The camera is released before CaptureFrame returns,
// whether or not the capture succeeded.
func (a *Acquirer) CaptureFrame(ctx context.Context) (SelectedImage, error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return SelectedImage{}, ErrClosed
	}
	if a.state != CameraActive || a.session == nil {
		a.mu.Unlock()
		return SelectedImage{}, ErrCameraInactive
	}
	a.state = CameraCapturing
	sess := a.session
	a.gen++
	token := a.gen
	a.mu.Unlock()

	released := false
	defer func() {
		if !released {
			a.releaseSession(sess, "capture")
		}
	}()

	blob, err := a.grab(ctx, sess)
	a.releaseSession(sess, "capture")
	released = true
	if err != nil {
		a.logger.Warn("frame capture failed", zap.String("session", sess.ID), zap.Error(err))
		return SelectedImage{}, err
	}

	return a.commit(SelectedImage{
		Source:     CameraCapture{}.Kind(),
		Name:       cameraCaptureName,
		Blob:       blob,
		MimeType:   imaging.JPEGMimeType,
		PreviewURI: imaging.DataURI(imaging.JPEGMimeType, blob),
		Generation: token,
	})
}

// grab renders the session's current frame into a JPEG blob.
func (a *Acquirer) grab(ctx context.Context, sess *Session) ([]byte, error) {
	frame, err := sess.Stream.Frame(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}
	return imaging.EncodeJPEG(frame, a.opts.JPEGQuality)
}

// DeactivateCamera stops every track of the current session and returns the
// camera to Inactive. A pending request is abandoned. It is a no-op when the
// camera is already Inactive.
func (a *Acquirer) DeactivateCamera() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deactivateLocked("deactivate")
}

// releaseSession deactivates the camera only if sess is still the current
// session, so a capture never tears down a newer session.
func (a *Acquirer) releaseSession(sess *Session, reason string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == sess {
		a.deactivateLocked(reason)
	}
}

func (a *Acquirer) deactivateLocked(reason string) {
	switch a.state {
	case CameraInactive:
		return
	case CameraRequesting:
		a.camGen++
	case CameraActive, CameraCapturing:
		if a.session != nil {
			stopped := camera.StopAll(a.session.Stream)
			if a.opts.Preview != nil {
				a.opts.Preview.Detach()
			}
			a.logger.Info("camera released",
				zap.String("session", a.session.ID),
				zap.String("reason", reason),
				zap.Int("tracks", stopped),
				zap.Duration("active", time.Since(a.session.Started)))
		}
	}
	a.session = nil
	a.state = CameraInactive
}

// Close tears the acquirer down, releasing the camera if it is active.
// Subsequent operations fail with ErrClosed. Close is idempotent.
func (a *Acquirer) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deactivateLocked("teardown")
	a.closed = true
	return nil
}

// Current returns the current selection, if any.
func (a *Acquirer) Current() (SelectedImage, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return SelectedImage{}, false
	}
	return *a.current, true
}

// CameraState returns the camera lifecycle state.
func (a *Acquirer) CameraState() CameraState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// SessionID returns the active camera session id, or "" when there is none.
func (a *Acquirer) SessionID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return ""
	}
	return a.session.ID
}

// CanSubmit reports whether a selection with a preview exists and the camera
// is Inactive.
func (a *Acquirer) CanSubmit() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.closed && a.current != nil && a.current.PreviewURI != "" && a.state == CameraInactive
}
