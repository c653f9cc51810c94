package acquire

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ironsheep/scan-quiz/internal/camera"
	"github.com/ironsheep/scan-quiz/internal/imaging"
)

// createTestPNG encodes a small solid-colour PNG.
func createTestPNG(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return buf.Bytes()
}

func pngFile(t *testing.T, name string) MemFile {
	t.Helper()
	return MemFile{FileName: name, MimeType: "image/png", Data: createTestPNG(t, color.RGBA{200, 10, 10, 255})}
}

// gatedFile blocks in Open until release is closed.
type gatedFile struct {
	MemFile
	opened  chan struct{}
	release chan struct{}
}

func newGatedFile(f MemFile) *gatedFile {
	return &gatedFile{MemFile: f, opened: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedFile) Open() (io.ReadCloser, error) {
	close(g.opened)
	<-g.release
	return g.MemFile.Open()
}

// gatedDevice blocks in Open until release is closed, then grants a stream
// from the wrapped test pattern (or fails with err).
type gatedDevice struct {
	inner   *camera.TestPattern
	err     error
	opened  chan struct{}
	release chan struct{}
}

func newGatedDevice() *gatedDevice {
	return &gatedDevice{
		inner:   camera.NewTestPattern(32, 24),
		opened:  make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (d *gatedDevice) Open(ctx context.Context, c camera.Constraints) (camera.Stream, error) {
	close(d.opened)
	<-d.release
	if d.err != nil {
		return nil, d.err
	}
	return d.inner.Open(ctx, c)
}

// recordingSurface counts Attach/Detach calls.
type recordingSurface struct {
	mu       sync.Mutex
	attached int
	detached int
	stream   camera.Stream
}

func (s *recordingSurface) Attach(st camera.Stream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attached++
	s.stream = st
}

func (s *recordingSurface) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detached++
	s.stream = nil
}

func TestSelectFile(t *testing.T) {
	a := New(Options{})
	f := pngFile(t, "page.png")

	img, err := a.SelectFile(context.Background(), f)
	if err != nil {
		t.Fatalf("SelectFile failed: %v", err)
	}
	if img.Source != "file" {
		t.Errorf("Source: got %q, want file", img.Source)
	}
	if img.Name != "page.png" || img.MimeType != "image/png" {
		t.Errorf("unexpected name/mime: %q %q", img.Name, img.MimeType)
	}
	if !bytes.Equal(img.Blob, f.Data) {
		t.Error("Blob does not match file content")
	}
	if !strings.HasPrefix(img.PreviewURI, "data:image/png;base64,") {
		t.Errorf("unexpected preview: %.40s", img.PreviewURI)
	}

	cur, ok := a.Current()
	if !ok || cur.Generation != img.Generation {
		t.Error("Current should return the new selection")
	}
	if !a.CanSubmit() {
		t.Error("CanSubmit should be true with a selection and inactive camera")
	}
}

func TestSelectFile_RejectsNonImage(t *testing.T) {
	tests := []struct {
		name string
		mime string
	}{
		{"text", "text/plain; charset=utf-8"},
		{"pdf", "application/pdf"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(Options{})
			prev, err := a.SelectFile(context.Background(), pngFile(t, "first.png"))
			if err != nil {
				t.Fatalf("SelectFile failed: %v", err)
			}

			_, err = a.SelectFile(context.Background(), MemFile{FileName: "notes", MimeType: tt.mime, Data: []byte("hello")})
			if !errors.Is(err, ErrUnsupportedType) {
				t.Fatalf("expected ErrUnsupportedType, got %v", err)
			}

			cur, ok := a.Current()
			if !ok || cur.Generation != prev.Generation || cur.Name != "first.png" {
				t.Error("previous selection should be unchanged")
			}
		})
	}
}

func TestSelectFile_TextFileLeavesNoSelection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("plain text"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	a := New(Options{})
	if _, err := a.SelectFile(context.Background(), DiskFile{Path: path}); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	if _, ok := a.Current(); ok {
		t.Error("no selection should exist")
	}
	if a.CanSubmit() {
		t.Error("CanSubmit should be false")
	}
}

func TestSelectFile_DiskJPEG(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan.jpg")
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	blob, err := imaging.EncodeJPEG(img, 80)
	if err != nil {
		t.Fatalf("EncodeJPEG failed: %v", err)
	}
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	a := New(Options{})
	sel, err := a.SelectFile(context.Background(), DiskFile{Path: path})
	if err != nil {
		t.Fatalf("SelectFile failed: %v", err)
	}
	if sel.MimeType != "image/jpeg" || sel.Name != "scan.jpg" {
		t.Errorf("unexpected selection: %q %q", sel.Name, sel.MimeType)
	}
}

func TestSelectFile_MissingDiskFile(t *testing.T) {
	a := New(Options{})
	_, err := a.SelectFile(context.Background(), DiskFile{Path: "/nonexistent/photo.png"})
	if err == nil {
		t.Fatal("SelectFile should fail for a missing file")
	}
	if _, ok := a.Current(); ok {
		t.Error("no selection should exist")
	}
}

func TestSelectFile_EmptyContent(t *testing.T) {
	a := New(Options{})
	_, err := a.SelectFile(context.Background(), MemFile{FileName: "zero.png", MimeType: "image/png"})
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestDropFile(t *testing.T) {
	a := New(Options{})
	first := pngFile(t, "first.png")
	second := pngFile(t, "second.png")

	img, err := a.DropFile(context.Background(), []File{first, second})
	if err != nil {
		t.Fatalf("DropFile failed: %v", err)
	}
	if img.Source != "drop" || img.Name != "first.png" {
		t.Errorf("expected first dropped file, got %q from %q", img.Name, img.Source)
	}
}

func TestDropFile_Invalid(t *testing.T) {
	a := New(Options{})

	if _, err := a.DropFile(context.Background(), nil); !errors.Is(err, ErrNoFile) {
		t.Errorf("expected ErrNoFile, got %v", err)
	}

	// Only the first file counts, even when a later one is an image.
	files := []File{MemFile{FileName: "a.txt", MimeType: "text/plain"}, pngFile(t, "b.png")}
	if _, err := a.DropFile(context.Background(), files); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType, got %v", err)
	}
	if _, ok := a.Current(); ok {
		t.Error("no selection should exist")
	}
}

func TestAcquire_NilFile(t *testing.T) {
	a := New(Options{})
	if _, err := a.Acquire(context.Background(), FileSelection{}); !errors.Is(err, ErrNoFile) {
		t.Errorf("expected ErrNoFile, got %v", err)
	}
}

func TestAcquire_CameraCaptureBlob(t *testing.T) {
	a := New(Options{})
	blob, err := imaging.EncodeJPEG(image.NewRGBA(image.Rect(0, 0, 4, 4)), 90)
	if err != nil {
		t.Fatalf("EncodeJPEG failed: %v", err)
	}

	img, err := a.Acquire(context.Background(), CameraCapture{Blob: blob})
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if img.MimeType != "image/jpeg" || img.Name != "camera-capture.jpg" || img.Source != "camera" {
		t.Errorf("unexpected selection: %+v", img.Name)
	}
}

func TestSelectFile_SupersedesPrevious(t *testing.T) {
	var selected []string
	a := New(Options{OnSelect: func(img SelectedImage) { selected = append(selected, img.Name) }})

	first, _ := a.SelectFile(context.Background(), pngFile(t, "one.png"))
	second, _ := a.SelectFile(context.Background(), pngFile(t, "two.png"))

	if second.Generation <= first.Generation {
		t.Errorf("generation should increase: %d then %d", first.Generation, second.Generation)
	}
	cur, _ := a.Current()
	if cur.Name != "two.png" {
		t.Errorf("Current: got %q, want two.png", cur.Name)
	}
	if len(selected) != 2 {
		t.Errorf("OnSelect calls: got %d, want 2", len(selected))
	}
}

func TestSelectFile_StaleCompletionDiscarded(t *testing.T) {
	a := New(Options{})
	slow := newGatedFile(pngFile(t, "slow.png"))

	done := make(chan error, 1)
	go func() {
		_, err := a.SelectFile(context.Background(), slow)
		done <- err
	}()
	<-slow.opened

	if _, err := a.SelectFile(context.Background(), pngFile(t, "fast.png")); err != nil {
		t.Fatalf("SelectFile failed: %v", err)
	}
	close(slow.release)

	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded for the slow read, got %v", err)
	}
	cur, _ := a.Current()
	if cur.Name != "fast.png" {
		t.Errorf("Current: got %q, want fast.png", cur.Name)
	}
}

func TestSelectFile_CancelledContext(t *testing.T) {
	a := New(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := a.SelectFile(ctx, pngFile(t, "x.png")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestActivateCamera(t *testing.T) {
	dev := camera.NewTestPattern(32, 24)
	surface := &recordingSurface{}
	a := New(Options{Device: dev, Preview: surface})

	if err := a.ActivateCamera(context.Background()); err != nil {
		t.Fatalf("ActivateCamera failed: %v", err)
	}
	if a.CameraState() != CameraActive {
		t.Errorf("state: got %v, want active", a.CameraState())
	}
	if a.SessionID() == "" {
		t.Error("SessionID should be set while active")
	}
	if surface.attached != 1 {
		t.Errorf("preview attached %d times, want 1", surface.attached)
	}
	if dev.LiveTracks() != 1 {
		t.Errorf("LiveTracks: got %d, want 1", dev.LiveTracks())
	}

	if err := a.ActivateCamera(context.Background()); !errors.Is(err, ErrCameraBusy) {
		t.Errorf("second activation: expected ErrCameraBusy, got %v", err)
	}
	if dev.Opened() != 1 {
		t.Errorf("device opened %d times, want 1", dev.Opened())
	}
}

func TestActivateCamera_Denied(t *testing.T) {
	a := New(Options{Device: camera.Denied{}})

	err := a.ActivateCamera(context.Background())
	if !errors.Is(err, camera.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if a.CameraState() != CameraInactive {
		t.Errorf("state: got %v, want inactive", a.CameraState())
	}
	if _, ok := a.Current(); ok {
		t.Error("no selection should exist after denial")
	}
	if _, err := a.CaptureFrame(context.Background()); !errors.Is(err, ErrCameraInactive) {
		t.Errorf("expected ErrCameraInactive, got %v", err)
	}
}

func TestActivateCamera_NoDevice(t *testing.T) {
	a := New(Options{})
	if err := a.ActivateCamera(context.Background()); !errors.Is(err, camera.ErrNoDevice) {
		t.Fatalf("expected ErrNoDevice, got %v", err)
	}
	if a.CameraState() != CameraInactive {
		t.Errorf("state: got %v, want inactive", a.CameraState())
	}
}

func TestCaptureFrame(t *testing.T) {
	dev := camera.NewTestPattern(64, 48)
	surface := &recordingSurface{}
	a := New(Options{Device: dev, Preview: surface, JPEGQuality: 85})

	prev, _ := a.SelectFile(context.Background(), pngFile(t, "old.png"))
	if err := a.ActivateCamera(context.Background()); err != nil {
		t.Fatalf("ActivateCamera failed: %v", err)
	}
	if a.CanSubmit() {
		t.Error("CanSubmit should be false while the camera is active")
	}

	img, err := a.CaptureFrame(context.Background())
	if err != nil {
		t.Fatalf("CaptureFrame failed: %v", err)
	}
	if a.CameraState() != CameraInactive {
		t.Errorf("state after capture: got %v, want inactive", a.CameraState())
	}
	if dev.LiveTracks() != 0 {
		t.Errorf("LiveTracks after capture: got %d, want 0", dev.LiveTracks())
	}
	if surface.detached != 1 {
		t.Errorf("preview detached %d times, want 1", surface.detached)
	}

	if img.MimeType != "image/jpeg" || img.Source != "camera" {
		t.Errorf("unexpected capture: %q from %q", img.MimeType, img.Source)
	}
	info, err := imaging.Inspect(img.Blob)
	if err != nil {
		t.Fatalf("captured blob is not an image: %v", err)
	}
	if info.Format != "jpeg" || info.Width != 64 || info.Height != 48 {
		t.Errorf("unexpected capture info: %+v", info)
	}
	if !strings.HasPrefix(img.PreviewURI, "data:image/jpeg;base64,") {
		t.Error("capture preview should be a JPEG data URI")
	}

	cur, _ := a.Current()
	if cur.Generation == prev.Generation || cur.Source != "camera" {
		t.Error("capture should replace the previous selection")
	}
	if !a.CanSubmit() {
		t.Error("CanSubmit should be true after capture")
	}
}

// failingStream grants a track but cannot produce frames.
type failingStream struct{ camera.Stream }

func (failingStream) Frame(context.Context) (image.Image, error) {
	return nil, errors.New("sensor fault")
}

type failingDevice struct{ inner *camera.TestPattern }

func (d failingDevice) Open(ctx context.Context, c camera.Constraints) (camera.Stream, error) {
	s, err := d.inner.Open(ctx, c)
	if err != nil {
		return nil, err
	}
	return failingStream{s}, nil
}

func TestCaptureFrame_FailureStillReleases(t *testing.T) {
	inner := camera.NewTestPattern(16, 16)
	a := New(Options{Device: failingDevice{inner: inner}})

	if err := a.ActivateCamera(context.Background()); err != nil {
		t.Fatalf("ActivateCamera failed: %v", err)
	}
	if _, err := a.CaptureFrame(context.Background()); err == nil {
		t.Fatal("CaptureFrame should fail")
	}
	if a.CameraState() != CameraInactive {
		t.Errorf("state: got %v, want inactive", a.CameraState())
	}
	if inner.LiveTracks() != 0 {
		t.Errorf("LiveTracks: got %d, want 0", inner.LiveTracks())
	}
	if _, ok := a.Current(); ok {
		t.Error("failed capture must not create a selection")
	}
}

func TestDeactivateCamera(t *testing.T) {
	dev := camera.NewTestPattern(16, 16)
	a := New(Options{Device: dev})

	// No-op while inactive.
	a.DeactivateCamera()
	if a.CameraState() != CameraInactive {
		t.Fatalf("state: got %v, want inactive", a.CameraState())
	}

	if err := a.ActivateCamera(context.Background()); err != nil {
		t.Fatalf("ActivateCamera failed: %v", err)
	}
	a.DeactivateCamera()
	a.DeactivateCamera()

	if a.CameraState() != CameraInactive {
		t.Errorf("state: got %v, want inactive", a.CameraState())
	}
	if dev.LiveTracks() != 0 {
		t.Errorf("LiveTracks: got %d, want 0", dev.LiveTracks())
	}
	if a.SessionID() != "" {
		t.Error("SessionID should be cleared")
	}

	// The camera can be activated again after release.
	if err := a.ActivateCamera(context.Background()); err != nil {
		t.Fatalf("reactivation failed: %v", err)
	}
	a.DeactivateCamera()
	if dev.LiveTracks() != 0 {
		t.Errorf("LiveTracks after second session: got %d, want 0", dev.LiveTracks())
	}
}

func TestFileInputRefusedWhileCameraShown(t *testing.T) {
	a := New(Options{Device: camera.NewTestPattern(16, 16)})
	if err := a.ActivateCamera(context.Background()); err != nil {
		t.Fatalf("ActivateCamera failed: %v", err)
	}
	defer a.Close()

	if _, err := a.SelectFile(context.Background(), pngFile(t, "a.png")); !errors.Is(err, ErrCameraBusy) {
		t.Errorf("SelectFile: expected ErrCameraBusy, got %v", err)
	}
	if _, err := a.DropFile(context.Background(), []File{pngFile(t, "b.png")}); !errors.Is(err, ErrCameraBusy) {
		t.Errorf("DropFile: expected ErrCameraBusy, got %v", err)
	}
}

func TestSelectFile_CompletionAfterCameraActivatedDiscarded(t *testing.T) {
	a := New(Options{Device: camera.NewTestPattern(16, 16)})
	defer a.Close()
	slow := newGatedFile(pngFile(t, "slow.png"))

	done := make(chan error, 1)
	go func() {
		_, err := a.SelectFile(context.Background(), slow)
		done <- err
	}()
	<-slow.opened

	if err := a.ActivateCamera(context.Background()); err != nil {
		t.Fatalf("ActivateCamera failed: %v", err)
	}
	close(slow.release)

	if err := <-done; !errors.Is(err, ErrCameraBusy) {
		t.Fatalf("expected ErrCameraBusy for the late read, got %v", err)
	}
	if _, ok := a.Current(); ok {
		t.Error("no selection should exist")
	}
	if a.CameraState() != CameraActive {
		t.Errorf("camera state: got %v, want active", a.CameraState())
	}
}

func TestActivateCamera_LateGrantReleased(t *testing.T) {
	dev := newGatedDevice()
	a := New(Options{Device: dev})

	done := make(chan error, 1)
	go func() { done <- a.ActivateCamera(context.Background()) }()
	<-dev.opened

	if a.CameraState() != CameraRequesting {
		t.Fatalf("state: got %v, want requesting", a.CameraState())
	}
	a.DeactivateCamera()
	close(dev.release)

	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
	if a.CameraState() != CameraInactive {
		t.Errorf("state: got %v, want inactive", a.CameraState())
	}
	if dev.inner.LiveTracks() != 0 {
		t.Errorf("late grant left %d live tracks", dev.inner.LiveTracks())
	}
}

func TestActivateCamera_DeniedAfterWait(t *testing.T) {
	dev := newGatedDevice()
	dev.err = camera.ErrPermissionDenied
	a := New(Options{Device: dev})

	done := make(chan error, 1)
	go func() { done <- a.ActivateCamera(context.Background()) }()
	<-dev.opened
	close(dev.release)

	if err := <-done; !errors.Is(err, camera.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if a.CameraState() != CameraInactive {
		t.Errorf("state: got %v, want inactive", a.CameraState())
	}
}

func TestClose_ReleasesCamera(t *testing.T) {
	dev := camera.NewTestPattern(16, 16)
	a := New(Options{Device: dev})
	if err := a.ActivateCamera(context.Background()); err != nil {
		t.Fatalf("ActivateCamera failed: %v", err)
	}

	if err := a.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if dev.LiveTracks() != 0 {
		t.Errorf("LiveTracks after teardown: got %d, want 0", dev.LiveTracks())
	}
	if err := a.ActivateCamera(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if _, err := a.SelectFile(context.Background(), pngFile(t, "a.png")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestClose_DuringRequest(t *testing.T) {
	dev := newGatedDevice()
	a := New(Options{Device: dev})

	done := make(chan error, 1)
	go func() { done <- a.ActivateCamera(context.Background()) }()
	<-dev.opened
	a.Close()
	close(dev.release)

	if err := <-done; !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if dev.inner.LiveTracks() != 0 {
		t.Errorf("teardown left %d live tracks", dev.inner.LiveTracks())
	}
}

func TestCameraState_String(t *testing.T) {
	tests := []struct {
		state CameraState
		want  string
	}{
		{CameraInactive, "inactive"},
		{CameraRequesting, "requesting"},
		{CameraActive, "active"},
		{CameraCapturing, "capturing"},
		{CameraState(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String(%d): got %q, want %q", tt.state, got, tt.want)
		}
	}
}
