package camera

import (
	"context"
	"errors"
	"image"
)

var (
	// ErrPermissionDenied is returned when the user refuses camera access.
	ErrPermissionDenied = errors.New("camera permission denied")

	// ErrNoDevice is returned when no video device satisfies the constraints.
	ErrNoDevice = errors.New("no camera device available")

	// ErrStreamEnded is returned by Frame once the stream's tracks have stopped.
	ErrStreamEnded = errors.New("camera stream ended")
)

// FacingMode selects which physical camera is preferred.
type FacingMode string

const (
	FacingEnvironment FacingMode = "environment" // rear camera
	FacingUser        FacingMode = "user"        // front camera
)

// Constraints describe the requested video device.
type Constraints struct {
	Facing FacingMode
}

// Track is a single device channel. Stop is idempotent.
type Track interface {
	ID() string
	Kind() string
	Live() bool
	Stop()
}

// Stream is a live media stream granted by a Device.
type Stream interface {
	// Tracks returns every track held by the stream.
	Tracks() []Track

	// Frame returns the current video frame. It fails with ErrStreamEnded
	// once the video track has been stopped.
	Frame(ctx context.Context) (image.Image, error)
}

// Device acquires live streams. Open may block while the platform asks the
// user for consent and must honour ctx cancellation.
type Device interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// StopAll stops every track of s and returns how many were still live.
// A nil stream is a no-op.
func StopAll(s Stream) int {
	if s == nil {
		return 0
	}
	stopped := 0
	for _, t := range s.Tracks() {
		if t.Live() {
			stopped++
		}
		t.Stop()
	}
	return stopped
}

// LiveTracks counts the tracks of s that have not been stopped.
func LiveTracks(s Stream) int {
	if s == nil {
		return 0
	}
	n := 0
	for _, t := range s.Tracks() {
		if t.Live() {
			n++
		}
	}
	return n
}

// Denied is a Device that never grants access.
type Denied struct{}

// Open always fails with ErrPermissionDenied.
func (Denied) Open(ctx context.Context, _ Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, ErrPermissionDenied
}
