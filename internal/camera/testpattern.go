package camera

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"sync"
	"sync/atomic"

	"github.com/anthonynsimon/bild/blend"
	"github.com/anthonynsimon/bild/noise"
	"github.com/google/uuid"
	"github.com/lucasb-eyer/go-colorful"
)

// barCount is the number of vertical colour bars in a test frame.
const barCount = 7

// TestPattern is a synthetic camera. Each Frame call renders colour bars that
// drift one bar-width per call, overlaid with monochrome Gaussian noise.
//
// TestPattern is safe for concurrent use.
type TestPattern struct {
	// Width and Height are the frame dimensions in pixels.
	Width  int
	Height int

	// Noise is the noise overlay opacity in the range [0, 1].
	Noise float64

	// Facing, when set, restricts Open to matching constraints. A mismatch
	// yields ErrNoDevice.
	Facing FacingMode

	live   atomic.Int64
	opened atomic.Int64
}

// NewTestPattern creates a rear-facing test camera with light noise.
func NewTestPattern(width, height int) *TestPattern {
	return &TestPattern{
		Width:  width,
		Height: height,
		Noise:  0.08,
		Facing: FacingEnvironment,
	}
}

// Open grants a stream with a single video track.
func (d *TestPattern) Open(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.Width <= 0 || d.Height <= 0 {
		return nil, fmt.Errorf("invalid test pattern size %dx%d: %w", d.Width, d.Height, ErrNoDevice)
	}
	if d.Facing != "" && c.Facing != "" && c.Facing != d.Facing {
		return nil, fmt.Errorf("facing mode %q: %w", c.Facing, ErrNoDevice)
	}

	d.opened.Add(1)
	d.live.Add(1)
	return &patternStream{
		dev:   d,
		track: &patternTrack{id: uuid.NewString(), dev: d},
	}, nil
}

// LiveTracks reports how many tracks opened by this device are still live.
func (d *TestPattern) LiveTracks() int {
	return int(d.live.Load())
}

// Opened reports how many streams the device has granted.
func (d *TestPattern) Opened() int {
	return int(d.opened.Load())
}

type patternStream struct {
	dev   *TestPattern
	track *patternTrack

	mu    sync.Mutex
	frame int
}

func (s *patternStream) Tracks() []Track {
	return []Track{s.track}
}

func (s *patternStream) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.track.Live() {
		return nil, ErrStreamEnded
	}

	s.mu.Lock()
	offset := s.frame
	s.frame++
	s.mu.Unlock()

	bars := renderBars(s.dev.Width, s.dev.Height, offset)
	if s.dev.Noise <= 0 {
		return bars, nil
	}
	grain := noise.Generate(s.dev.Width, s.dev.Height, &noise.Options{
		NoiseFn:    noise.Gaussian,
		Monochrome: true,
	})
	return blend.Opacity(bars, grain, s.dev.Noise), nil
}

// renderBars draws barCount evenly spaced hues, rotated by offset bars.
func renderBars(width, height, offset int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	barWidth := width / barCount
	if barWidth < 1 {
		barWidth = 1
	}
	for i := 0; i < barCount; i++ {
		hue := float64((i+offset)%barCount) * 360.0 / barCount
		c := colorful.Hsv(hue, 0.85, 0.9)
		x1 := i * barWidth
		x2 := x1 + barWidth
		if i == barCount-1 {
			x2 = width
		}
		draw.Draw(img, image.Rect(x1, 0, x2, height), image.NewUniform(c), image.Point{}, draw.Src)
	}
	return img
}

type patternTrack struct {
	id      string
	dev     *TestPattern
	stopped atomic.Bool
}

func (t *patternTrack) ID() string   { return t.id }
func (t *patternTrack) Kind() string { return "video" }
func (t *patternTrack) Live() bool   { return !t.stopped.Load() }

func (t *patternTrack) Stop() {
	if t.stopped.CompareAndSwap(false, true) {
		t.dev.live.Add(-1)
	}
}
