package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ironsheep/scan-quiz/internal/acquire"
	"github.com/ironsheep/scan-quiz/internal/app"
	"github.com/ironsheep/scan-quiz/internal/camera"
	"github.com/ironsheep/scan-quiz/internal/imaging"
	"github.com/ironsheep/scan-quiz/internal/present"
	"github.com/ironsheep/scan-quiz/internal/submit"
)

// session drives one acquisition and submission from the terminal.
type session struct {
	app         *app.App
	in          *bufio.Scanner
	out         io.Writer
	errOut      io.Writer
	interactive bool
	logger      *zap.Logger
}

func (s *session) acquire(ctx context.Context, src acquire.ImageSource) int {
	img, err := s.app.Acquirer.Acquire(ctx, src)
	switch {
	case errors.Is(err, acquire.ErrUnsupportedType), errors.Is(err, acquire.ErrNoFile):
		// Not an image: nothing is selected and nothing is shown.
		s.logger.Debug("input ignored", zap.String("source", src.Kind()), zap.Error(err))
		return 1
	case err != nil:
		fmt.Fprintf(s.errOut, "Could not read the image: %v\n", err)
		return 1
	}
	return s.submit(ctx, img)
}

func (s *session) camera(ctx context.Context) int {
	if err := s.app.Acquirer.ActivateCamera(ctx); err != nil {
		// Denial is reported to the operator log only; the camera stays off.
		s.logger.Debug("camera not started", zap.Error(err))
		return 1
	}

	fmt.Fprintln(s.out, "Camera active. Press Enter to capture, or type q to cancel.")
	line, ok := s.readLine()
	if !ok || line == "q" {
		s.app.Acquirer.DeactivateCamera()
		return 0
	}

	img, err := s.app.Acquirer.CaptureFrame(ctx)
	if err != nil {
		fmt.Fprintf(s.errOut, "Capture failed: %v\n", err)
		return 1
	}
	return s.submit(ctx, img)
}

func (s *session) submit(ctx context.Context, img acquire.SelectedImage) int {
	s.describe(img)

	out, ok := s.app.Submit(ctx)
	if !ok {
		return 1
	}
	if out.State() != submit.StateSuccess {
		return 1
	}

	if err := s.app.Presenter.Render(s.out); err != nil {
		return 1
	}
	if !s.interactive || s.app.Presenter.Len() == 0 {
		return 0
	}
	s.quiz()
	return 0
}

// describe stands in for the image preview.
func (s *session) describe(img acquire.SelectedImage) {
	info, err := imaging.Inspect(img.Blob)
	if err != nil {
		fmt.Fprintf(s.out, "Selected %s (%s, %s)\n\n", img.Name, img.MimeType, formatSize(len(img.Blob)))
		return
	}
	fmt.Fprintf(s.out, "Selected %s (%s, %dx%d, %s)\n\n",
		img.Name, img.MimeType, info.Width, info.Height, formatSize(len(img.Blob)))
}

// quiz lets the user reveal and hide answers by number until q or EOF.
func (s *session) quiz() {
	p := s.app.Presenter
	for {
		fmt.Fprintf(s.out, "\nEnter 1-%d to show or hide an answer, or q to quit: ", p.Len())
		line, ok := s.readLine()
		if !ok || line == "q" {
			fmt.Fprintln(s.out)
			return
		}
		n, err := strconv.Atoi(line)
		if err != nil || n < 1 || n > p.Len() {
			continue
		}
		p.Toggle(n - 1)
		fmt.Fprintln(s.out)
		p.Render(s.out)
	}
}

func (s *session) readLine() (string, bool) {
	if !s.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(s.in.Text()), true
}

// showStatus prints the loading notice and failure message as they happen.
func (s *session) showStatus(o submit.Outcome) {
	present.RenderStatus(s.out, o)
}

func formatSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}

// terminalPreview reports the live camera stream in place of a video element.
type terminalPreview struct {
	out io.Writer
}

func (p *terminalPreview) Attach(st camera.Stream) {
	fmt.Fprintf(p.out, "[preview] live, %d track(s)\n", camera.LiveTracks(st))
}

func (p *terminalPreview) Detach() {
	fmt.Fprintln(p.out, "[preview] closed")
}
