// Package app composes acquisition, submission and presentation into the
// single flow a front end drives: pick an image, submit it, read the result.
package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/ironsheep/scan-quiz/internal/acquire"
	"github.com/ironsheep/scan-quiz/internal/camera"
	"github.com/ironsheep/scan-quiz/internal/present"
	"github.com/ironsheep/scan-quiz/internal/submit"
)

// Options configures an App.
type Options struct {
	Recognizer  submit.Recognizer
	Device      camera.Device
	Facing      camera.FacingMode
	JPEGQuality int
	Preview     acquire.PreviewSurface

	// OnOutcome is called after the presenter has seen each transition.
	OnOutcome submit.Observer

	Logger *zap.Logger
}

// App wires an Acquirer to a Controller and a Presenter.
type App struct {
	Acquirer   *acquire.Acquirer
	Controller *submit.Controller
	Presenter  *present.Presenter

	logger *zap.Logger
}

// New builds an App. The presenter observes the controller, so a new
// submission always clears the previous result and its disclosure state.
func New(opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	p := present.NewPresenter()
	observers := []submit.Option{
		submit.WithLogger(logger),
		submit.WithObserver(p.Update),
	}
	if opts.OnOutcome != nil {
		observers = append(observers, submit.WithObserver(opts.OnOutcome))
	}

	return &App{
		Acquirer: acquire.New(acquire.Options{
			Device:      opts.Device,
			Facing:      opts.Facing,
			JPEGQuality: opts.JPEGQuality,
			Preview:     opts.Preview,
			Logger:      logger,
		}),
		Controller: submit.New(opts.Recognizer, observers...),
		Presenter:  p,
		logger:     logger.Named("app"),
	}
}

// CanSubmit reports whether the submit control is enabled: an image with a
// preview is selected, the camera is Inactive and no request is Loading.
func (a *App) CanSubmit() bool {
	return a.Acquirer.CanSubmit() && !a.Controller.Loading()
}

// Submit sends the current selection. It returns false without side effects
// when CanSubmit is false.
func (a *App) Submit(ctx context.Context) (submit.Outcome, bool) {
	if !a.CanSubmit() {
		a.logger.Debug("submit control disabled",
			zap.Stringer("camera", a.Acquirer.CameraState()),
			zap.Bool("loading", a.Controller.Loading()))
		return a.Controller.Outcome(), false
	}
	img, ok := a.Acquirer.Current()
	if !ok {
		return a.Controller.Outcome(), false
	}
	return a.Controller.Submit(ctx, img)
}

// Close tears the App down, releasing the camera if it is active.
func (a *App) Close() error {
	return a.Acquirer.Close()
}
