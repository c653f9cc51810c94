package submit

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ironsheep/scan-quiz/internal/acquire"
	"github.com/ironsheep/scan-quiz/internal/ocrapi"
)

// Recognizer performs one recognition exchange. *ocrapi.Client satisfies it.
type Recognizer interface {
	Recognize(ctx context.Context, name, mimeType string, blob []byte) (*ocrapi.Result, error)
}

// Observer is notified of every outcome transition, in order, outside the
// controller's state lock. Observers may call Outcome and Loading but must
// not call Submit.
type Observer func(Outcome)

// Option customizes a Controller.
type Option func(*Controller)

// WithObserver registers an observer.
func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observers = append(c.observers, o) }
}

// WithLogger sets the operator logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// Controller owns the request lifecycle. It is safe for concurrent use.
type Controller struct {
	rec       Recognizer
	observers []Observer
	logger    *zap.Logger

	mu      sync.Mutex
	outcome Outcome
	seq     uint64

	// notifyMu serializes observer delivery so transitions arrive in order.
	notifyMu sync.Mutex
}

// New creates an Idle controller.
func New(rec Recognizer, opts ...Option) *Controller {
	c := &Controller{
		rec:     rec,
		outcome: Idle{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("submit")
	return c
}

// Outcome returns the current outcome.
func (c *Controller) Outcome() Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome
}

// Loading reports whether a request is in flight.
func (c *Controller) Loading() bool {
	return c.Outcome().State() == StateLoading
}

// Submit sends img to the recognizer and blocks until the exchange ends.
// It returns the terminal outcome and true, or the current outcome and false
// when the call was ignored because a request is already Loading or img is empty.
func (c *Controller) Submit(ctx context.Context, img acquire.SelectedImage) (Outcome, bool) {
	// Lock order is notifyMu then mu. Observers may read state under notifyMu.
	c.notifyMu.Lock()
	c.mu.Lock()
	if c.outcome.State() == StateLoading {
		current := c.outcome
		c.mu.Unlock()
		c.notifyMu.Unlock()
		c.logger.Debug("ignoring submit while loading")
		return current, false
	}
	if len(img.Blob) == 0 {
		current := c.outcome
		c.mu.Unlock()
		c.notifyMu.Unlock()
		c.logger.Debug("ignoring submit without image")
		return current, false
	}
	c.seq++
	seq := c.seq
	c.outcome = Loading{Seq: seq}
	c.mu.Unlock()
	c.deliver(Loading{Seq: seq})
	c.notifyMu.Unlock()

	c.logger.Info("submitting image",
		zap.Uint64("seq", seq),
		zap.String("name", img.Name),
		zap.String("source", img.Source),
		zap.Int("bytes", len(img.Blob)))

	var next Outcome
	res, err := c.rec.Recognize(ctx, img.Name, img.MimeType, img.Blob)
	if err != nil {
		c.logger.Warn("error processing image", zap.Uint64("seq", seq), zap.Error(err))
		next = Failure{Seq: seq, Message: GenericErrorMessage}
	} else {
		pairs := make([]ocrapi.QAPair, len(res.QAPairs))
		copy(pairs, res.QAPairs)
		next = Success{Seq: seq, Text: res.Text, QAPairs: pairs}
	}

	c.notifyMu.Lock()
	c.mu.Lock()
	c.outcome = next
	c.mu.Unlock()
	c.deliver(next)
	c.notifyMu.Unlock()
	return next, true
}

func (c *Controller) deliver(o Outcome) {
	for _, obs := range c.observers {
		obs(o)
	}
}
