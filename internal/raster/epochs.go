package raster

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded marks a render whose result was discarded because a newer request
// for the same view started. It is not a failure.
var ErrSuperseded = errors.New("render superseded by a newer request")

// Epochs tracks the latest render request per view. Each Begin bumps the view's token
// and cancels whatever was in flight for it.
// A view is forgotten once its newest request finishes.
type Epochs struct {
	mu    sync.Mutex
	views map[string]*epoch
	// last token issued, shared by all views so a forgotten view never reuses one
	last uint64
}

type epoch struct {
	token  uint64
	cancel context.CancelFunc
}

// Ticket identifies one render request
type Ticket struct {
	View  string
	Token uint64
}

// NewEpochs creates an empty tracker
func NewEpochs() *Epochs {
	return &Epochs{views: make(map[string]*epoch)}
}

// Begin starts a request for view and returns a context that is cancelled when a
// later request for the same view begins.
func (e *Epochs) Begin(ctx context.Context, view string) (context.Context, Ticket) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ep, ok := e.views[view]
	if !ok {
		ep = &epoch{}
		e.views[view] = ep
	}
	if ep.cancel != nil {
		ep.cancel()
	}

	e.last++
	ep.token = e.last
	rctx, cancel := context.WithCancel(ctx)
	ep.cancel = cancel
	return rctx, Ticket{View: view, Token: ep.token}
}

// Current reports whether t is still the newest request for its view
func (e *Epochs) Current(t Ticket) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	ep, ok := e.views[t.View]
	return ok && ep.token == t.Token
}

// Finish releases t's context and forgets the view. It returns ErrSuperseded when a
// newer request has started, in which case the caller must drop its result.
func (e *Epochs) Finish(t Ticket) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ep, ok := e.views[t.View]
	if !ok || ep.token != t.Token {
		return ErrSuperseded
	}
	if ep.cancel != nil {
		ep.cancel()
	}
	delete(e.views, t.View)
	return nil
}

// Run executes fn under a fresh ticket for view. Results of a superseded run are discarded
// and reported as ErrSuperseded, including when fn stopped early because its context was cancelled.
func Run[T any](ctx context.Context, e *Epochs, view string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	rctx, ticket := e.Begin(ctx, view)
	result, err := fn(rctx)

	if ferr := e.Finish(ticket); ferr != nil {
		return zero, ferr
	}
	if err != nil {
		return zero, err
	}
	return result, nil
}

// IsSuperseded reports whether err means the render was replaced rather than failed
func IsSuperseded(err error) bool {
	return errors.Is(err, ErrSuperseded)
}
