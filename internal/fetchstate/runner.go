// Package fetchstate wraps an operation with in-flight and error state.
// A failure is classified and recorded instead of returned; an
// unauthorized failure also ends the session and asks for a login redirect.
package fetchstate

import (
	"context"
	"sync"

	"storefront/internal/apperror"
)

// LoginPath is where an expired session is sent.
const LoginPath = "/login"

// SessionExpiredMessage accompanies the login redirect.
const SessionExpiredMessage = "Your session has expired. Please log in again."

// Logouter ends the current session.
type Logouter interface {
	Logout(ctx context.Context)
}

// Redirect is a navigation intent for the presentation layer.
type Redirect struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// Option configures a Runner.
type Option func(*options)

type options struct {
	redirect bool
	where    string
	logger   *apperror.Logger
}

// WithoutRedirect records unauthorized failures without logging out.
func WithoutRedirect() Option {
	return func(o *options) { o.redirect = false }
}

// WithLogger sends every failure to l, tagged with where.
func WithLogger(l *apperror.Logger, where string) Option {
	return func(o *options) {
		o.logger = l
		o.where = where
	}
}

// Runner tracks one flow. It is safe for concurrent use, but its state
// reflects the most recent Execute.
type Runner[T any] struct {
	session Logouter
	opts    options

	mu       sync.Mutex
	loading  bool
	err      *apperror.Error
	redirect *Redirect
}

// New returns a Runner; session may be nil when the flow never needs a logout.
func New[T any](session Logouter, opts ...Option) *Runner[T] {
	o := options{redirect: true}
	for _, opt := range opts {
		opt(&o)
	}
	return &Runner[T]{session: session, opts: o}
}

// Execute clears the previous error, marks the flow in flight and runs op.
// On failure it records the classified error and returns the zero value and
// false. The in-flight flag is cleared on every exit path.
func (r *Runner[T]) Execute(ctx context.Context, op func(ctx context.Context) (T, error)) (T, bool) {
	r.mu.Lock()
	r.err = nil
	r.redirect = nil
	r.loading = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.loading = false
		r.mu.Unlock()
	}()

	v, err := op(ctx)
	if err != nil {
		r.HandleError(ctx, err)
		var zero T
		return zero, false
	}
	return v, true
}

// HandleError classifies and records err outside of Execute.
func (r *Runner[T]) HandleError(ctx context.Context, err error) *apperror.Error {
	classified := apperror.Classify(err)
	r.opts.logger.Log(err, classified, r.opts.where)

	var redirect *Redirect
	if classified.Unauthorized() && r.opts.redirect {
		if r.session != nil {
			r.session.Logout(ctx)
		}
		redirect = &Redirect{To: LoginPath, Message: SessionExpiredMessage}
	}

	r.mu.Lock()
	r.err = classified
	r.redirect = redirect
	r.mu.Unlock()
	return classified
}

// Loading reports whether an operation is in flight.
func (r *Runner[T]) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading
}

// Err is the error recorded by the last failed operation, or nil.
func (r *Runner[T]) Err() *apperror.Error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Redirect is the navigation intent of the last failure, or nil.
func (r *Runner[T]) Redirect() *Redirect {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.redirect
}

// ClearError forgets the recorded error and redirect.
func (r *Runner[T]) ClearError() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = nil
	r.redirect = nil
}
