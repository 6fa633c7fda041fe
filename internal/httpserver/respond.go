package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/apperror"
	"storefront/internal/domain"
	"storefront/internal/fetchstate"
)

type errorBody struct {
	Kind        apperror.Kind       `json:"kind"`
	Title       string              `json:"title"`
	Message     string              `json:"message"`
	HTTPStatus  int                 `json:"httpStatus,omitempty"`
	FieldErrors map[string][]string `json:"fieldErrors,omitempty"`
	Retryable   bool                `json:"retryable"`
}

type errorResponse struct {
	Error    errorBody            `json:"error"`
	Redirect *fetchstate.Redirect `json:"redirect,omitempty"`
}

var statusByKind = map[apperror.Kind]int{
	apperror.KindValidation:   http.StatusUnprocessableEntity,
	apperror.KindUnauthorized: http.StatusUnauthorized,
	apperror.KindForbidden:    http.StatusForbidden,
	apperror.KindNotFound:     http.StatusNotFound,
	apperror.KindNetwork:      http.StatusBadGateway,
	apperror.KindServer:       http.StatusBadGateway,
	apperror.KindTimeout:      http.StatusGatewayTimeout,
}

// statusFor maps a classified error onto the response status. Unclassified
// client errors from the remote API keep their own 4xx status.
func statusFor(e *apperror.Error) int {
	if s, ok := statusByKind[e.Kind]; ok {
		return s
	}
	if e.HTTPStatus >= 400 && e.HTTPStatus < 500 {
		return e.HTTPStatus
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, e *apperror.Error, redirect *fetchstate.Redirect) {
	c.AbortWithStatusJSON(statusFor(e), errorResponse{
		Error: errorBody{
			Kind:        e.Kind,
			Title:       e.Kind.Title(),
			Message:     e.Message,
			HTTPStatus:  e.HTTPStatus,
			FieldErrors: e.FieldErrors,
			Retryable:   e.Retryable(),
		},
		Redirect: redirect,
	})
}

// fromDomain lifts the local sentinels into classified errors so they render
// with a meaningful status.
func fromDomain(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNotFound):
		return &apperror.Error{Kind: apperror.KindNotFound, Message: apperror.KindNotFound.DefaultMessage(), HTTPStatus: http.StatusNotFound, Cause: err}
	case errors.Is(err, domain.ErrEmptyCart):
		return &apperror.Error{Kind: apperror.KindValidation, Message: "Your cart is empty.", HTTPStatus: http.StatusUnprocessableEntity, Cause: err}
	case errors.Is(err, domain.ErrNoSession):
		return &apperror.Error{Kind: apperror.KindUnauthorized, Message: apperror.KindUnauthorized.DefaultMessage(), HTTPStatus: http.StatusUnauthorized, Cause: err}
	}
	return err
}

func badRequest(field, msg string) error {
	return apperror.Validation(map[string][]string{field: {msg}})
}

type runOptions struct {
	noRedirect bool
}

// run executes op through a fetch-state runner and renders its recorded
// failure. It reports whether op succeeded; on failure the response is written.
func run[T any](c *gin.Context, h *handlers, where string, ro runOptions, op func(ctx context.Context) (T, error)) (T, bool) {
	opts := []fetchstate.Option{fetchstate.WithLogger(h.errLog, where)}
	if ro.noRedirect {
		opts = append(opts, fetchstate.WithoutRedirect())
	}
	runner := fetchstate.New[T](h.session, opts...)
	v, ok := runner.Execute(c.Request.Context(), func(ctx context.Context) (T, error) {
		v, err := op(ctx)
		return v, fromDomain(err)
	})
	if !ok {
		writeError(c, runner.Err(), runner.Redirect())
	}
	return v, ok
}
