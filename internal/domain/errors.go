package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrNoLineData is returned when the remote add-to-cart response carries no usable line.
	ErrNoLineData = errors.New("product not found in cart response")
	// ErrNoSession indicates an operation needs an authenticated session.
	ErrNoSession = errors.New("no active session")
	// ErrEmptyCart is returned when an order is placed without cart lines.
	ErrEmptyCart = errors.New("cart is empty")
)
