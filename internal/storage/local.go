package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/repository/kv"
)

// Persisted record keys.
const (
	KeyToken = "token"
	KeyUser  = "user"
	KeyCart  = "cart"
)

// ErrCorrupt is returned when a persisted record cannot be decoded.
var ErrCorrupt = errors.New("corrupt record")

// Local gives typed access to the three records of the shopping session.
// The token and user records belong to the session manager and the cart
// record to the cart engine; everything else only reads them.
type Local struct {
	kv kv.Repository
}

// NewLocal wraps repo.
func NewLocal(repo kv.Repository) *Local {
	return &Local{kv: repo}
}

func (l *Local) Token(ctx context.Context) (string, bool, error) {
	return l.kv.Get(ctx, KeyToken)
}

func (l *Local) SetToken(ctx context.Context, token string) error {
	return l.kv.Set(ctx, KeyToken, token)
}

func (l *Local) RemoveToken(ctx context.Context) error {
	return l.kv.Remove(ctx, KeyToken)
}

// AccessToken returns the stored token, or "" when absent or unreadable.
func (l *Local) AccessToken(ctx context.Context) string {
	token, ok, err := l.Token(ctx)
	if err != nil || !ok {
		return ""
	}
	return token
}

// User returns nil when no user is stored.
func (l *Local) User(ctx context.Context) (*domain.User, error) {
	var u domain.User
	ok, err := l.getJSON(ctx, KeyUser, &u)
	if err != nil || !ok {
		return nil, err
	}
	return &u, nil
}

func (l *Local) SetUser(ctx context.Context, u domain.User) error {
	return l.setJSON(ctx, KeyUser, u)
}

func (l *Local) RemoveUser(ctx context.Context) error {
	return l.kv.Remove(ctx, KeyUser)
}

// Cart returns nil when no cart is stored.
func (l *Local) Cart(ctx context.Context) (*domain.Cart, error) {
	var c domain.Cart
	ok, err := l.getJSON(ctx, KeyCart, &c)
	if err != nil || !ok {
		return nil, err
	}
	return &c, nil
}

func (l *Local) SetCart(ctx context.Context, c *domain.Cart) error {
	if c == nil {
		return l.RemoveCart(ctx)
	}
	return l.setJSON(ctx, KeyCart, c)
}

func (l *Local) RemoveCart(ctx context.Context) error {
	return l.kv.Remove(ctx, KeyCart)
}

// ClearAll removes token, user and cart in that order and reports every failure.
func (l *Local) ClearAll(ctx context.Context) error {
	var errs []error
	for _, key := range []string{KeyToken, KeyUser, KeyCart} {
		if err := l.kv.Remove(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func (l *Local) getJSON(ctx context.Context, key string, out any) (bool, error) {
	raw, ok, err := l.kv.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return true, nil
}

func (l *Local) setJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return l.kv.Set(ctx, key, string(raw))
}
