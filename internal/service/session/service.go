package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"storefront/internal/apperror"
	"storefront/internal/domain"
	"storefront/internal/shopapi"
)

// ErrMissingToken is returned when a login response carries no access token.
var ErrMissingToken = errors.New("login response has no access token")

// LogoutListener is told when the session ends so it can drop any state
// that belonged to it.
type LogoutListener interface {
	OnLogout(ctx context.Context)
}

// LogoutFunc adapts a function to LogoutListener.
type LogoutFunc func(ctx context.Context)

func (f LogoutFunc) OnLogout(ctx context.Context) { f(ctx) }

type authAPI interface {
	Login(ctx context.Context, username, password string) (shopapi.LoginResponse, error)
}

type sessionStore interface {
	Token(ctx context.Context) (string, bool, error)
	SetToken(ctx context.Context, token string) error
	RemoveToken(ctx context.Context) error
	User(ctx context.Context) (*domain.User, error)
	SetUser(ctx context.Context, u domain.User) error
	RemoveUser(ctx context.Context) error
	RemoveCart(ctx context.Context) error
}

// Service owns the persisted token and user records.
type Service struct {
	api    authAPI
	store  sessionStore
	logger *log.Logger

	mu        sync.Mutex
	listeners map[int]LogoutListener
	nextID    int
}

func New(api authAPI, store sessionStore, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{api: api, store: store, logger: logger, listeners: make(map[int]LogoutListener)}
}

// Login authenticates against the remote API and persists the token and the
// normalized profile. Nothing is persisted when it fails.
func (s *Service) Login(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	fields := map[string][]string{}
	if username == "" {
		fields["username"] = []string{"Username is required"}
	}
	if password == "" {
		fields["password"] = []string{"Password is required"}
	}
	if len(fields) > 0 {
		return nil, apperror.Validation(fields)
	}

	resp, err := s.api.Login(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, ErrMissingToken
	}

	user := resp.User()
	if err := s.store.SetToken(ctx, resp.AccessToken); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	if err := s.store.SetUser(ctx, user); err != nil {
		if rmErr := s.store.RemoveToken(context.WithoutCancel(ctx)); rmErr != nil {
			s.logger.Printf("session: rollback token failed error=%v", rmErr)
		}
		return nil, fmt.Errorf("store user: %w", err)
	}
	s.logger.Printf("session: login user_id=%d username=%s", user.ID, user.Username)
	return &user, nil
}

// Logout removes the token, the user and the persisted cart, then tells every
// listener exactly once before returning. It never fails; storage errors are
// logged.
func (s *Service) Logout(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	if err := s.store.RemoveToken(ctx); err != nil {
		s.logger.Printf("session: remove token failed error=%v", err)
	}
	if err := s.store.RemoveUser(ctx); err != nil {
		s.logger.Printf("session: remove user failed error=%v", err)
	}
	if err := s.store.RemoveCart(ctx); err != nil {
		s.logger.Printf("session: remove cart failed error=%v", err)
	}

	s.mu.Lock()
	listeners := make([]LogoutListener, 0, len(s.listeners))
	for id := 0; id < s.nextID; id++ {
		if l, ok := s.listeners[id]; ok {
			listeners = append(listeners, l)
		}
	}
	s.mu.Unlock()

	for _, l := range listeners {
		s.notify(ctx, l)
	}
}

func (s *Service) notify(ctx context.Context, l LogoutListener) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("session: logout listener panicked: %v", r)
		}
	}()
	l.OnLogout(ctx)
}

// Subscribe registers l for logout notifications, in subscription order.
// The returned function unsubscribes and may be called more than once.
func (s *Service) Subscribe(l LogoutListener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// CurrentSession returns the stored profile only while a token is stored
// too; otherwise nil.
func (s *Service) CurrentSession(ctx context.Context) *domain.User {
	token, ok, err := s.store.Token(ctx)
	if err != nil {
		s.logger.Printf("session: read token failed error=%v", err)
		return nil
	}
	if !ok || token == "" {
		return nil
	}
	user, err := s.store.User(ctx)
	if err != nil {
		s.logger.Printf("session: read user failed error=%v", err)
		return nil
	}
	return user
}

// Authenticated reports whether a session is present.
func (s *Service) Authenticated(ctx context.Context) bool {
	return s.CurrentSession(ctx) != nil
}

// OwnerID is the signed-in user's id, used as the cart owner.
func (s *Service) OwnerID(ctx context.Context) (int, bool) {
	u := s.CurrentSession(ctx)
	if u == nil {
		return 0, false
	}
	return u.ID, true
}

// AccessToken returns the stored bearer token, or "".
func (s *Service) AccessToken(ctx context.Context) string {
	token, ok, err := s.store.Token(ctx)
	if err != nil || !ok {
		return ""
	}
	return token
}
