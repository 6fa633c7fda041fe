package session

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/apperror"
	"storefront/internal/domain"
	"storefront/internal/repository/kv"
	"storefront/internal/shopapi"
	"storefront/internal/storage"
)

type stubAuth struct {
	resp     shopapi.LoginResponse
	err      error
	calls    int
	lastUser string
	lastPass string
}

func (s *stubAuth) Login(_ context.Context, username, password string) (shopapi.LoginResponse, error) {
	s.calls++
	s.lastUser = username
	s.lastPass = password
	return s.resp, s.err
}

type recordingStore struct {
	*storage.Local
	ops        []string
	setUserErr error
	removeErr  map[string]error
}

func (r *recordingStore) SetUser(ctx context.Context, u domain.User) error {
	r.ops = append(r.ops, "set user")
	if r.setUserErr != nil {
		return r.setUserErr
	}
	return r.Local.SetUser(ctx, u)
}

func (r *recordingStore) RemoveToken(ctx context.Context) error {
	r.ops = append(r.ops, "remove token")
	if err := r.removeErr["token"]; err != nil {
		return err
	}
	return r.Local.RemoveToken(ctx)
}

func (r *recordingStore) RemoveUser(ctx context.Context) error {
	r.ops = append(r.ops, "remove user")
	if err := r.removeErr["user"]; err != nil {
		return err
	}
	return r.Local.RemoveUser(ctx)
}

func (r *recordingStore) RemoveCart(ctx context.Context) error {
	r.ops = append(r.ops, "remove cart")
	if err := r.removeErr["cart"]; err != nil {
		return err
	}
	return r.Local.RemoveCart(ctx)
}

func emily() shopapi.LoginResponse {
	return shopapi.LoginResponse{
		ID: 1, Username: "emilys", Email: "emily.johnson@x.dummyjson.com",
		FirstName: "Emily", LastName: "Johnson", Gender: "female", Image: "https://dummyjson.com/icon/emilys/128",
		AccessToken: "jwt-access", RefreshToken: "jwt-refresh",
	}
}

func newTestService() (*Service, *stubAuth, *recordingStore) {
	auth := &stubAuth{resp: emily()}
	store := &recordingStore{Local: storage.NewLocal(kv.NewMemory()), removeErr: map[string]error{}}
	return New(auth, store, nil), auth, store
}

func TestLoginPersistsNormalizedProfile(t *testing.T) {
	svc, auth, store := newTestService()
	ctx := context.Background()

	u, err := svc.Login(ctx, "  emilys ", "emilyspass")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if auth.lastUser != "emilys" || auth.lastPass != "emilyspass" {
		t.Fatalf("unexpected credentials %q/%q", auth.lastUser, auth.lastPass)
	}
	want := emily().User()
	if *u != want {
		t.Fatalf("expected %+v, got %+v", want, *u)
	}
	if tok, _, _ := store.Token(ctx); tok != "jwt-access" {
		t.Fatalf("expected token persisted, got %q", tok)
	}
	if got := svc.CurrentSession(ctx); got == nil || *got != want {
		t.Fatalf("expected current session, got %+v", got)
	}
	if id, ok := svc.OwnerID(ctx); !ok || id != 1 {
		t.Fatalf("expected owner 1, got %d ok=%v", id, ok)
	}
	if svc.AccessToken(ctx) != "jwt-access" {
		t.Fatalf("expected access token")
	}
}

func TestLoginFailurePersistsNothing(t *testing.T) {
	svc, auth, store := newTestService()
	auth.err = &shopapi.APIError{Status: 400, Message: "Invalid credentials"}
	ctx := context.Background()

	_, err := svc.Login(ctx, "emilys", "wrong")
	classified := apperror.Classify(err)
	if classified.Message != "Invalid credentials" {
		t.Fatalf("expected remote message, got %+v", classified)
	}
	if _, ok, _ := store.Token(ctx); ok {
		t.Fatalf("token must not be stored")
	}
	if u, _ := store.User(ctx); u != nil {
		t.Fatalf("user must not be stored")
	}
	if svc.CurrentSession(ctx) != nil {
		t.Fatalf("expected no session")
	}
}

func TestLoginValidation(t *testing.T) {
	svc, auth, _ := newTestService()
	_, err := svc.Login(context.Background(), " ", "")
	classified := apperror.Classify(err)
	if classified.Kind != apperror.KindValidation || len(classified.FieldErrors) != 2 {
		t.Fatalf("expected validation error for both fields, got %+v", classified)
	}
	if auth.calls != 0 {
		t.Fatalf("remote login must not be called")
	}
}

func TestLoginRollsBackTokenWhenUserWriteFails(t *testing.T) {
	svc, _, store := newTestService()
	store.setUserErr = errors.New("quota exceeded")
	ctx := context.Background()

	if _, err := svc.Login(ctx, "emilys", "emilyspass"); err == nil {
		t.Fatalf("expected error")
	}
	if _, ok, _ := store.Token(ctx); ok {
		t.Fatalf("token must be rolled back")
	}
}

func TestLoginMissingToken(t *testing.T) {
	svc, auth, store := newTestService()
	auth.resp.AccessToken = ""

	_, err := svc.Login(context.Background(), "emilys", "emilyspass")
	if !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
	if len(store.ops) != 0 {
		t.Fatalf("nothing must be written, got %v", store.ops)
	}
}

func TestLogoutClearsEverythingAndNotifiesOnce(t *testing.T) {
	svc, _, store := newTestService()
	ctx := context.Background()
	if _, err := svc.Login(ctx, "emilys", "emilyspass"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	cart := domain.Recalculate(domain.Cart{ID: 1, Lines: []domain.CartLine{{ProductID: 1, UnitPrice: 1, Quantity: 1}}})
	if err := store.SetCart(ctx, cart); err != nil {
		t.Fatalf("SetCart: %v", err)
	}

	var calls []string
	svc.Subscribe(LogoutFunc(func(context.Context) { calls = append(calls, "a") }))
	svc.Subscribe(LogoutFunc(func(context.Context) {
		// the records are gone by the time listeners run
		if svc.CurrentSession(ctx) != nil {
			t.Errorf("session still visible during notification")
		}
		calls = append(calls, "b")
	}))

	store.ops = nil
	svc.Logout(ctx)

	if len(store.ops) != 3 || store.ops[0] != "remove token" || store.ops[1] != "remove user" || store.ops[2] != "remove cart" {
		t.Fatalf("unexpected removal order %v", store.ops)
	}
	if len(calls) != 2 || calls[0] != "a" || calls[1] != "b" {
		t.Fatalf("expected each listener once in order, got %v", calls)
	}
	if svc.CurrentSession(ctx) != nil {
		t.Fatalf("expected no session after logout")
	}
	if c, _ := store.Cart(ctx); c != nil {
		t.Fatalf("persisted cart must be absent after logout")
	}
}

func TestLogoutIsInfallible(t *testing.T) {
	svc, _, store := newTestService()
	store.removeErr["user"] = errors.New("io error")
	notified := 0
	svc.Subscribe(LogoutFunc(func(context.Context) { panic("listener bug") }))
	svc.Subscribe(LogoutFunc(func(context.Context) { notified++ }))

	svc.Logout(context.Background())

	if notified != 1 {
		t.Fatalf("listeners after a failing one must still run, got %d", notified)
	}
	if len(store.ops) != 3 {
		t.Fatalf("every removal must be attempted, got %v", store.ops)
	}
}

func TestUnsubscribe(t *testing.T) {
	svc, _, _ := newTestService()
	n := 0
	unsubscribe := svc.Subscribe(LogoutFunc(func(context.Context) { n++ }))
	svc.Logout(context.Background())
	unsubscribe()
	unsubscribe()
	svc.Logout(context.Background())
	if n != 1 {
		t.Fatalf("expected one notification, got %d", n)
	}
}

func TestCurrentSessionNeedsTokenAndUser(t *testing.T) {
	svc, _, store := newTestService()
	ctx := context.Background()

	_ = store.SetUser(ctx, domain.User{ID: 1})
	if svc.CurrentSession(ctx) != nil {
		t.Fatalf("user without token must not count as a session")
	}
	_ = store.RemoveUser(ctx)
	_ = store.SetToken(ctx, "tok")
	if svc.CurrentSession(ctx) != nil {
		t.Fatalf("token without user must not count as a session")
	}
	if _, ok := svc.OwnerID(ctx); ok {
		t.Fatalf("no owner without a session")
	}
}
