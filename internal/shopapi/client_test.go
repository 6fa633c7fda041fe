package shopapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"storefront/internal/apperror"
	"storefront/internal/domain"
)

type staticToken string

func (s staticToken) AccessToken(context.Context) string { return string(s) }

func newTestClient(t *testing.T, h http.HandlerFunc, cfg Config) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg.BaseURL = srv.URL
	c, err := New(cfg, staticToken("tok-123"), nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestLogin(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/login" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if auth := r.Header.Get("Authorization"); auth != "" {
			t.Errorf("login must not carry a token, got %q", auth)
		}

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["username"] != "emilys" || body["password"] != "emilyspass" {
			t.Errorf("credentials = %v", body)
		}

		_, _ = w.Write([]byte(`{"id":1,"username":"emilys","email":"emily@x.dev","firstName":"Emily","lastName":"Johnson","gender":"female","image":"i.png","accessToken":"jwt","refreshToken":"r","extra":"dropped"}`))
	}, Config{})

	resp, err := c.Login(context.Background(), "emilys", "emilyspass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.AccessToken != "jwt" {
		t.Errorf("access token = %q", resp.AccessToken)
	}
	want := domain.User{ID: 1, Username: "emilys", Email: "emily@x.dev", FirstName: "Emily", LastName: "Johnson", Gender: "female", Image: "i.png"}
	if got := resp.User(); got != want {
		t.Errorf("user = %+v, want %+v", got, want)
	}
}

func TestCartRequestsCarryBearerToken(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Method+" "+r.URL.Path+" "+r.Header.Get("Authorization"))
		mu.Unlock()
		switch r.URL.Path {
		case "/carts/user/5":
			_, _ = w.Write([]byte(`{"carts":[{"id":7,"userId":5,"products":[{"id":1,"price":2,"quantity":1,"total":2}]}]}`))
		case "/carts/add":
			var body struct {
				UserID   int          `json:"userId"`
				Products []LineUpdate `json:"products"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode add body: %v", err)
			}
			if body.UserID != 5 || !reflect.DeepEqual(body.Products, []LineUpdate{{ID: 9, Quantity: 2}}) {
				t.Errorf("add body = %+v", body)
			}
			_, _ = w.Write([]byte(`{"id":51,"products":[{"id":9,"title":"T","price":3.5,"quantity":2,"total":7,"discountPercentage":10}]}`))
		case "/carts/7":
			if r.Method == http.MethodPut {
				var body map[string]any
				if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
					t.Errorf("decode update body: %v", err)
				}
				if body["merge"] != true {
					t.Errorf("update must merge, got %v", body)
				}
			}
			_, _ = w.Write([]byte(`{"id":7}`))
		default:
			http.NotFound(w, r)
		}
	}, Config{})
	ctx := context.Background()

	carts, err := c.CartsByUser(ctx, 5)
	if err != nil {
		t.Fatalf("carts by user: %v", err)
	}
	if len(carts) != 1 || carts[0].ID != 7 {
		t.Fatalf("carts = %+v", carts)
	}

	added, err := c.AddToCart(ctx, 5, 9, 2)
	if err != nil {
		t.Fatalf("add to cart: %v", err)
	}
	line, ok := added.Line(9)
	if !ok || line.UnitPrice != 3.5 {
		t.Fatalf("line = %+v, %v", line, ok)
	}

	if _, err := c.UpdateCart(ctx, 7, []LineUpdate{{ID: 9, Quantity: 3}}); err != nil {
		t.Fatalf("update cart: %v", err)
	}
	if err := c.DeleteCart(ctx, 7); err != nil {
		t.Fatalf("delete cart: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 4 {
		t.Fatalf("requests = %v", seen)
	}
	for _, s := range seen {
		if !strings.Contains(s, "Bearer tok-123") {
			t.Errorf("request without token: %q", s)
		}
	}
}

func TestProductsAndSearchQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "" {
			t.Errorf("catalog request carried %q", auth)
		}
		q := r.URL.Query()
		switch r.URL.Path {
		case "/products":
			if q.Get("limit") != "20" || q.Get("skip") != "40" {
				t.Errorf("paging = %v", q)
			}
		case "/products/search":
			if q.Get("q") != "red lipstick" {
				t.Errorf("q = %q", q.Get("q"))
			}
		case "/products/3":
			_, _ = w.Write([]byte(`{"id":3,"title":"Powder","price":14.99}`))
			return
		}
		_, _ = w.Write([]byte(`{"products":[{"id":1,"title":"A"}],"total":194,"skip":40,"limit":20}`))
	}, Config{})
	ctx := context.Background()

	list, err := c.Products(ctx, 40, 20)
	if err != nil {
		t.Fatalf("products: %v", err)
	}
	if list.Total != 194 {
		t.Errorf("total = %d", list.Total)
	}

	if _, err := c.SearchProducts(ctx, "  red lipstick ", 0, 20); err != nil {
		t.Fatalf("search: %v", err)
	}

	p, err := c.Product(ctx, 3)
	if err != nil {
		t.Fatalf("product: %v", err)
	}
	if p.Title != "Powder" {
		t.Errorf("title = %q", p.Title)
	}
}

func TestErrorResponses(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		kind    apperror.Kind
		message string
	}{
		{"body message", http.StatusBadRequest, `{"message":"Invalid credentials"}`, apperror.KindUnknown, "Invalid credentials"},
		{"fixed 404 wording", http.StatusNotFound, `{"message":"Product with id '9999' not found"}`, apperror.KindNotFound, "Resource not found."},
		{"unauthorized", http.StatusUnauthorized, `{}`, apperror.KindUnauthorized, "Unauthorized. Please login again."},
		{"no body", http.StatusTeapot, ``, apperror.KindUnknown, "API Error: 418 I'm a teapot"},
		{"bad gateway", http.StatusBadGateway, `<html>`, apperror.KindServer, "API Error: 502 Bad Gateway"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}, Config{})

			_, err := c.Product(context.Background(), 1)
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want *APIError", err)
			}
			if apiErr.Status != tc.status {
				t.Errorf("status = %d", apiErr.Status)
			}

			classified := apperror.Classify(err)
			if classified.Kind != tc.kind || classified.Message != tc.message {
				t.Errorf("classified = %q %q, want %q %q", classified.Kind, classified.Message, tc.kind, tc.message)
			}
		})
	}
}

func TestValidationFieldErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"Invalid address","errors":{"postalCode":["Postal code is invalid"]}}`))
	}, Config{})

	err := c.UpdateUserAddress(context.Background(), 1, domain.Address{Address: "1 Main St"})
	classified := apperror.Classify(err)
	if classified.Kind != apperror.KindValidation || classified.Message != "Invalid address" {
		t.Fatalf("classified = %+v", classified)
	}
	if got := classified.FieldErrors["postalCode"]; !reflect.DeepEqual(got, []string{"Postal code is invalid"}) {
		t.Errorf("postalCode errors = %v", got)
	}
}

func TestUndecodableSuccessBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<!doctype html>`))
	}, Config{})

	_, err := c.Product(context.Background(), 1)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Message != "Failed to parse response as JSON" {
		t.Errorf("message = %q", apiErr.Message)
	}
	if kind := apperror.Classify(err).Kind; kind != apperror.KindUnknown {
		t.Errorf("kind = %q", kind)
	}
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: base}, nil, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = c.Products(context.Background(), 0, 20)
	if !errors.Is(err, apperror.ErrNetwork) {
		t.Fatalf("err = %v, want ErrNetwork", err)
	}
	if kind := apperror.Classify(err).Kind; kind != apperror.KindNetwork {
		t.Errorf("kind = %q", kind)
	}
}

func TestTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}, Config{Timeout: 20 * time.Millisecond})

	_, err := c.Products(context.Background(), 0, 20)
	if err == nil {
		t.Fatalf("expected timeout")
	}
	if errors.Is(err, apperror.ErrNetwork) {
		t.Errorf("timeout reported as network failure: %v", err)
	}
	if kind := apperror.Classify(err).Kind; kind != apperror.KindTimeout {
		t.Errorf("kind = %q", kind)
	}
}

func TestCanceledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {}, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Products(ctx, 0, 20)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if kind := apperror.Classify(err).Kind; kind != apperror.KindTimeout {
		t.Errorf("kind = %q", kind)
	}
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, Config{BreakerThreshold: 2, BreakerCooldown: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := c.Products(ctx, 0, 20)
		if kind := apperror.Classify(err).Kind; kind != apperror.KindServer {
			t.Errorf("call %d: kind = %q", i, kind)
		}
	}
	_, err := c.Products(ctx, 0, 20)
	if !errors.Is(err, apperror.ErrNetwork) {
		t.Errorf("open breaker err = %v, want ErrNetwork", err)
	}
	if kind := apperror.Classify(err).Kind; kind != apperror.KindNetwork {
		t.Errorf("kind = %q", kind)
	}
	if n := hits.Load(); n != 2 {
		t.Errorf("server hits = %d; open breaker must not reach the server", n)
	}
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}, Config{BreakerThreshold: 1})

	for i := 0; i < 3; i++ {
		_, err := c.Product(context.Background(), 9999)
		if kind := apperror.Classify(err).Kind; kind != apperror.KindNotFound {
			t.Errorf("call %d: kind = %q", i, kind)
		}
	}
	if n := hits.Load(); n != 3 {
		t.Errorf("server hits = %d", n)
	}
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	if _, err := New(Config{BaseURL: "not a url"}, nil, nil); err == nil {
		t.Fatalf("expected error")
	}
}
