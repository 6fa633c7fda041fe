package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/app"
	"storefront/internal/config"
	"storefront/internal/domain"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand(nil)
	require.NotNil(t, cmd)
	assert.Equal(t, "shopctl", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand(nil)
	paths := [][]string{
		{"login"}, {"logout"}, {"whoami"}, {"products"},
		{"cart", "show"}, {"cart", "add"}, {"cart", "set"}, {"cart", "remove"}, {"cart", "clear"},
	}
	for _, path := range paths {
		t.Run(strings.Join(path, " "), func(t *testing.T) {
			sub, _, err := cmd.Find(path)
			require.NoError(t, err)
			require.NotNil(t, sub)
			assert.Equal(t, path[len(path)-1], sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand(nil)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
}

func TestLoginCommandFlags(t *testing.T) {
	cmd := NewRootCommand(nil)
	login, _, err := cmd.Find([]string{"login"})
	require.NoError(t, err)

	assert.Equal(t, "u", login.Flags().Lookup("username").Shorthand)
	assert.Equal(t, "p", login.Flags().Lookup("password").Shorthand)
}

// fakeShop serves the remote endpoints the commands reach.
func fakeShop(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "emilyspass" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"Invalid credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":1,"username":"emilys","firstName":"Emily","lastName":"Johnson","email":"emily@x.dev","accessToken":"tok"}`))
	})
	mux.HandleFunc("GET /products", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"products":[{"id":1,"title":"Essence Mascara","price":9.99}],"total":194,"skip":0,"limit":20}`))
	})
	mux.HandleFunc("POST /carts/add", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(domain.Cart{ID: 51, Lines: []domain.CartLine{
			{ProductID: 3, Title: "Powder Canister", UnitPrice: 14.99, Quantity: 1},
		}})
	})
	mux.HandleFunc("GET /carts/user/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"carts":[]}`))
	})
	mux.HandleFunc("DELETE /carts/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":1,"isDeleted":true}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// sharedApp returns an opener that hands every command the same in-memory app,
// standing in for a store that persists between invocations.
func sharedApp(t *testing.T, apiURL string) Opener {
	t.Helper()
	cfg := config.FromEnv()
	cfg.StoreDriver = config.DriverMemory
	cfg.APIBaseURL = apiURL
	a, err := app.New(context.Background(), cfg, nil)
	require.NoError(t, err)
	return func(context.Context, *RootOptions) (*app.App, error) { return a, nil }
}

func runCLI(t *testing.T, open Opener, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(open)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestInvalidFormat(t *testing.T) {
	_, err := runCLI(t, sharedApp(t, "http://127.0.0.1:1"), "whoami", "--format", "xml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestLoginWhoamiLogout(t *testing.T) {
	open := sharedApp(t, fakeShop(t).URL)

	out, err := runCLI(t, open, "login", "-u", "emilys", "-p", "emilyspass")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as Emily Johnson")

	out, err = runCLI(t, open, "whoami", "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Status string `json:"status"`
		Data   whoami `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Authenticated)
	assert.Equal(t, "emilys", resp.Data.User.Username)

	_, err = runCLI(t, open, "logout")
	require.NoError(t, err)

	out, err = runCLI(t, open, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in")
}

func TestLoginRejected(t *testing.T) {
	open := sharedApp(t, fakeShop(t).URL)

	out, err := runCLI(t, open, "login", "-u", "emilys", "-p", "wrong", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Invalid credentials")
}

func TestProductsCommand(t *testing.T) {
	open := sharedApp(t, fakeShop(t).URL)

	out, err := runCLI(t, open, "products")
	require.NoError(t, err)
	assert.Contains(t, out, "Essence Mascara")
	assert.Contains(t, out, "next: --skip 20")
}

func TestCartFlow(t *testing.T) {
	open := sharedApp(t, fakeShop(t).URL)

	out, err := runCLI(t, open, "cart", "add", "3", "-n", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Powder Canister")
	assert.Contains(t, out, "1 products, 2 items")

	out, err = runCLI(t, open, "cart", "show", "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Data domain.Cart `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 29.98, resp.Data.Subtotal)

	out, err = runCLI(t, open, "cart", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Cart is empty")
}

func TestCartAddRejectsBadID(t *testing.T) {
	_, err := runCLI(t, sharedApp(t, "http://127.0.0.1:1"), "cart", "add", "abc")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
