package shopapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"storefront/internal/domain"
)

// LoginResponse is the body of POST /auth/login.
type LoginResponse struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Gender       string `json:"gender"`
	Image        string `json:"image"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// User keeps only the profile fields of the login response.
func (r LoginResponse) User() domain.User {
	return domain.User{
		ID:        r.ID,
		Username:  r.Username,
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Gender:    r.Gender,
		Image:     r.Image,
	}
}

// LineUpdate is one product entry of a cart add/update request.
type LineUpdate struct {
	ID       int `json:"id"`
	Quantity int `json:"quantity"`
}

// ProductList is the body of the product list and search endpoints.
type ProductList struct {
	Products []domain.Product `json:"products"`
	Total    int              `json:"total"`
	Skip     int              `json:"skip"`
	Limit    int              `json:"limit"`
}

func (c *Client) Login(ctx context.Context, username, password string) (LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/login",
		body:   map[string]string{"username": username, "password": password},
	}, &out)
	return out, err
}

// CartsByUser lists the carts the remote API knows for userID.
func (c *Client) CartsByUser(ctx context.Context, userID int) ([]domain.Cart, error) {
	var out struct {
		Carts []domain.Cart `json:"carts"`
	}
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/carts/user/" + strconv.Itoa(userID),
		auth:   true,
	}, &out)
	return out.Carts, err
}

// AddToCart asks the remote API to add a product. The response is only
// trusted for per-line product data, never for its totals.
func (c *Client) AddToCart(ctx context.Context, userID, productID, quantity int) (*domain.Cart, error) {
	var out domain.Cart
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/carts/add",
		body: map[string]any{
			"userId":   userID,
			"products": []LineUpdate{{ID: productID, Quantity: quantity}},
		},
		auth: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCart merges lines into cartID.
func (c *Client) UpdateCart(ctx context.Context, cartID int, lines []LineUpdate) (*domain.Cart, error) {
	var out domain.Cart
	err := c.do(ctx, request{
		method: http.MethodPut,
		path:   "/carts/" + strconv.Itoa(cartID),
		body:   map[string]any{"merge": true, "products": lines},
		auth:   true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteCart(ctx context.Context, cartID int) error {
	return c.do(ctx, request{
		method: http.MethodDelete,
		path:   "/carts/" + strconv.Itoa(cartID),
		auth:   true,
	}, nil)
}

func (c *Client) Products(ctx context.Context, skip, limit int) (ProductList, error) {
	var out ProductList
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/products",
		query:  pageQuery(skip, limit),
	}, &out)
	return out, err
}

func (c *Client) SearchProducts(ctx context.Context, q string, skip, limit int) (ProductList, error) {
	query := pageQuery(skip, limit)
	query.Set("q", strings.TrimSpace(q))
	var out ProductList
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/products/search",
		query:  query,
	}, &out)
	return out, err
}

func (c *Client) Product(ctx context.Context, id int) (domain.Product, error) {
	var out domain.Product
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/products/" + strconv.Itoa(id),
	}, &out)
	return out, err
}

// UpdateUserAddress pushes a shipping address to the user record. The demo
// API acknowledges the update without storing it.
func (c *Client) UpdateUserAddress(ctx context.Context, userID int, addr domain.Address) error {
	if userID <= 0 {
		return fmt.Errorf("update address: invalid user id %d", userID)
	}
	return c.do(ctx, request{
		method: http.MethodPut,
		path:   "/users/" + strconv.Itoa(userID),
		body:   map[string]any{"address": addr},
		auth:   true,
	}, nil)
}

func pageQuery(skip, limit int) url.Values {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("skip", strconv.Itoa(skip))
	return q
}
