package httpserver

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	productsvc "storefront/internal/service/product"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type addItemRequest struct {
	ProductID int `json:"productId"`
	Quantity  int `json:"quantity"`
}

type setItemRequest struct {
	Quantity int `json:"quantity"`
}

type cartResponse struct {
	Cart *domain.Cart `json:"cart"`
}

type sessionResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *domain.User `json:"user"`
}

func (h *handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, "login", badRequest("body", "Request body must be JSON"))
		return
	}
	// A rejected login is a credential problem, not an expired session.
	user, ok := run(c, h, "login", runOptions{noRedirect: true}, func(ctx context.Context) (*domain.User, error) {
		return h.session.Login(ctx, req.Username, req.Password)
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sessionResponse{Authenticated: true, User: user})
}

func (h *handlers) logout(c *gin.Context) {
	h.session.Logout(c.Request.Context())
	c.Status(http.StatusNoContent)
}

func (h *handlers) currentSession(c *gin.Context) {
	user := h.session.CurrentSession(c.Request.Context())
	c.JSON(http.StatusOK, sessionResponse{Authenticated: user != nil, User: user})
}

func (h *handlers) listProducts(c *gin.Context) {
	skip, err := intQuery(c, "skip", 0)
	if err != nil {
		h.fail(c, "products", err)
		return
	}
	limit, err := intQuery(c, "limit", productsvc.DefaultLimit)
	if err != nil {
		h.fail(c, "products", err)
		return
	}
	page := productsvc.Page{Skip: skip, Limit: limit, Query: c.Query("q")}

	out, ok := run(c, h, "products", runOptions{}, func(ctx context.Context) (*domain.ProductPage, error) {
		return h.catalog.List(ctx, page)
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) getProduct(c *gin.Context) {
	id, err := intParam(c, "id")
	if err != nil {
		h.fail(c, "product", err)
		return
	}
	out, ok := run(c, h, "product", runOptions{}, func(ctx context.Context) (*domain.Product, error) {
		return h.catalog.Get(ctx, id)
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) getCart(c *gin.Context) {
	out, ok := run(c, h, "cart", runOptions{}, h.cart.Load)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, cartResponse{Cart: out})
}

func (h *handlers) addCartItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, "cart add", badRequest("body", "Request body must be JSON"))
		return
	}
	if req.ProductID <= 0 {
		h.fail(c, "cart add", badRequest("productId", "Product id must be a positive number"))
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	out, ok := run(c, h, "cart add", runOptions{}, func(ctx context.Context) (*domain.Cart, error) {
		return h.cart.AddLine(ctx, req.ProductID, req.Quantity)
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, cartResponse{Cart: out})
}

func (h *handlers) setCartItem(c *gin.Context) {
	productID, err := intParam(c, "productId")
	if err != nil {
		h.fail(c, "cart update", err)
		return
	}
	var req setItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, "cart update", badRequest("body", "Request body must be JSON"))
		return
	}
	out, ok := run(c, h, "cart update", runOptions{}, func(ctx context.Context) (*domain.Cart, error) {
		return h.cart.SetQuantity(ctx, productID, req.Quantity)
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, cartResponse{Cart: out})
}

func (h *handlers) removeCartItem(c *gin.Context) {
	productID, err := intParam(c, "productId")
	if err != nil {
		h.fail(c, "cart remove", err)
		return
	}
	out, ok := run(c, h, "cart remove", runOptions{}, func(ctx context.Context) (*domain.Cart, error) {
		return h.cart.RemoveLine(ctx, productID)
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, cartResponse{Cart: out})
}

func (h *handlers) clearCart(c *gin.Context) {
	_, ok := run(c, h, "cart clear", runOptions{}, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, h.cart.Clear(ctx)
	})
	if !ok {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) placeOrder(c *gin.Context) {
	var form domain.CheckoutForm
	if err := c.ShouldBindJSON(&form); err != nil {
		h.fail(c, "checkout", badRequest("body", "Request body must be JSON"))
		return
	}
	out, ok := run(c, h, "checkout", runOptions{}, func(ctx context.Context) (*domain.OrderConfirmation, error) {
		return h.checkout.PlaceOrder(ctx, form)
	})
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *handlers) lastConfirmation(c *gin.Context) {
	out, ok := run(c, h, "order confirmation", runOptions{}, h.checkout.LastConfirmation)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, out)
}

// fail renders a request error that never reached a service.
func (h *handlers) fail(c *gin.Context, where string, err error) {
	run(c, h, where, runOptions{noRedirect: true}, func(context.Context) (struct{}, error) {
		return struct{}{}, err
	})
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, badRequest(key, key+" must be a non-negative integer")
	}
	return v, nil
}

func intParam(c *gin.Context, key string) (int, error) {
	v, err := strconv.Atoi(c.Param(key))
	if err != nil || v <= 0 {
		return 0, badRequest(key, key+" must be a positive integer")
	}
	return v, nil
}
