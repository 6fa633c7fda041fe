package httpserver

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"storefront/internal/apperror"
	"storefront/internal/domain"
	productsvc "storefront/internal/service/product"
)

type sessionService interface {
	Login(ctx context.Context, username, password string) (*domain.User, error)
	Logout(ctx context.Context)
	CurrentSession(ctx context.Context) *domain.User
}

type catalogService interface {
	List(ctx context.Context, p productsvc.Page) (*domain.ProductPage, error)
	Get(ctx context.Context, id int) (*domain.Product, error)
}

type cartService interface {
	Load(ctx context.Context) (*domain.Cart, error)
	AddLine(ctx context.Context, productID, quantity int) (*domain.Cart, error)
	SetQuantity(ctx context.Context, productID, quantity int) (*domain.Cart, error)
	RemoveLine(ctx context.Context, productID int) (*domain.Cart, error)
	Clear(ctx context.Context) error
}

type checkoutService interface {
	PlaceOrder(ctx context.Context, form domain.CheckoutForm) (*domain.OrderConfirmation, error)
	LastConfirmation(ctx context.Context) (*domain.OrderConfirmation, error)
}

// Deps are the services behind the routes.
type Deps struct {
	Session  sessionService
	Catalog  catalogService
	Cart     cartService
	Checkout checkoutService
	// Ready reports whether the persistent store is reachable.
	Ready func(ctx context.Context) error
	// ErrorLog receives every classified failure; nil disables it.
	ErrorLog     *apperror.Logger
	AllowOrigins []string
}

type handlers struct {
	session  sessionService
	catalog  catalogService
	cart     cartService
	checkout checkoutService
	errLog   *apperror.Logger
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, deps Deps) (*gin.Engine, error) {
	if deps.Session == nil || deps.Catalog == nil || deps.Cart == nil || deps.Checkout == nil {
		return nil, errors.New("httpserver: session, catalog, cart and checkout services are required")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	if len(deps.AllowOrigins) > 0 {
		router.Use(cors.New(corsConfig(deps.AllowOrigins)))
	}

	router.NoRoute(notFoundJSON)
	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.Ready))

	h := &handlers{
		session:  deps.Session,
		catalog:  deps.Catalog,
		cart:     deps.Cart,
		checkout: deps.Checkout,
		errLog:   deps.ErrorLog,
	}

	auth := router.Group("/auth")
	auth.POST("/login", h.login)
	auth.POST("/logout", h.logout)
	auth.GET("/session", h.currentSession)

	products := router.Group("/products")
	products.GET("", h.listProducts)
	products.GET("/:id", h.getProduct)

	cart := router.Group("/cart")
	cart.GET("", h.getCart)
	cart.DELETE("", h.clearCart)
	cart.POST("/items", h.addCartItem)
	cart.PUT("/items/:productId", h.setCartItem)
	cart.DELETE("/items/:productId", h.removeCartItem)

	checkout := router.Group("/checkout")
	checkout.POST("", h.placeOrder)
	checkout.GET("/confirmation", h.lastConfirmation)

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			cfg.AllowCredentials = false
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}

func notFoundJSON(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
}
