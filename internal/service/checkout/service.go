package checkout

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront/internal/apperror"
	"storefront/internal/domain"
)

// DeliveryDays is the estimated delivery window of every order.
const DeliveryDays = 5

type cartEngine interface {
	Load(ctx context.Context) (*domain.Cart, error)
	Clear(ctx context.Context) error
}

type userAPI interface {
	UpdateUserAddress(ctx context.Context, userID int, addr domain.Address) error
}

type sessionSource interface {
	CurrentSession(ctx context.Context) *domain.User
}

type confirmationStore interface {
	OrderConfirmation() (*domain.OrderConfirmation, error)
	SetOrderConfirmation(c domain.OrderConfirmation) error
}

type Service struct {
	cart    cartEngine
	users   userAPI
	session sessionSource
	store   confirmationStore
	logger  *log.Logger

	now   func() time.Time
	newID func() string
}

func New(cart cartEngine, users userAPI, session sessionSource, store confirmationStore, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		cart:    cart,
		users:   users,
		session: session,
		store:   store,
		logger:  logger,
		now:     time.Now,
		newID:   newOrderID,
	}
}

// PlaceOrder validates the form, clears the cart and records the confirmation
// in the ephemeral store.
func (s *Service) PlaceOrder(ctx context.Context, form domain.CheckoutForm) (*domain.OrderConfirmation, error) {
	form = Normalize(form)
	now := s.now()
	if errs := Validate(form, now); len(errs) > 0 {
		return nil, apperror.Validation(errs)
	}

	cart, err := s.cart.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if cart == nil || len(cart.Lines) == 0 {
		return nil, domain.ErrEmptyCart
	}
	cart = cart.Clone()

	if user := s.session.CurrentSession(ctx); user != nil {
		addr := domain.Address{
			Address:    form.Shipping.StreetAddress,
			City:       form.Shipping.DetailAddress,
			PostalCode: form.Shipping.PostalCode,
		}
		if err := s.users.UpdateUserAddress(ctx, user.ID, addr); err != nil {
			s.logger.Printf("checkout: update address user=%d error=%v", user.ID, err)
		}
	}

	if err := s.cart.Clear(ctx); err != nil {
		return nil, fmt.Errorf("clear cart: %w", err)
	}

	conf := domain.OrderConfirmation{
		OrderID:           s.newID(),
		OrderDate:         now.UTC(),
		EstimatedDelivery: now.UTC().AddDate(0, 0, DeliveryDays),
		Shipping:          form.Shipping,
		Payment: domain.OrderPayment{
			Method:       form.Payment.Method,
			CardLastFour: lastFour(form.Payment.CardNumber),
		},
		Summary: summaryOf(cart),
	}
	if err := s.store.SetOrderConfirmation(conf); err != nil {
		s.logger.Printf("checkout: store confirmation order=%s error=%v", conf.OrderID, err)
	}
	s.logger.Printf("checkout: placed order=%s items=%d total=%.2f", conf.OrderID, len(conf.Summary.Items), conf.Summary.Total)
	return &conf, nil
}

// LastConfirmation returns the most recent order confirmation, or domain.ErrNotFound.
func (s *Service) LastConfirmation(context.Context) (*domain.OrderConfirmation, error) {
	conf, err := s.store.OrderConfirmation()
	if err != nil {
		return nil, err
	}
	if conf == nil {
		return nil, domain.ErrNotFound
	}
	return conf, nil
}

func summaryOf(c *domain.Cart) domain.OrderSummary {
	discount := decimal.NewFromFloat(c.Subtotal).Sub(decimal.NewFromFloat(c.DiscountedTotal)).Round(2)
	return domain.OrderSummary{
		Items:       c.Lines,
		Subtotal:    c.Subtotal,
		Discount:    discount.InexactFloat64(),
		ShippingFee: 0,
		Total:       c.DiscountedTotal,
	}
}

func lastFour(card string) string {
	d := digitsOnly(card)
	if len(d) < 4 {
		return ""
	}
	return d[len(d)-4:]
}

func newOrderID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ORD-" + strings.ToUpper(id[:8])
}
