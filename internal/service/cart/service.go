package cart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"storefront/internal/apperror"
	"storefront/internal/domain"
	"storefront/internal/shopapi"
	"storefront/internal/storage"
)

// Service is the cart reconciliation engine. It owns the single cart of the
// shopping session and is the only writer of the persisted cart record.
// Every mutation calls the remote API first and commits locally only after
// the remote call succeeded.
type Service struct {
	api    cartAPI
	store  cartStore
	owner  ownerSource
	cfg    Config
	logger *log.Logger

	mu      sync.Mutex
	current *domain.Cart
	loaded  bool
	// epoch advances on every logout; a commit carrying an older epoch is dropped
	epoch uint64

	loads singleflight.Group
}

// ErrSessionEnded is returned by a mutation whose session ended while its
// remote call was in flight. Nothing was persisted.
var ErrSessionEnded = fmt.Errorf("cart update outlived its session: %w", domain.ErrNoSession)

type cartAPI interface {
	CartsByUser(ctx context.Context, userID int) ([]domain.Cart, error)
	AddToCart(ctx context.Context, userID, productID, quantity int) (*domain.Cart, error)
	UpdateCart(ctx context.Context, cartID int, lines []shopapi.LineUpdate) (*domain.Cart, error)
	DeleteCart(ctx context.Context, cartID int) error
}

type cartStore interface {
	Cart(ctx context.Context) (*domain.Cart, error)
	SetCart(ctx context.Context, c *domain.Cart) error
	RemoveCart(ctx context.Context) error
}

type ownerSource interface {
	OwnerID(ctx context.Context) (int, bool)
}

// Config holds the demo identities used when the session has none.
type Config struct {
	// DemoUserID owns the cart when nobody is signed in.
	DemoUserID int
	// DemoCartID is the id given to carts created locally; the remote API
	// only accepts updates against carts it already knows.
	DemoCartID int
}

// New builds the engine. owner may be nil, in which case the demo user owns the cart.
func New(api cartAPI, store cartStore, owner ownerSource, cfg Config, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if cfg.DemoUserID <= 0 {
		cfg.DemoUserID = 1
	}
	if cfg.DemoCartID <= 0 {
		cfg.DemoCartID = 1
	}
	return &Service{api: api, store: store, owner: owner, cfg: cfg, logger: logger}
}

// Current returns a copy of the in-memory cart without touching storage or the network.
func (s *Service) Current() *domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Load returns the persisted cart when there is one and makes no remote call
// in that case. Otherwise it adopts the first remote cart of the owner.
// A nil cart with a nil error means neither source has one.
func (s *Service) Load(ctx context.Context) (*domain.Cart, error) {
	cur, epoch, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if cur != nil {
		return cur, nil
	}

	owner := s.ownerID(ctx)
	// the shared call outlives any single caller
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.loads.Do(strconv.Itoa(owner), func() (any, error) {
		return s.api.CartsByUser(shared, owner)
	})
	if err != nil {
		return nil, fmt.Errorf("load remote cart: %w", err)
	}
	carts, _ := v.([]domain.Cart)
	if len(carts) == 0 {
		return nil, nil
	}

	adopted := domain.Recalculate(carts[0])
	return s.commit(ctx, epoch, func(cur *domain.Cart) *domain.Cart {
		// a mutation may have committed while the remote load was in flight
		if cur != nil {
			return cur
		}
		return adopted
	})
}

// AddLine adds quantity of productID. The remote add response is only used
// for the product's price, title, discount and thumbnail.
func (s *Service) AddLine(ctx context.Context, productID, quantity int) (*domain.Cart, error) {
	if quantity <= 0 {
		return nil, apperror.Validation(map[string][]string{"quantity": {"Quantity must be at least 1"}})
	}

	epoch := s.currentEpoch()
	owner := s.ownerID(ctx)
	resp, err := s.api.AddToCart(ctx, owner, productID, quantity)
	if err != nil {
		return nil, fmt.Errorf("add to cart: %w", err)
	}
	ref, ok := resp.Line(productID)
	if !ok {
		return nil, domain.ErrNoLineData
	}

	return s.commit(ctx, epoch, func(cur *domain.Cart) *domain.Cart {
		return mergeLine(cur, ref, quantity, owner, s.cfg.DemoCartID)
	})
}

// SetQuantity sets the quantity of productID; a quantity <= 0 removes the line.
// Without a cart, or when the product has no line, it does nothing and makes
// no remote call.
func (s *Service) SetQuantity(ctx context.Context, productID, quantity int) (*domain.Cart, error) {
	if quantity <= 0 {
		return s.RemoveLine(ctx, productID)
	}

	cur, epoch, err := s.snapshot(ctx)
	if err != nil || cur == nil {
		return nil, err
	}
	if _, ok := cur.Line(productID); !ok {
		return cur, nil
	}

	if _, err := s.api.UpdateCart(ctx, cur.ID, []shopapi.LineUpdate{{ID: productID, Quantity: quantity}}); err != nil {
		return nil, fmt.Errorf("update cart: %w", err)
	}

	return s.commit(ctx, epoch, func(cur *domain.Cart) *domain.Cart {
		return setLineQuantity(cur, productID, quantity)
	})
}

// RemoveLine drops productID. Removing the last line discards the cart.
func (s *Service) RemoveLine(ctx context.Context, productID int) (*domain.Cart, error) {
	cur, epoch, err := s.snapshot(ctx)
	if err != nil || cur == nil {
		return nil, err
	}
	if _, ok := cur.Line(productID); !ok {
		return cur, nil
	}

	if _, err := s.api.UpdateCart(ctx, cur.ID, []shopapi.LineUpdate{{ID: productID, Quantity: 0}}); err != nil {
		return nil, fmt.Errorf("remove from cart: %w", err)
	}

	return s.commit(ctx, epoch, func(cur *domain.Cart) *domain.Cart {
		return setLineQuantity(cur, productID, 0)
	})
}

// Clear discards the cart. The remote delete runs first and its failure
// leaves the cart in place. Clearing when there is no cart never fails
// on the remote side.
func (s *Service) Clear(ctx context.Context) error {
	cur, epoch, err := s.snapshot(ctx)
	if err != nil {
		return err
	}
	if cur != nil {
		if err := s.api.DeleteCart(ctx, cur.ID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
	}
	_, err = s.commit(ctx, epoch, func(*domain.Cart) *domain.Cart { return nil })
	return err
}

// Reset forgets the in-memory cart without any remote call or storage write.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.loaded = false
}

// OnLogout ends the cart of the session: the persisted record is removed and
// mutations still waiting on the remote API are dropped when they return.
func (s *Service) OnLogout(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	s.current = nil
	if err := s.store.RemoveCart(ctx); err != nil {
		s.logger.Printf("cart: remove on logout failed error=%v", err)
		s.loaded = false
		return
	}
	s.loaded = true
}

func (s *Service) currentEpoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

func (s *Service) snapshot(ctx context.Context) (*domain.Cart, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.loadedLocked(ctx)
	if err != nil {
		return nil, 0, err
	}
	return cur.Clone(), s.epoch, nil
}

// commit re-reads the current cart, applies next to a copy, persists the
// result and only then swaps it in. Persisting is detached from ctx so a
// caller that goes away cannot undo a mutation the remote side accepted.
// epoch is the value seen before the remote call; a logout since then wins.
func (s *Service) commit(ctx context.Context, epoch uint64, next func(cur *domain.Cart) *domain.Cart) (*domain.Cart, error) {
	ctx = context.WithoutCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		return nil, ErrSessionEnded
	}

	cur, err := s.loadedLocked(ctx)
	if err != nil {
		return nil, err
	}
	updated := next(cur.Clone())

	if updated == nil {
		err = s.store.RemoveCart(ctx)
	} else {
		err = s.store.SetCart(ctx, updated)
	}
	if err != nil {
		s.logger.Printf("cart: persist failed error=%v", err)
		return nil, fmt.Errorf("persist cart: %w", err)
	}

	s.current = updated
	s.loaded = true
	return updated.Clone(), nil
}

// loadedLocked returns the in-memory cart, reading the persisted record the
// first time. A corrupt record is dropped. s.mu must be held.
func (s *Service) loadedLocked(ctx context.Context) (*domain.Cart, error) {
	if s.loaded {
		return s.current, nil
	}
	persisted, err := s.store.Cart(ctx)
	if errors.Is(err, storage.ErrCorrupt) {
		s.logger.Printf("cart: dropping unreadable cart record error=%v", err)
		if rmErr := s.store.RemoveCart(ctx); rmErr != nil {
			return nil, fmt.Errorf("remove corrupt cart: %w", rmErr)
		}
		persisted, err = nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}
	if persisted != nil {
		persisted = domain.Recalculate(*persisted)
	}
	s.current = persisted
	s.loaded = true
	return s.current, nil
}

func (s *Service) ownerID(ctx context.Context) int {
	if s.owner != nil {
		if id, ok := s.owner.OwnerID(ctx); ok && id > 0 {
			return id
		}
	}
	return s.cfg.DemoUserID
}

// mergeLine adds quantity of ref to cur; a nil cur starts a new cart.
func mergeLine(cur *domain.Cart, ref domain.CartLine, quantity, owner, cartID int) *domain.Cart {
	if cur == nil {
		return domain.Recalculate(domain.Cart{
			ID:     cartID,
			UserID: owner,
			Lines:  []domain.CartLine{ref.WithQuantity(quantity)},
		})
	}
	for i, l := range cur.Lines {
		if l.ProductID == ref.ProductID {
			cur.Lines[i] = l.WithQuantity(l.Quantity + quantity)
			return domain.Recalculate(*cur)
		}
	}
	cur.Lines = append(cur.Lines, ref.WithQuantity(quantity))
	return domain.Recalculate(*cur)
}

// setLineQuantity leaves cur untouched when it has no line for productID.
func setLineQuantity(cur *domain.Cart, productID, quantity int) *domain.Cart {
	if cur == nil {
		return nil
	}
	for i, l := range cur.Lines {
		if l.ProductID == productID {
			cur.Lines[i] = l.WithQuantity(quantity)
			return domain.Recalculate(*cur)
		}
	}
	return cur
}
