package product

import (
	"context"
	"strings"

	"storefront/internal/apperror"
	"storefront/internal/domain"
	"storefront/internal/shopapi"
)

// DefaultLimit is the page size of the catalog.
const DefaultLimit = 20

// MaxLimit caps a requested page size.
const MaxLimit = 100

type catalogAPI interface {
	Products(ctx context.Context, skip, limit int) (shopapi.ProductList, error)
	SearchProducts(ctx context.Context, q string, skip, limit int) (shopapi.ProductList, error)
	Product(ctx context.Context, id int) (domain.Product, error)
}

// Page selects one window of the catalog. A non-blank Query searches.
type Page struct {
	Skip  int
	Limit int
	Query string
}

type Service struct {
	api catalogAPI
}

func New(api catalogAPI) *Service {
	return &Service{api: api}
}

// List returns one page of products, searching when p.Query is not blank.
func (s *Service) List(ctx context.Context, p Page) (*domain.ProductPage, error) {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}

	var (
		list shopapi.ProductList
		err  error
	)
	if q := strings.TrimSpace(p.Query); q != "" {
		list, err = s.api.SearchProducts(ctx, q, p.Skip, p.Limit)
	} else {
		list, err = s.api.Products(ctx, p.Skip, p.Limit)
	}
	if err != nil {
		return nil, err
	}

	products := list.Products
	if products == nil {
		products = []domain.Product{}
	}
	return &domain.ProductPage{
		Products: products,
		Total:    list.Total,
		Skip:     p.Skip,
		Limit:    p.Limit,
		NextSkip: p.Skip + p.Limit,
		HasMore:  p.Skip+p.Limit < list.Total,
	}, nil
}

// Get returns one product.
func (s *Service) Get(ctx context.Context, id int) (*domain.Product, error) {
	if id <= 0 {
		return nil, apperror.Validation(map[string][]string{"id": {"Product id must be a positive number"}})
	}
	p, err := s.api.Product(ctx, id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
