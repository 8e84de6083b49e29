package catalog

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/noah-isme/cart-pricing/internal/pricing"
)

// ErrUnknownProduct is returned when a mutation targets a product id the store does not hold.
var ErrUnknownProduct = errors.New("unknown product")

// ErrInvalidCatalog is returned when a product list cannot seed the store.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Store keeps the product catalog in memory, in catalog order. Readers receive
// copies; promotional flags are the only mutable attributes.
type Store struct {
	mu       sync.RWMutex
	products []pricing.Product
	index    map[string]int
}

// NewStore validates products and returns a store holding a copy of them.
func NewStore(products []pricing.Product) (*Store, error) {
	s := &Store{}
	if err := s.Restore(products); err != nil {
		return nil, err
	}
	return s, nil
}

// Snapshot returns a copy of every product in catalog order.
func (s *Store) Snapshot() []pricing.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]pricing.Product, len(s.products))
	copy(out, s.products)
	return out
}

// Get returns a copy of the product with id.
func (s *Store) Get(id string) (pricing.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return pricing.Product{}, false
	}
	return s.products[i], true
}

// Len reports the number of products held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products)
}

// SetFlashSale turns the lightning sale flag on for id.
func (s *Store) SetFlashSale(id string) (pricing.Product, error) {
	return s.update(id, func(p *pricing.Product) { p.IsFlashSaleActive = true })
}

// SetRecommendedSale turns the recommendation flag on for id.
func (s *Store) SetRecommendedSale(id string) (pricing.Product, error) {
	return s.update(id, func(p *pricing.Product) { p.IsRecommendedSaleActive = true })
}

// ClearSales resets every promotional flag.
func (s *Store) ClearSales() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.products {
		s.products[i].IsFlashSaleActive = false
		s.products[i].IsRecommendedSaleActive = false
	}
}

// Restore replaces the whole catalog, e.g. from a cached snapshot.
func (s *Store) Restore(products []pricing.Product) error {
	if err := Validate(products); err != nil {
		return err
	}
	next := make([]pricing.Product, len(products))
	copy(next, products)
	index := make(map[string]int, len(next))
	for i, p := range next {
		index[p.ID] = i
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = next
	s.index = index
	return nil
}

func (s *Store) update(id string, fn func(*pricing.Product)) (pricing.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return pricing.Product{}, fmt.Errorf("catalog: %q: %w", id, ErrUnknownProduct)
	}
	fn(&s.products[i])
	return s.products[i], nil
}

// Validate checks that products are usable as a catalog: ids present and
// unique, prices and stock non-negative.
func Validate(products []pricing.Product) error {
	if len(products) == 0 {
		return fmt.Errorf("catalog: no products: %w", ErrInvalidCatalog)
	}
	seen := make(map[string]struct{}, len(products))
	for i, p := range products {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return fmt.Errorf("catalog: product %d has no id: %w", i, ErrInvalidCatalog)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("catalog: duplicate product id %q: %w", id, ErrInvalidCatalog)
		}
		seen[id] = struct{}{}
		if p.UnitPrice < 0 {
			return fmt.Errorf("catalog: product %q has negative price: %w", id, ErrInvalidCatalog)
		}
		if p.StockQuantity < 0 {
			return fmt.Errorf("catalog: product %q has negative stock: %w", id, ErrInvalidCatalog)
		}
	}
	return nil
}
