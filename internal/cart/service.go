package cart

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/cart-pricing/internal/obs"
	"github.com/noah-isme/cart-pricing/internal/pricing"
)

// ErrNotFound indicates the requested cart or cart line could not be located.
var ErrNotFound = errors.New("cart not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// ErrProductUnknown is returned when a line references a product the catalog does not carry.
var ErrProductUnknown = errors.New("product unknown")

// ErrOutOfStock is returned when the requested quantity exceeds available stock.
var ErrOutOfStock = errors.New("out of stock")

// Catalog looks up live products.
type Catalog interface {
	Get(id string) (pricing.Product, bool)
}

// Cart is a point-in-time copy of a cart session.
type Cart struct {
	ID        string             `json:"id"`
	Lines     []pricing.CartLine `json:"lines"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
	ExpiresAt time.Time          `json:"expiresAt"`
}

type session struct {
	cart Cart
}

// Service encapsulates cart domain operations. Sessions live in memory and
// expire TTL after their last write.
type Service struct {
	Catalog Catalog
	TTL     time.Duration
	Now     func() time.Time

	mu           sync.Mutex
	carts        map[string]*session
	lastSelected string
}

func (s *Service) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return s.TTL
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create opens an empty cart session.
func (s *Service) Create() (Cart, error) {
	if s == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweepLocked(now)
	if s.carts == nil {
		s.carts = make(map[string]*session)
	}
	c := Cart{
		ID:        uuid.NewString(),
		Lines:     []pricing.CartLine{},
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.ttl()),
	}
	s.carts[c.ID] = &session{cart: c}
	obs.CountCartOp("create", nil)
	return copyCart(c), nil
}

// Get returns the cart with id. Expired carts are reported as ErrNotFound.
func (s *Service) Get(id string) (Cart, error) {
	if s == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.liveLocked(id)
	if err != nil {
		return Cart{}, err
	}
	return copyCart(sess.cart), nil
}

// Lines returns the cart's lines in insertion order.
func (s *Service) Lines(id string) ([]pricing.CartLine, error) {
	c, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return c.Lines, nil
}

// AddItem inserts a line or increments the quantity of an existing one.
func (s *Service) AddItem(cartID, productID string, qty int) (c Cart, err error) {
	defer func() { obs.CountCartOp("add_item", err) }()
	if s == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	if qty <= 0 {
		return Cart{}, fmt.Errorf("quantity must be positive: %w", ErrInvalidInput)
	}
	product, err := s.product(productID)
	if err != nil {
		return Cart{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.liveLocked(cartID)
	if err != nil {
		return Cart{}, err
	}
	idx := lineIndex(sess.cart.Lines, productID)
	total := qty
	if idx >= 0 {
		total += sess.cart.Lines[idx].Quantity
	}
	if err := checkStock(product, total); err != nil {
		return Cart{}, err
	}
	if idx >= 0 {
		sess.cart.Lines[idx].Quantity = total
	} else {
		sess.cart.Lines = append(sess.cart.Lines, pricing.CartLine{ProductID: productID, Quantity: total})
	}
	s.touchLocked(sess)
	s.lastSelected = productID
	return copyCart(sess.cart), nil
}

// UpdateQty sets the quantity of an existing line.
func (s *Service) UpdateQty(cartID, productID string, qty int) (c Cart, err error) {
	defer func() { obs.CountCartOp("update_qty", err) }()
	if s == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	if qty <= 0 {
		return Cart{}, fmt.Errorf("quantity must be positive: %w", ErrInvalidInput)
	}
	product, err := s.product(productID)
	if err != nil {
		return Cart{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.liveLocked(cartID)
	if err != nil {
		return Cart{}, err
	}
	idx := lineIndex(sess.cart.Lines, productID)
	if idx < 0 {
		return Cart{}, fmt.Errorf("line %s: %w", productID, ErrNotFound)
	}
	if err := checkStock(product, qty); err != nil {
		return Cart{}, err
	}
	sess.cart.Lines[idx].Quantity = qty
	s.touchLocked(sess)
	return copyCart(sess.cart), nil
}

// RemoveItem deletes a line from the cart.
func (s *Service) RemoveItem(cartID, productID string) (c Cart, err error) {
	defer func() { obs.CountCartOp("remove_item", err) }()
	if s == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.liveLocked(cartID)
	if err != nil {
		return Cart{}, err
	}
	idx := lineIndex(sess.cart.Lines, productID)
	if idx < 0 {
		return Cart{}, fmt.Errorf("line %s: %w", productID, ErrNotFound)
	}
	sess.cart.Lines = append(sess.cart.Lines[:idx], sess.cart.Lines[idx+1:]...)
	s.touchLocked(sess)
	return copyCart(sess.cart), nil
}

// LastSelected returns the product most recently added to any cart.
func (s *Service) LastSelected() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSelected
}

// Sweep drops expired sessions and reports how many were removed.
func (s *Service) Sweep() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.now())
}

func (s *Service) sweepLocked(now time.Time) int {
	removed := 0
	for id, sess := range s.carts {
		if !now.Before(sess.cart.ExpiresAt) {
			delete(s.carts, id)
			removed++
		}
	}
	return removed
}

func (s *Service) liveLocked(id string) (*session, error) {
	sess, ok := s.carts[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !s.now().Before(sess.cart.ExpiresAt) {
		delete(s.carts, id)
		return nil, fmt.Errorf("cart expired: %w", ErrNotFound)
	}
	return sess, nil
}

func (s *Service) touchLocked(sess *session) {
	now := s.now()
	sess.cart.UpdatedAt = now
	sess.cart.ExpiresAt = now.Add(s.ttl())
}

func (s *Service) product(id string) (pricing.Product, error) {
	if s.Catalog == nil {
		return pricing.Product{}, errors.New("cart catalog not configured")
	}
	p, ok := s.Catalog.Get(id)
	if !ok {
		return pricing.Product{}, fmt.Errorf("product %s: %w", id, ErrProductUnknown)
	}
	return p, nil
}

func checkStock(p pricing.Product, qty int) error {
	if p.StockQuantity <= 0 {
		return fmt.Errorf("%s: %w", p.Name, ErrOutOfStock)
	}
	if qty > p.StockQuantity {
		return fmt.Errorf("%s: only %d left: %w", p.Name, p.StockQuantity, ErrOutOfStock)
	}
	return nil
}

func lineIndex(lines []pricing.CartLine, productID string) int {
	for i, l := range lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

func copyCart(c Cart) Cart {
	lines := make([]pricing.CartLine, len(c.Lines))
	copy(lines, c.Lines)
	c.Lines = lines
	return c
}
