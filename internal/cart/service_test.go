package cart

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cart-pricing/internal/catalog"
	"github.com/noah-isme/cart-pricing/internal/pricing"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestService(t *testing.T) (*Service, *fakeClock) {
	t.Helper()
	store, err := catalog.NewStore(catalog.DefaultProducts())
	require.NoError(t, err)
	clock := &fakeClock{now: time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)}
	return &Service{Catalog: store, TTL: time.Hour, Now: clock.Now}, clock
}

func TestAddItemIncrementsExistingLine(t *testing.T) {
	svc, _ := newTestService(t)
	c, err := svc.Create()
	require.NoError(t, err)
	require.Empty(t, c.Lines)

	_, err = svc.AddItem(c.ID, pricing.ProductKeyboard, 2)
	require.NoError(t, err)
	_, err = svc.AddItem(c.ID, pricing.ProductMouse, 1)
	require.NoError(t, err)
	c, err = svc.AddItem(c.ID, pricing.ProductKeyboard, 3)
	require.NoError(t, err)

	require.Equal(t, []pricing.CartLine{
		{ProductID: pricing.ProductKeyboard, Quantity: 5},
		{ProductID: pricing.ProductMouse, Quantity: 1},
	}, c.Lines)
	require.Equal(t, pricing.ProductKeyboard, svc.LastSelected())
}

func TestAddItemRejections(t *testing.T) {
	svc, _ := newTestService(t)
	c, err := svc.Create()
	require.NoError(t, err)

	_, err = svc.AddItem(c.ID, pricing.ProductKeyboard, 0)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.AddItem(c.ID, "p404", 1)
	require.ErrorIs(t, err, ErrProductUnknown)

	_, err = svc.AddItem(c.ID, pricing.ProductLaptopPouch, 1)
	require.ErrorIs(t, err, ErrOutOfStock)

	_, err = svc.AddItem(c.ID, pricing.ProductSpeaker, 8)
	require.NoError(t, err)
	_, err = svc.AddItem(c.ID, pricing.ProductSpeaker, 3)
	require.ErrorIs(t, err, ErrOutOfStock, "stock is 10")

	_, err = svc.AddItem("missing", pricing.ProductKeyboard, 1)
	require.ErrorIs(t, err, ErrNotFound)

	require.Equal(t, pricing.ProductSpeaker, svc.LastSelected())
}

func TestUpdateAndRemove(t *testing.T) {
	svc, _ := newTestService(t)
	c, err := svc.Create()
	require.NoError(t, err)
	_, err = svc.AddItem(c.ID, pricing.ProductMouse, 1)
	require.NoError(t, err)

	c, err = svc.UpdateQty(c.ID, pricing.ProductMouse, 4)
	require.NoError(t, err)
	require.Equal(t, 4, c.Lines[0].Quantity)

	_, err = svc.UpdateQty(c.ID, pricing.ProductMouse, -1)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.UpdateQty(c.ID, pricing.ProductMouse, 31)
	require.ErrorIs(t, err, ErrOutOfStock)

	_, err = svc.UpdateQty(c.ID, pricing.ProductKeyboard, 1)
	require.ErrorIs(t, err, ErrNotFound)

	c, err = svc.RemoveItem(c.ID, pricing.ProductMouse)
	require.NoError(t, err)
	require.Empty(t, c.Lines)

	_, err = svc.RemoveItem(c.ID, pricing.ProductMouse)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCartExpiresAfterTTL(t *testing.T) {
	svc, clock := newTestService(t)
	c, err := svc.Create()
	require.NoError(t, err)

	clock.Advance(45 * time.Minute)
	_, err = svc.AddItem(c.ID, pricing.ProductKeyboard, 1)
	require.NoError(t, err, "writes extend the session")

	clock.Advance(45 * time.Minute)
	lines, err := svc.Lines(c.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)

	clock.Advance(20 * time.Minute)
	_, err = svc.Get(c.ID)
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestSweepDropsExpiredSessions(t *testing.T) {
	svc, clock := newTestService(t)
	_, err := svc.Create()
	require.NoError(t, err)
	_, err = svc.Create()
	require.NoError(t, err)

	require.Zero(t, svc.Sweep())
	clock.Advance(2 * time.Hour)
	require.Equal(t, 2, svc.Sweep())
}

func TestGetReturnsCopy(t *testing.T) {
	svc, _ := newTestService(t)
	c, err := svc.Create()
	require.NoError(t, err)
	_, err = svc.AddItem(c.ID, pricing.ProductKeyboard, 1)
	require.NoError(t, err)

	got, err := svc.Get(c.ID)
	require.NoError(t, err)
	got.Lines[0].Quantity = 99

	again, err := svc.Get(c.ID)
	require.NoError(t, err)
	require.Equal(t, 1, again.Lines[0].Quantity)
}

func TestConcurrentAdds(t *testing.T) {
	svc, _ := newTestService(t)
	c, err := svc.Create()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.AddItem(c.ID, pricing.ProductKeyboard, 1)
		}()
	}
	wg.Wait()

	lines, err := svc.Lines(c.ID)
	require.NoError(t, err)
	require.Equal(t, 20, lines[0].Quantity)
}
