package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/storefront/internal/domain"
)

// session is the single state object owned by the engine goroutine.
type session struct {
	open       bool
	shopLabel  string
	theme      domain.Theme
	categories []string
	cart       domain.Cart
	wallet     domain.Wallet
	checkout   checkoutAttempt

	// generation changes whenever the cart is reset, so results of
	// submissions from an earlier cart are never settled against it.
	generation  uint64
	settlements map[string]domain.Settlement
}

func newSession() session {
	return session{
		shopLabel:  domain.DefaultShopLabel,
		theme:      domain.DefaultTheme(),
		categories: []string{domain.CategoryAll},
		wallet:     domain.Wallet{CustomCurrencies: map[string]domain.CustomBalance{}},
		checkout:   idleCheckout(),

		settlements: map[string]domain.Settlement{},
	}
}

func (s *session) resetCart() {
	s.cart.Clear()
	s.generation++
	s.settlements = map[string]domain.Settlement{}
}

// cartShrunk keeps pending settlements within what the cart still holds and
// leaves the payment choice once the cart is empty.
func (e *Engine) cartShrunk() {
	s := &e.st
	for _, p := range s.settlements {
		p.Clamp(&s.cart)
	}
	if s.cart.IsEmpty() && s.checkout.state == domain.CheckoutAwaitingPaymentChoice {
		e.logger.Debug("cart emptied, leaving payment choice", zap.String("attempt", s.checkout.id))
		s.checkout = idleCheckout()
	}
}

func (e *Engine) requireOpen() error {
	if !e.st.open {
		return domain.ErrShopClosed
	}
	return nil
}

// OpenShop handles the host's openShop message.
type OpenShop struct {
	Payload domain.OpenShop
}

func (c OpenShop) apply(e *Engine) error {
	items := LoadCatalog{Cache: e.catalog, Logger: e.logger}.Execute(c.Payload.Items)

	s := &e.st
	s.open = true
	s.shopLabel = c.Payload.ShopLabel
	if s.shopLabel == "" {
		s.shopLabel = domain.DefaultShopLabel
	}
	s.theme = domain.DefaultTheme()
	if c.Payload.Theme != nil {
		s.theme = *c.Payload.Theme
	}
	s.categories = domain.Categories(items)
	s.wallet = domain.Wallet{CustomCurrencies: map[string]domain.CustomBalance{}}
	if c.Payload.Money != nil {
		s.wallet.Money = *c.Payload.Money
	}
	for id, cb := range c.Payload.CustomCurrencies {
		s.wallet.CustomCurrencies[id] = cb
	}
	s.resetCart()
	s.checkout = idleCheckout()
	e.notes.clear()

	e.logger.Info("shop opened",
		zap.String("shop", s.shopLabel),
		zap.Int("items", len(items)),
		zap.Int("categories", len(s.categories)-1))
	return nil
}

// CloseShop handles the host's closeShop message.
type CloseShop struct{}

func (CloseShop) apply(e *Engine) error {
	if !e.st.open {
		return nil
	}
	e.closeShop("host")
	return nil
}

// UserClose is the player closing the shop. The host is told about it.
type UserClose struct{}

func (UserClose) apply(e *Engine) error {
	if err := e.requireOpen(); err != nil {
		return err
	}
	e.closeShop("user")
	e.background(func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(e.runCtx), closeNotifyTimeout)
		defer cancel()
		if err := e.host.NotifyClosed(ctx); err != nil {
			e.logger.Warn("close notification failed", zap.Error(err))
		}
	})
	return nil
}

func (e *Engine) closeShop(by string) {
	s := &e.st
	s.open = false
	if s.checkout.state == domain.CheckoutSubmitting {
		e.logger.Info("checkout closed while submitting, result will still be applied",
			zap.String("attempt", s.checkout.id))
	}
	s.checkout = idleCheckout()
	if !e.keepCartOnClose {
		s.resetCart()
	}
	e.logger.Info("shop closed", zap.String("by", by))
}

// KeyDown is a key press in the shop window. Escape closes an open shop.
type KeyDown struct {
	Key string
}

func (c KeyDown) apply(e *Engine) error {
	if c.Key != "Escape" || !e.st.open {
		return nil
	}
	return UserClose{}.apply(e)
}

// AddItem puts one unit of a catalog item into the cart.
type AddItem struct {
	ItemID string
}

func (c AddItem) apply(e *Engine) error {
	if err := e.requireOpen(); err != nil {
		return err
	}
	item, err := ResolveItem{Cache: e.catalog}.Execute(c.ItemID)
	if err != nil {
		e.notes.show(e, domain.NotifyError, "This item is not available")
		return err
	}

	line, merged, err := e.st.cart.Add(item)
	if err != nil {
		var locked *domain.LockedError
		switch {
		case errors.As(err, &locked):
			e.notes.show(e, domain.NotifyError, locked.Reason)
		case errors.Is(err, domain.ErrCurrencyMix):
			e.notes.show(e, domain.NotifyError, domain.ErrCurrencyMix.Error())
		default:
			e.notes.show(e, domain.NotifyError, "This item cannot be added")
		}
		e.logger.Debug("add rejected", zap.String("item", c.ItemID), zap.Error(err))
		return err
	}

	if merged {
		e.notes.show(e, domain.NotifySuccess, fmt.Sprintf("Added another %s to cart", line.Label))
	} else {
		e.notes.show(e, domain.NotifySuccess, fmt.Sprintf("%s added to cart", line.Label))
	}
	return nil
}

// RemoveItem drops a line from the cart.
type RemoveItem struct {
	ItemID string
}

func (c RemoveItem) apply(e *Engine) error {
	if err := e.requireOpen(); err != nil {
		return err
	}
	line, err := e.st.cart.Remove(c.ItemID)
	if err != nil {
		e.notes.show(e, domain.NotifyError, domain.ErrNotInCart.Error())
		return err
	}
	e.cartShrunk()
	e.notes.show(e, domain.NotifyInfo, fmt.Sprintf("%s removed from cart", line.Label))
	return nil
}

// ChangeQuantity adds Delta to a line quantity. The quantity never drops
// below one; removal goes through RemoveItem.
type ChangeQuantity struct {
	ItemID string
	Delta  int
}

func (c ChangeQuantity) apply(e *Engine) error {
	if err := e.requireOpen(); err != nil {
		return err
	}
	if _, err := e.st.cart.ChangeQuantity(c.ItemID, c.Delta); err != nil {
		e.notes.show(e, domain.NotifyError, domain.ErrNotInCart.Error())
		return err
	}
	if c.Delta < 0 {
		e.cartShrunk()
	}
	return nil
}

// ClearCart empties the cart.
type ClearCart struct{}

func (ClearCart) apply(e *Engine) error {
	if err := e.requireOpen(); err != nil {
		return err
	}
	e.st.cart.Clear()
	e.cartShrunk()
	return nil
}

// Refresh only reads the view.
type Refresh struct{}

func (Refresh) apply(*Engine) error { return nil }
