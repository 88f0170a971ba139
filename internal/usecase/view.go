package usecase

import (
	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/domain"
)

// View is the derived state handed to the catalog client after every command.
type View struct {
	Open         bool                 `json:"open"`
	ShopLabel    string               `json:"shopLabel"`
	Theme        domain.Theme         `json:"theme"`
	Categories   []string             `json:"categories"`
	Cart         []domain.CartLine    `json:"cart"`
	ItemCount    int                  `json:"itemCount"`
	Total        decimal.Decimal      `json:"total"`
	TotalDisplay string               `json:"totalDisplay"`
	Currency     string               `json:"currency,omitempty"`
	Wallet       domain.Wallet        `json:"wallet"`
	Checkout     CheckoutView         `json:"checkout"`
	Notification *domain.Notification `json:"notification,omitempty"`
}

// CheckoutView describes the checkout dialog.
type CheckoutView struct {
	State       domain.CheckoutState   `json:"state"`
	AttemptID   string                 `json:"attemptId,omitempty"`
	Method      string                 `json:"paymentMethod,omitempty"`
	Options     []domain.PaymentOption `json:"paymentMethods,omitempty"`
	CanCheckout bool                   `json:"canCheckout"`
}

func (e *Engine) view() View {
	s := &e.st
	total := s.cart.Total()
	v := View{
		Open:         s.open,
		ShopLabel:    s.shopLabel,
		Theme:        s.theme,
		Categories:   append([]string(nil), s.categories...),
		Cart:         s.cart.Lines(),
		ItemCount:    s.cart.Len(),
		Total:        total,
		TotalDisplay: domain.FormatAmount(total, domain.StandardClass(), ""),
		Wallet:       s.wallet.Clone(),
		Checkout: CheckoutView{
			State:       s.checkout.state,
			AttemptID:   s.checkout.id,
			Method:      s.checkout.method,
			CanCheckout: !s.cart.IsEmpty(),
		},
		Notification: e.notes.latest(),
	}
	if cls, ok := s.cart.Class(); ok {
		v.Currency = cls.String()
		v.TotalDisplay = domain.FormatAmount(total, cls, s.cart.CurrencyLabel())
		if s.checkout.state != domain.CheckoutIdle {
			v.Checkout.Options = domain.PaymentOptions(cls, s.wallet, total)
		}
	}
	return v
}
