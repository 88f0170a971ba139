package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CheckoutState is the position of the checkout state machine.
type CheckoutState string

const (
	CheckoutIdle                  CheckoutState = "idle"
	CheckoutAwaitingPaymentChoice CheckoutState = "awaiting_payment_choice"
	CheckoutSubmitting            CheckoutState = "submitting"
)

// DefaultPurchaseFailure is shown when the host gives no reason, or when no
// verdict arrived at all.
const DefaultPurchaseFailure = "Purchase failed"

// PaymentOption is one payment button of the checkout dialog.
type PaymentOption struct {
	Method  string          `json:"method"`
	Label   string          `json:"label"`
	Balance decimal.Decimal `json:"balance"`
	Enabled bool            `json:"enabled"`
}

// PaymentOptions lists the methods a cart of class cls may be paid with.
// Standard carts offer bank then cash; a custom currency cart offers only
// its own currency.
func PaymentOptions(cls CurrencyClass, w Wallet, total decimal.Decimal) []PaymentOption {
	if cls.IsStandard() {
		bank, _ := w.Balance(MethodBank)
		cash, _ := w.Balance(MethodCash)
		return []PaymentOption{
			{Method: MethodBank, Label: "Bank", Balance: bank, Enabled: bank.GreaterThanOrEqual(total)},
			{Method: MethodCash, Label: "Cash", Balance: cash, Enabled: cash.GreaterThanOrEqual(total)},
		}
	}
	bal, known := w.Balance(cls.ID())
	return []PaymentOption{{
		Method:  cls.ID(),
		Label:   CustomCurrencyLabel(w, cls.ID()),
		Balance: bal,
		Enabled: known && bal.GreaterThanOrEqual(total),
	}}
}

// CustomCurrencyLabel is the wallet's label for a custom currency, falling
// back to its id.
func CustomCurrencyLabel(w Wallet, id string) string {
	if cb, ok := w.CustomCurrencies[id]; ok && cb.Label != "" {
		return cb.Label
	}
	return id
}

// StandardMethodName is how notifications name cash and bank.
func StandardMethodName(method string) string {
	if method == MethodBank {
		return "Card"
	}
	return "Cash"
}

// FormatAmount renders an amount in the cart's currency: "$6" for standard
// money, "6 Tokens" for a custom currency.
func FormatAmount(amount decimal.Decimal, cls CurrencyClass, label string) string {
	if cls.IsStandard() {
		return "$" + amount.String()
	}
	if label == "" {
		label = cls.ID()
	}
	return amount.String() + " " + label
}

// Submission is what was sent to the host for one checkout attempt.
type Submission struct {
	AttemptID   string
	Cart        Cart
	Total       decimal.Decimal
	Method      string
	SubmittedAt time.Time
	// Generation of the cart the snapshot was taken from. Opening the shop
	// or clearing the cart on close starts a new one.
	Generation uint64
}

// Receipt is the journal record of a resolved submission.
type Receipt struct {
	AttemptID  string          `json:"attemptId"`
	ShopLabel  string          `json:"shopLabel"`
	Method     string          `json:"paymentMethod"`
	Currency   CurrencyClass   `json:"currency"`
	Total      decimal.Decimal `json:"total"`
	Lines      []CartLine      `json:"items"`
	Success    bool            `json:"success"`
	Message    string          `json:"message,omitempty"`
	ResolvedAt time.Time       `json:"resolvedAt"`
}
