package domain

import "github.com/shopspring/decimal"

// Money holds the standard balances.
type Money struct {
	Cash float64 `json:"cash"`
	Bank float64 `json:"bank"`
}

// CustomBalance is the player's balance of one custom currency.
type CustomBalance struct {
	Label string  `json:"label"`
	Count float64 `json:"count"`
}

// Wallet mirrors the host's balances. Only host messages replace it.
type Wallet struct {
	Money            Money                    `json:"money"`
	CustomCurrencies map[string]CustomBalance `json:"customCurrencies"`
}

// Balance returns the balance behind a payment method. ok is false when
// the wallet knows nothing about a custom currency.
func (w Wallet) Balance(method string) (decimal.Decimal, bool) {
	switch method {
	case MethodCash:
		return decimal.NewFromFloat(w.Money.Cash), true
	case MethodBank:
		return decimal.NewFromFloat(w.Money.Bank), true
	}
	cb, ok := w.CustomCurrencies[method]
	if !ok {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(cb.Count), true
}

// Covers reports whether method can pay total.
func (w Wallet) Covers(method string, total decimal.Decimal) bool {
	bal, ok := w.Balance(method)
	return ok && bal.GreaterThanOrEqual(total)
}

// Clone copies the custom currency map.
func (w Wallet) Clone() Wallet {
	out := Wallet{Money: w.Money, CustomCurrencies: make(map[string]CustomBalance, len(w.CustomCurrencies))}
	for k, v := range w.CustomCurrencies {
		out.CustomCurrencies[k] = v
	}
	return out
}
