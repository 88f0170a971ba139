package domain

// Standard payment methods. Cash and bank are interchangeable.
const (
	MethodCash = "cash"
	MethodBank = "bank"
)

type currencyKind uint8

const (
	kindStandard currencyKind = iota
	kindCustom
)

// CurrencyClass groups currencies that may share one cart: standard money
// or one specific custom currency. Values compare with ==.
type CurrencyClass struct {
	kind currencyKind
	id   string
}

// StandardClass is the cash/bank class.
func StandardClass() CurrencyClass { return CurrencyClass{kind: kindStandard} }

// CustomClass is the class of the custom currency id.
func CustomClass(id string) CurrencyClass { return CurrencyClass{kind: kindCustom, id: id} }

// ClassOf resolves an item's currency field. Empty, cash and bank are
// standard; anything else names a custom currency.
func ClassOf(currency string) CurrencyClass {
	switch currency {
	case "", MethodCash, MethodBank:
		return StandardClass()
	}
	return CustomClass(currency)
}

func (c CurrencyClass) IsStandard() bool { return c.kind == kindStandard }

// ID is the custom currency identifier, empty for the standard class.
func (c CurrencyClass) ID() string { return c.id }

func (c CurrencyClass) String() string {
	if c.IsStandard() {
		return "standard"
	}
	return c.id
}

func (c CurrencyClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *CurrencyClass) UnmarshalText(b []byte) error {
	if s := string(b); s != "standard" {
		*c = CustomClass(s)
		return nil
	}
	*c = StandardClass()
	return nil
}
