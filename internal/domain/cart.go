package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// CartLine is a catalog item together with the quantity in the cart.
type CartLine struct {
	Item
	Quantity int `json:"quantity"`
}

// Subtotal returns price * quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return decimal.NewFromFloat(l.Price).Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// MarshalJSON writes the host's original item object with the quantity
// merged in, the same shape the host sent plus "quantity".
func (l CartLine) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage)
	if len(l.raw) > 0 {
		if err := json.Unmarshal(l.raw, &fields); err != nil {
			return nil, fmt.Errorf("decode item %q: %w", l.ID, err)
		}
	} else {
		b, err := json.Marshal(itemFields(l.Item))
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(b, &fields); err != nil {
			return nil, err
		}
	}
	q, err := json.Marshal(l.Quantity)
	if err != nil {
		return nil, err
	}
	fields["quantity"] = q
	return json.Marshal(fields)
}

func (l *CartLine) UnmarshalJSON(data []byte) error {
	var it Item
	if err := it.UnmarshalJSON(data); err != nil {
		return err
	}
	var q struct {
		Quantity int `json:"quantity"`
	}
	if err := json.Unmarshal(data, &q); err != nil {
		return err
	}
	l.Item = it
	l.Quantity = q.Quantity
	return nil
}

// Cart keeps lines in insertion order. All lines of a non-empty cart share
// one CurrencyClass; every mutating method preserves that.
type Cart struct {
	lines []CartLine
}

// NewCart builds a cart from lines, rejecting input that breaks the cart
// invariants.
func NewCart(lines ...CartLine) (Cart, error) {
	var c Cart
	for _, l := range lines {
		if l.Quantity < 1 {
			return Cart{}, fmt.Errorf("%w: quantity of %q must be at least 1", ErrValidation, l.ID)
		}
		if _, ok := c.find(l.ID); ok {
			return Cart{}, fmt.Errorf("%w: duplicate line %q", ErrValidation, l.ID)
		}
		if cls, ok := c.Class(); ok && cls != l.Class() {
			return Cart{}, ErrCurrencyMix
		}
		c.lines = append(c.lines, l)
	}
	return c, nil
}

func (c *Cart) find(id string) (int, bool) {
	for i := range c.lines {
		if c.lines[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

func (c *Cart) Len() int { return len(c.lines) }

func (c *Cart) IsEmpty() bool { return len(c.lines) == 0 }

// Lines returns a copy of the lines in display order.
func (c *Cart) Lines() []CartLine {
	out := make([]CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Line returns the line for the item identifier.
func (c *Cart) Line(id string) (CartLine, bool) {
	i, ok := c.find(id)
	if !ok {
		return CartLine{}, false
	}
	return c.lines[i], true
}

// Class returns the currency class of the cart. ok is false for an empty cart.
func (c *Cart) Class() (CurrencyClass, bool) {
	if len(c.lines) == 0 {
		return CurrencyClass{}, false
	}
	return c.lines[0].Class(), true
}

// CurrencyLabel is the display name of the cart's custom currency, taken
// from the first line.
func (c *Cart) CurrencyLabel() string {
	if len(c.lines) == 0 {
		return ""
	}
	return c.lines[0].CurrencyLabel()
}

// Add puts one unit of item into the cart. merged reports whether an
// existing line was incremented.
func (c *Cart) Add(item Item) (line CartLine, merged bool, err error) {
	if item.Locked {
		reason := item.LockReason
		if reason == "" {
			reason = DefaultLockReason
		}
		return CartLine{}, false, &LockedError{ItemID: item.ID, Reason: reason}
	}
	if err := item.Validate(); err != nil {
		return CartLine{}, false, err
	}
	if cls, ok := c.Class(); ok && cls != item.Class() {
		return CartLine{}, false, fmt.Errorf("%w: cart holds %s, item %q is %s", ErrCurrencyMix, cls, item.ID, item.Class())
	}
	if i, ok := c.find(item.ID); ok {
		c.lines[i].Quantity++
		return c.lines[i], true, nil
	}
	line = CartLine{Item: item, Quantity: 1}
	c.lines = append(c.lines, line)
	return line, false, nil
}

// Remove deletes the line for id.
func (c *Cart) Remove(id string) (CartLine, error) {
	i, ok := c.find(id)
	if !ok {
		return CartLine{}, fmt.Errorf("%w: %q", ErrNotInCart, id)
	}
	removed := c.lines[i]
	c.lines = append(c.lines[:i:i], c.lines[i+1:]...)
	return removed, nil
}

// ChangeQuantity adds delta to the line quantity, never going below 1.
func (c *Cart) ChangeQuantity(id string, delta int) (CartLine, error) {
	i, ok := c.find(id)
	if !ok {
		return CartLine{}, fmt.Errorf("%w: %q", ErrNotInCart, id)
	}
	c.lines[i].Quantity = max(1, c.lines[i].Quantity+delta)
	return c.lines[i], nil
}

func (c *Cart) Clear() { c.lines = nil }

// Total sums price * quantity over all lines.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Snapshot returns an independent copy of the cart.
func (c *Cart) Snapshot() Cart {
	return Cart{lines: c.Lines()}
}

// Settlement is the part of a submitted snapshot that is still in the cart,
// keyed by item id. A successful purchase removes exactly these units.
type Settlement map[string]int

// NewSettlement records every line of snapshot as pending.
func NewSettlement(snapshot Cart) Settlement {
	s := make(Settlement, snapshot.Len())
	for _, l := range snapshot.lines {
		s[l.ID] = l.Quantity
	}
	return s
}

// Clamp lowers each pending quantity to what c still holds. Call it after
// every edit that removes units.
func (s Settlement) Clamp(c *Cart) {
	for id, n := range s {
		have := 0
		if l, ok := c.Line(id); ok {
			have = l.Quantity
		}
		if have < n {
			s[id] = have
		}
	}
}

// Settle removes the pending quantities of a successful purchase. Units
// added after the snapshot was taken stay in the cart.
func (c *Cart) Settle(pending Settlement) {
	kept := c.lines[:0:0]
	for _, l := range c.lines {
		l.Quantity -= min(pending[l.ID], l.Quantity)
		if l.Quantity > 0 {
			kept = append(kept, l)
		}
	}
	c.lines = kept
}
