package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bread() Item { return Item{ID: "bread", Label: "Bread", Price: 3, Category: "food"} }
func water() Item { return Item{ID: "water", Label: "Water", Price: 5, Category: "food", Currency: "bank"} }
func ticket() Item { return Item{ID: "ticket", Label: "Ticket", Price: 2, Currency: "tokens"} }

func TestCartAdd(t *testing.T) {
	tests := []struct {
		name      string
		initial   []Item
		add       Item
		wantErr   error
		wantLines int
		wantQty   int
		merged    bool
	}{
		{name: "new line", add: bread(), wantLines: 1, wantQty: 1},
		{name: "merge same item", initial: []Item{bread()}, add: bread(), wantLines: 1, wantQty: 2, merged: true},
		{name: "cash and bank share a class", initial: []Item{bread()}, add: water(), wantLines: 2, wantQty: 1},
		{name: "custom into standard rejected", initial: []Item{bread()}, add: ticket(), wantErr: ErrCurrencyMix, wantLines: 1},
		{name: "standard into custom rejected", initial: []Item{ticket()}, add: bread(), wantErr: ErrCurrencyMix, wantLines: 1},
		{name: "other custom currency rejected", initial: []Item{ticket()}, add: Item{ID: "gem", Label: "Gem", Price: 1, Currency: "gems"}, wantErr: ErrCurrencyMix, wantLines: 1},
		{name: "locked item rejected", add: Item{ID: "gun", Label: "Gun", Price: 100, Locked: true}, wantErr: ErrItemLocked},
		{name: "empty id rejected", add: Item{Label: "Nothing"}, wantErr: ErrValidation},
		{name: "negative price rejected", add: Item{ID: "bad", Price: -1}, wantErr: ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Cart
			for _, it := range tt.initial {
				_, _, err := c.Add(it)
				require.NoError(t, err)
			}
			before := c.Lines()

			line, merged, err := c.Add(tt.add)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, before, c.Lines(), "rejected add must not touch the cart")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.merged, merged)
			assert.Equal(t, tt.wantQty, line.Quantity)
			assert.Equal(t, tt.wantLines, c.Len())
		})
	}
}

func TestCartAddLockedReason(t *testing.T) {
	var c Cart

	_, _, err := c.Add(Item{ID: "gun", Locked: true, LockReason: "Requires a licence"})
	var locked *LockedError
	require.True(t, errors.As(err, &locked))
	assert.Equal(t, "Requires a licence", locked.Reason)
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = c.Add(Item{ID: "gun", Locked: true})
	require.True(t, errors.As(err, &locked))
	assert.Equal(t, DefaultLockReason, locked.Reason)
	assert.True(t, c.IsEmpty())
}

func TestCartClassFollowsAdds(t *testing.T) {
	var c Cart
	_, ok := c.Class()
	assert.False(t, ok)

	for _, it := range []Item{bread(), water(), bread(), {ID: "milk", Price: 1, Currency: "cash"}} {
		_, _, err := c.Add(it)
		require.NoError(t, err)
		cls, ok := c.Class()
		require.True(t, ok)
		assert.Equal(t, StandardClass(), cls)
	}
}

func TestCartChangeQuantityNeverBelowOne(t *testing.T) {
	for _, start := range []int{1, 2, 7} {
		for _, delta := range []int{-100, -8, -2, -1, 0, 1, 3} {
			var c Cart
			_, _, err := c.Add(bread())
			require.NoError(t, err)
			_, err = c.ChangeQuantity("bread", start-1)
			require.NoError(t, err)

			line, err := c.ChangeQuantity("bread", delta)
			require.NoError(t, err)
			assert.Equal(t, max(1, start+delta), line.Quantity, "start=%d delta=%d", start, delta)
			assert.Equal(t, 1, c.Len(), "decrement never removes")
		}
	}
}

func TestCartChangeQuantityMissing(t *testing.T) {
	var c Cart
	_, err := c.ChangeQuantity("bread", 1)
	assert.ErrorIs(t, err, ErrNotInCart)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCartRemove(t *testing.T) {
	var c Cart
	for _, it := range []Item{bread(), water()} {
		_, _, err := c.Add(it)
		require.NoError(t, err)
	}

	removed, err := c.Remove("bread")
	require.NoError(t, err)
	assert.Equal(t, "Bread", removed.Label)
	require.Equal(t, 1, c.Len())
	assert.Equal(t, "water", c.Lines()[0].ID)

	_, err = c.Remove("bread")
	assert.ErrorIs(t, err, ErrNotInCart)
}

func TestCartTotal(t *testing.T) {
	var c Cart
	assert.True(t, c.Total().IsZero())

	a := Item{ID: "a", Label: "A", Price: 10}
	b := Item{ID: "b", Label: "B", Price: 5}
	for _, it := range []Item{a, b, b} {
		_, _, err := c.Add(it)
		require.NoError(t, err)
	}
	assert.True(t, decimal.NewFromInt(20).Equal(c.Total()), "got %s", c.Total())

	var d Cart
	for _, it := range []Item{{ID: "x", Price: 0.1}, {ID: "y", Price: 0.2}} {
		_, _, err := d.Add(it)
		require.NoError(t, err)
	}
	assert.Equal(t, "0.3", d.Total().String())
}

func TestCartSettle(t *testing.T) {
	var c Cart
	for _, it := range []Item{bread(), bread(), water()} {
		_, _, err := c.Add(it)
		require.NoError(t, err)
	}
	pending := NewSettlement(c.Snapshot())
	assert.Equal(t, Settlement{"bread": 2, "water": 1}, pending)

	// Edits after the snapshot was taken.
	_, _, err := c.Add(bread())
	require.NoError(t, err)
	_, err = c.Remove("water")
	require.NoError(t, err)
	pending.Clamp(&c)
	_, _, err = c.Add(Item{ID: "milk", Label: "Milk", Price: 2})
	require.NoError(t, err)

	c.Settle(pending)

	lines := c.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "bread", lines[0].ID)
	assert.Equal(t, 1, lines[0].Quantity)
	assert.Equal(t, "milk", lines[1].ID)

	unchanged := Cart{}
	_, _, err = unchanged.Add(bread())
	require.NoError(t, err)
	unchanged.Settle(NewSettlement(unchanged.Snapshot()))
	assert.True(t, unchanged.IsEmpty())
}

func TestSettlementClamp(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(t *testing.T, c *Cart)
		want  Settlement
		after map[string]int
	}{
		{
			name:  "untouched",
			edit:  func(*testing.T, *Cart) {},
			want:  Settlement{"bread": 2},
			after: map[string]int{},
		},
		{
			name: "removed then added again",
			edit: func(t *testing.T, c *Cart) {
				_, err := c.Remove("bread")
				require.NoError(t, err)
			},
			want:  Settlement{"bread": 0},
			after: map[string]int{"bread": 1},
		},
		{
			name: "decremented then added again",
			edit: func(t *testing.T, c *Cart) {
				_, err := c.ChangeQuantity("bread", -1)
				require.NoError(t, err)
			},
			want:  Settlement{"bread": 1},
			after: map[string]int{"bread": 1},
		},
		{
			name:  "cleared",
			edit:  func(_ *testing.T, c *Cart) { c.Clear() },
			want:  Settlement{"bread": 0},
			after: map[string]int{"bread": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Cart
			for range 2 {
				_, _, err := c.Add(bread())
				require.NoError(t, err)
			}
			pending := NewSettlement(c.Snapshot())

			tt.edit(t, &c)
			pending.Clamp(&c)
			assert.Equal(t, tt.want, pending)

			if _, ok := tt.after["bread"]; ok {
				_, _, err := c.Add(bread())
				require.NoError(t, err)
			}
			c.Settle(pending)

			got := map[string]int{}
			for _, l := range c.Lines() {
				got[l.ID] = l.Quantity
			}
			assert.Equal(t, tt.after, got)
		})
	}
}

func TestNewCart(t *testing.T) {
	_, err := NewCart(CartLine{Item: bread(), Quantity: 1}, CartLine{Item: ticket(), Quantity: 1})
	assert.ErrorIs(t, err, ErrCurrencyMix)

	_, err = NewCart(CartLine{Item: bread(), Quantity: 0})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewCart(CartLine{Item: bread(), Quantity: 1}, CartLine{Item: bread(), Quantity: 2})
	assert.ErrorIs(t, err, ErrValidation)

	c, err := NewCart(CartLine{Item: bread(), Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, "6", c.Total().String())
}

func TestCartLineJSONKeepsHostFields(t *testing.T) {
	raw := `{"item":"bread","label":"Bread","price":3,"category":"food","metadata":{"durability":90},"weight":150}`
	var it Item
	require.NoError(t, json.Unmarshal([]byte(raw), &it))

	b, err := json.Marshal(CartLine{Item: it, Quantity: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"item":"bread","label":"Bread","price":3,"category":"food","metadata":{"durability":90},"weight":150,"quantity":2}`, string(b))

	var back CartLine
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, 2, back.Quantity)
	assert.Equal(t, "bread", back.ID)
}

func TestCartLineJSONWithoutRaw(t *testing.T) {
	b, err := json.Marshal(CartLine{Item: ticket(), Quantity: 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"item":"ticket","label":"Ticket","price":2,"currency":"tokens","quantity":1}`, string(b))
}
