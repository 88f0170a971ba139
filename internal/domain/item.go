package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultLockReason is shown when the host locks an item without a reason.
const DefaultLockReason = "This item is locked"

// CategoryAll always heads the category list.
const CategoryAll = "all"

type CurrencyInfo struct {
	Label string `json:"label,omitempty"`
}

// Item is a catalog entry pushed by the host. It is read-only here.
type Item struct {
	ID           string        `json:"item"`
	Label        string        `json:"label"`
	Price        float64       `json:"price"`
	Category     string        `json:"category,omitempty"`
	Currency     string        `json:"currency,omitempty"`
	CurrencyInfo *CurrencyInfo `json:"currencyInfo,omitempty"`
	Locked       bool          `json:"locked,omitempty"`
	LockReason   string        `json:"lockReason,omitempty"`

	// raw is the host's original object; purchase requests echo it back so
	// fields unknown to us survive the round trip.
	raw json.RawMessage
}

type itemFields Item

func (i *Item) UnmarshalJSON(data []byte) error {
	var f itemFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*i = Item(f)
	i.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (i Item) Class() CurrencyClass { return ClassOf(i.Currency) }

// CurrencyLabel is the display name of the item's currency.
func (i Item) CurrencyLabel() string {
	if i.CurrencyInfo != nil && i.CurrencyInfo.Label != "" {
		return i.CurrencyInfo.Label
	}
	return i.Currency
}

// Validate rejects items that cannot be carted at all.
func (i Item) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("%w: item identifier is empty", ErrValidation)
	}
	if i.Price < 0 {
		return fmt.Errorf("%w: item %q has negative price", ErrValidation, i.ID)
	}
	return nil
}

// Categories returns "all" followed by item categories in order of first appearance.
func Categories(items []Item) []string {
	out := []string{CategoryAll}
	seen := make(map[string]struct{})
	for _, it := range items {
		if it.Category == "" {
			continue
		}
		if _, ok := seen[it.Category]; ok {
			continue
		}
		seen[it.Category] = struct{}{}
		out = append(out, it.Category)
	}
	return out
}

// FilterItems keeps items of category (all matches any) whose label
// contains query, case-insensitively.
func FilterItems(items []Item, category, query string) []Item {
	q := strings.ToLower(query)
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if category != "" && category != CategoryAll && it.Category != category {
			continue
		}
		if !strings.Contains(strings.ToLower(it.Label), q) {
			continue
		}
		out = append(out, it)
	}
	return out
}
