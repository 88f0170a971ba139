package domain

import (
	"encoding/json"
	"fmt"
)

// Host message actions.
const (
	ActionOpenShop  = "openShop"
	ActionCloseShop = "closeShop"
)

// DefaultShopLabel is used when openShop carries no label.
const DefaultShopLabel = "General Store"

// Theme carries the shop colours.
type Theme struct {
	Primary     string `json:"primary"`
	PrimaryDark string `json:"primaryDark"`
	PrimaryText string `json:"primaryText"`
}

// DefaultTheme is applied when openShop carries no theme.
func DefaultTheme() Theme {
	return Theme{Primary: "#4ade80", PrimaryDark: "#22c55e", PrimaryText: "#0f0f10"}
}

// OpenShop is the payload of the openShop host message.
type OpenShop struct {
	Items            []Item                   `json:"items"`
	Money            *Money                   `json:"money,omitempty"`
	CustomCurrencies map[string]CustomBalance `json:"customCurrencies,omitempty"`
	ShopLabel        string                   `json:"shopLabel,omitempty"`
	Theme            *Theme                   `json:"theme,omitempty"`
}

// HostMessage is any inbound host message.
type HostMessage struct {
	Action string `json:"action"`
	OpenShop
}

// ParseHostMessage decodes and checks an inbound host message.
func ParseHostMessage(raw []byte) (HostMessage, error) {
	var m HostMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return HostMessage{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	switch m.Action {
	case ActionOpenShop, ActionCloseShop:
		return m, nil
	}
	return HostMessage{}, fmt.Errorf("%w: %q", ErrUnknownAction, m.Action)
}

// PurchaseRequest is the body of the purchaseItems request.
type PurchaseRequest struct {
	Items         []CartLine `json:"items"`
	Total         float64    `json:"total"`
	PaymentMethod string     `json:"paymentMethod"`
}

// PurchaseResponse is the host's verdict on a purchase.
type PurchaseResponse struct {
	Success          bool                     `json:"success"`
	Money            *Money                   `json:"money,omitempty"`
	CustomCurrencies map[string]CustomBalance `json:"customCurrencies,omitempty"`
	Message          string                   `json:"message,omitempty"`
}

// NotificationKind classifies a notification.
type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyError   NotificationKind = "error"
	NotifyInfo    NotificationKind = "info"
)

// Notification is the transient message shown to the player.
type Notification struct {
	Message string           `json:"message"`
	Kind    NotificationKind `json:"type"`
}
