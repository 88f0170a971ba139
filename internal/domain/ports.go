package domain

import "context"

// CatalogCache holds the catalog of the currently open shop.
type CatalogCache interface {
	Replace(items []Item)
	Get(id string) (Item, bool)
	All() []Item
}

// HostGateway is the outbound request/response channel to the host.
type HostGateway interface {
	// Purchase submits a checkout request and returns the host's verdict.
	// A returned error means the verdict is unknown (transport, timeout,
	// malformed body).
	Purchase(ctx context.Context, req PurchaseRequest) (PurchaseResponse, error)
	// NotifyClosed tells the host the user closed the shop.
	NotifyClosed(ctx context.Context) error
}

// ReceiptRepository journals resolved checkout submissions.
type ReceiptRepository interface {
	Save(ctx context.Context, r Receipt) error
	Recent(ctx context.Context, limit int) ([]Receipt, error)
}

// MessageSubscriber delivers raw host messages.
type MessageSubscriber interface {
	// Subscribe registers the handler; acknowledgement and redelivery are
	// up to the adapter.
	Subscribe(ctx context.Context, handler func(ctx context.Context, raw []byte) error) error
}
