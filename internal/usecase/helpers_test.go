package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/adapter/cache"
	"github.com/example/storefront/internal/domain"
	"github.com/example/storefront/internal/usecase"
)

type hostReply struct {
	resp domain.PurchaseResponse
	err  error
}

// fakeHost answers purchases from the replies channel, or immediately
// with auto when it is set.
type fakeHost struct {
	mu       sync.Mutex
	requests []domain.PurchaseRequest
	closes   int
	auto     *hostReply
	replies  chan hostReply
}

func newFakeHost() *fakeHost {
	return &fakeHost{replies: make(chan hostReply)}
}

func (h *fakeHost) Purchase(ctx context.Context, req domain.PurchaseRequest) (domain.PurchaseResponse, error) {
	h.mu.Lock()
	h.requests = append(h.requests, req)
	auto := h.auto
	h.mu.Unlock()

	if auto != nil {
		return auto.resp, auto.err
	}
	select {
	case r := <-h.replies:
		return r.resp, r.err
	case <-ctx.Done():
		return domain.PurchaseResponse{}, ctx.Err()
	}
}

func (h *fakeHost) NotifyClosed(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closes++
	return nil
}

func (h *fakeHost) answer(resp domain.PurchaseResponse) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.auto = &hostReply{resp: resp}
}

func (h *fakeHost) purchases() []domain.PurchaseRequest {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.PurchaseRequest(nil), h.requests...)
}

func (h *fakeHost) closeCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closes
}

type memReceipts struct {
	mu   sync.Mutex
	list []domain.Receipt
}

func (m *memReceipts) Save(_ context.Context, r domain.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.list = append(m.list, r)
	return nil
}

func (m *memReceipts) Recent(_ context.Context, limit int) ([]domain.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.list) {
		limit = len(m.list)
	}
	return append([]domain.Receipt(nil), m.list[len(m.list)-limit:]...), nil
}

func (m *memReceipts) all() []domain.Receipt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Receipt(nil), m.list...)
}

func startEngine(t *testing.T, host domain.HostGateway, opts ...usecase.Option) *usecase.Engine {
	t.Helper()
	e := usecase.NewEngine(host, cache.NewMemoryCatalogCache(), opts...)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return e
}

func testShop() domain.OpenShop {
	return domain.OpenShop{
		ShopLabel: "Corner Shop",
		Items: []domain.Item{
			{ID: "bread", Label: "Bread", Price: 3, Category: "food"},
			{ID: "water", Label: "Water", Price: 5, Category: "drinks", Currency: domain.MethodBank},
			{ID: "ticket", Label: "Ticket", Price: 2, Currency: "tokens"},
			{ID: "gun", Label: "Gun", Price: 100, Locked: true, LockReason: "Requires a weapon license"},
		},
		Money: &domain.Money{Cash: 10, Bank: 50},
		CustomCurrencies: map[string]domain.CustomBalance{
			"tokens": {Label: "Tokens", Count: 5},
		},
	}
}

func openTestShop(t *testing.T, e *usecase.Engine) usecase.View {
	t.Helper()
	v, err := e.OpenShop(context.Background(), testShop())
	require.NoError(t, err)
	return v
}

// waitView polls the engine until cond holds for its view.
func waitView(t *testing.T, e *usecase.Engine, cond func(usecase.View) bool) usecase.View {
	t.Helper()
	var last usecase.View
	require.Eventually(t, func() bool {
		v, err := e.View(context.Background())
		if err != nil {
			return false
		}
		last = v
		return cond(v)
	}, 2*time.Second, 5*time.Millisecond)
	return last
}

func quantities(v usecase.View) map[string]int {
	out := make(map[string]int, len(v.Cart))
	for _, l := range v.Cart {
		out[l.ID] = l.Quantity
	}
	return out
}
