package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/storefront/internal/domain"
)

// Defaults for engine timings.
const (
	DefaultNotificationTTL = 3 * time.Second
	DefaultCheckoutTimeout = 10 * time.Second
	receiptSaveTimeout     = 5 * time.Second
	closeNotifyTimeout     = 5 * time.Second
)

// ErrEngineStopped is returned by Dispatch once Run has returned.
var ErrEngineStopped = errors.New("cart engine stopped")

// Command is a typed request executed on the engine goroutine.
type Command interface {
	apply(e *Engine) error
}

type envelope struct {
	cmd   Command
	reply chan result
}

type result struct {
	view View
	err  error
}

// Engine owns the shop session: cart, wallet, checkout attempt and
// notification. All state changes happen on the goroutine running Run,
// one command at a time, so none of the session fields are locked.
type Engine struct {
	host     domain.HostGateway
	catalog  domain.CatalogCache
	receipts domain.ReceiptRepository
	logger   *zap.Logger

	notificationTTL time.Duration
	checkoutTimeout time.Duration
	keepCartOnClose bool
	now             func() time.Time
	newAttemptID    func() string

	cmds   chan envelope
	done   chan struct{}
	runCtx context.Context
	wg     sync.WaitGroup

	st    session
	notes notifier
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(l *zap.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithReceipts journals every resolved submission.
func WithReceipts(r domain.ReceiptRepository) Option { return func(e *Engine) { e.receipts = r } }

func WithNotificationTTL(d time.Duration) Option {
	return func(e *Engine) { e.notificationTTL = d }
}

// WithCheckoutTimeout bounds the host purchase call; expiry resolves the
// attempt as failed.
func WithCheckoutTimeout(d time.Duration) Option {
	return func(e *Engine) { e.checkoutTimeout = d }
}

// WithKeepCartOnClose keeps the cart when the shop is closed. The next
// openShop still resets it.
func WithKeepCartOnClose(keep bool) Option {
	return func(e *Engine) { e.keepCartOnClose = keep }
}

func WithAttemptIDs(gen func() string) Option { return func(e *Engine) { e.newAttemptID = gen } }

// NewEngine wires an engine. Call Run before dispatching commands.
func NewEngine(host domain.HostGateway, catalog domain.CatalogCache, opts ...Option) *Engine {
	e := &Engine{
		host:            host,
		catalog:         catalog,
		logger:          zap.NewNop(),
		notificationTTL: DefaultNotificationTTL,
		checkoutTimeout: DefaultCheckoutTimeout,
		now:             time.Now,
		newAttemptID:    newAttemptID,
		cmds:            make(chan envelope),
		done:            make(chan struct{}),
		st:              newSession(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Run processes commands until ctx is cancelled. It must be called once.
func (e *Engine) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	e.runCtx = runCtx
	defer func() {
		cancel()
		e.notes.stop()
		close(e.done)
		e.wg.Wait()
	}()

	e.logger.Info("cart engine started")
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("cart engine stopped")
			return ctx.Err()
		case env := <-e.cmds:
			err := env.cmd.apply(e)
			if env.reply != nil {
				env.reply <- result{view: e.view(), err: err}
			}
		}
	}
}

// Dispatch runs cmd on the engine goroutine and returns the resulting view.
// Domain errors are returned alongside the view; the view always reflects
// the state after the command.
func (e *Engine) Dispatch(ctx context.Context, cmd Command) (View, error) {
	env := envelope{cmd: cmd, reply: make(chan result, 1)}
	select {
	case e.cmds <- env:
	case <-e.done:
		return View{}, ErrEngineStopped
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
	select {
	case r := <-env.reply:
		return r.view, r.err
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

// post queues an internal command without waiting for it. It must not be
// called from the engine goroutine.
func (e *Engine) post(cmd Command) {
	select {
	case e.cmds <- envelope{cmd: cmd}:
	case <-e.done:
	}
}

// background runs fn off the engine goroutine; Run waits for it on exit.
func (e *Engine) background(fn func()) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		fn()
	}()
}

func (e *Engine) OpenShop(ctx context.Context, p domain.OpenShop) (View, error) {
	return e.Dispatch(ctx, OpenShop{Payload: p})
}

func (e *Engine) CloseShop(ctx context.Context) (View, error) { return e.Dispatch(ctx, CloseShop{}) }

func (e *Engine) Close(ctx context.Context) (View, error) { return e.Dispatch(ctx, UserClose{}) }

func (e *Engine) KeyDown(ctx context.Context, key string) (View, error) {
	return e.Dispatch(ctx, KeyDown{Key: key})
}

func (e *Engine) AddItem(ctx context.Context, itemID string) (View, error) {
	return e.Dispatch(ctx, AddItem{ItemID: itemID})
}

func (e *Engine) RemoveItem(ctx context.Context, itemID string) (View, error) {
	return e.Dispatch(ctx, RemoveItem{ItemID: itemID})
}

func (e *Engine) ChangeQuantity(ctx context.Context, itemID string, delta int) (View, error) {
	return e.Dispatch(ctx, ChangeQuantity{ItemID: itemID, Delta: delta})
}

func (e *Engine) ClearCart(ctx context.Context) (View, error) { return e.Dispatch(ctx, ClearCart{}) }

func (e *Engine) BeginCheckout(ctx context.Context) (View, error) {
	return e.Dispatch(ctx, BeginCheckout{})
}

func (e *Engine) SelectPayment(ctx context.Context, method string) (View, error) {
	return e.Dispatch(ctx, SelectPayment{Method: method})
}

func (e *Engine) CancelCheckout(ctx context.Context) (View, error) {
	return e.Dispatch(ctx, CancelCheckout{})
}

// View returns the current derived state.
func (e *Engine) View(ctx context.Context) (View, error) { return e.Dispatch(ctx, Refresh{}) }
