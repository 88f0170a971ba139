package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/cucumber/godog"

	"github.com/example/storefront/internal/adapter/cache"
	"github.com/example/storefront/internal/domain"
	"github.com/example/storefront/internal/usecase"
)

const stepTimeout = 2 * time.Second

type checkoutTestContext struct {
	host   *fakeHost
	engine *usecase.Engine
	stop   context.CancelFunc
	done   chan error

	shop domain.OpenShop
	view usecase.View
	err  error
}

func (c *checkoutTestContext) reset() {
	c.host = newFakeHost()
	c.engine = usecase.NewEngine(c.host, cache.NewMemoryCatalogCache())
	ctx, cancel := context.WithCancel(context.Background())
	c.stop = cancel
	c.done = make(chan error, 1)
	go func() { c.done <- c.engine.Run(ctx) }()

	c.shop = domain.OpenShop{CustomCurrencies: map[string]domain.CustomBalance{}}
	c.view = usecase.View{}
	c.err = nil
}

func (c *checkoutTestContext) shutdown() {
	c.stop()
	<-c.done
}

func (c *checkoutTestContext) record(v usecase.View, err error) error {
	c.view, c.err = v, err
	if errors.Is(err, usecase.ErrEngineStopped) {
		return err
	}
	return nil
}

func (c *checkoutTestContext) aCatalog(table *godog.Table) error {
	if len(table.Rows) < 2 {
		return errors.New("catalog table needs a header and at least one row")
	}
	header := table.Rows[0].Cells
	for _, row := range table.Rows[1:] {
		fields := make(map[string]string, len(header))
		for i, cell := range row.Cells {
			fields[header[i].Value] = cell.Value
		}
		price, err := strconv.ParseFloat(fields["price"], 64)
		if err != nil {
			return fmt.Errorf("price of %q: %w", fields["item"], err)
		}
		c.shop.Items = append(c.shop.Items, domain.Item{
			ID:       fields["item"],
			Label:    fields["label"],
			Price:    price,
			Category: fields["category"],
			Currency: fields["currency"],
		})
	}
	return nil
}

func (c *checkoutTestContext) thePlayerHasCashAndBank(cash, bank int) error {
	c.shop.Money = &domain.Money{Cash: float64(cash), Bank: float64(bank)}
	return nil
}

func (c *checkoutTestContext) thePlayerHoldsCustomCurrency(count int, id, label string) error {
	c.shop.CustomCurrencies[id] = domain.CustomBalance{Label: label, Count: float64(count)}
	return nil
}

func (c *checkoutTestContext) theShopIsOpen(label string) error {
	c.shop.ShopLabel = label
	v, err := c.engine.OpenShop(context.Background(), c.shop)
	if err != nil {
		return err
	}
	c.view = v
	return nil
}

func (c *checkoutTestContext) iAddToTheCart(id string) error {
	return c.record(c.engine.AddItem(context.Background(), id))
}

func (c *checkoutTestContext) iAddToTheCartTimes(id string, n int) error {
	for i := 0; i < n; i++ {
		if err := c.iAddToTheCart(id); err != nil {
			return err
		}
		if c.err != nil {
			return fmt.Errorf("add %q: %w", id, c.err)
		}
	}
	return nil
}

func (c *checkoutTestContext) iStartCheckout() error {
	return c.record(c.engine.BeginCheckout(context.Background()))
}

func (c *checkoutTestContext) iPayWith(method string) error {
	return c.record(c.engine.SelectPayment(context.Background(), method))
}

func (c *checkoutTestContext) reply(r hostReply) error {
	select {
	case c.host.replies <- r:
	case <-time.After(stepTimeout):
		return errors.New("no purchase request is waiting for an answer")
	}
	deadline := time.Now().Add(stepTimeout)
	for time.Now().Before(deadline) {
		v, err := c.engine.View(context.Background())
		if err != nil {
			return err
		}
		if v.Checkout.State != domain.CheckoutSubmitting {
			c.view = v
			return nil
		}
		time.Sleep(5 * time.Millisecond)
	}
	return errors.New("checkout is still submitting")
}

func (c *checkoutTestContext) theHostApproves(cash, bank int) error {
	return c.reply(hostReply{resp: domain.PurchaseResponse{
		Success:          true,
		Money:            &domain.Money{Cash: float64(cash), Bank: float64(bank)},
		CustomCurrencies: c.shop.CustomCurrencies,
	}})
}

func (c *checkoutTestContext) theHostDeclines(message string) error {
	return c.reply(hostReply{resp: domain.PurchaseResponse{Message: message}})
}

func (c *checkoutTestContext) theCartIsEmpty() error {
	if len(c.view.Cart) != 0 {
		return fmt.Errorf("expected empty cart, got %d lines", len(c.view.Cart))
	}
	return nil
}

func (c *checkoutTestContext) theCartHolds(qty int, id string) error {
	for _, l := range c.view.Cart {
		if l.ID == id {
			if l.Quantity != qty {
				return fmt.Errorf("expected %d %q, got %d", qty, id, l.Quantity)
			}
			return nil
		}
	}
	return fmt.Errorf("%q is not in the cart", id)
}

func (c *checkoutTestContext) theCartTotalIs(want string) error {
	if c.view.TotalDisplay != want {
		return fmt.Errorf("expected total %s, got %s", want, c.view.TotalDisplay)
	}
	return nil
}

func (c *checkoutTestContext) theCheckoutIs(state string) error {
	if string(c.view.Checkout.State) != state {
		return fmt.Errorf("expected checkout %s, got %s", state, c.view.Checkout.State)
	}
	return nil
}

func (c *checkoutTestContext) thePlayerHasCashLeft(cash int) error {
	if c.view.Wallet.Money.Cash != float64(cash) {
		return fmt.Errorf("expected %d cash, got %v", cash, c.view.Wallet.Money.Cash)
	}
	return nil
}

func (c *checkoutTestContext) theNotificationReads(msg string) error {
	if c.view.Notification == nil {
		return errors.New("no notification shown")
	}
	if c.view.Notification.Message != msg {
		return fmt.Errorf("expected notification %q, got %q", msg, c.view.Notification.Message)
	}
	return nil
}

func (c *checkoutTestContext) theCommandFailsWith(msg string) error {
	if c.err == nil {
		return errors.New("expected the command to fail")
	}
	if !strings.Contains(c.err.Error(), msg) {
		return fmt.Errorf("expected error containing %q, got %q", msg, c.err)
	}
	return nil
}

func (c *checkoutTestContext) theHostReceivedNoPurchase() error {
	if n := len(c.host.purchases()); n != 0 {
		return fmt.Errorf("expected no purchase, host got %d", n)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &checkoutTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})
	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		tc.shutdown()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^a catalog:$`, tc.aCatalog)
	ctx.Step(`^the player has (\d+) cash and (\d+) bank$`, tc.thePlayerHasCashAndBank)
	ctx.Step(`^the player holds (\d+) of custom currency "([^"]*)" labelled "([^"]*)"$`, tc.thePlayerHoldsCustomCurrency)
	ctx.Step(`^the shop "([^"]*)" is open$`, tc.theShopIsOpen)

	// When steps
	ctx.Step(`^I add "([^"]*)" to the cart$`, tc.iAddToTheCart)
	ctx.Step(`^I add "([^"]*)" to the cart (\d+) times$`, tc.iAddToTheCartTimes)
	ctx.Step(`^I start checkout$`, tc.iStartCheckout)
	ctx.Step(`^I pay with "([^"]*)"$`, tc.iPayWith)
	ctx.Step(`^the host approves the purchase leaving (\d+) cash and (\d+) bank$`, tc.theHostApproves)
	ctx.Step(`^the host declines the purchase with "([^"]*)"$`, tc.theHostDeclines)

	// Then steps
	ctx.Step(`^the cart is empty$`, tc.theCartIsEmpty)
	ctx.Step(`^the cart holds (\d+) "([^"]*)"$`, tc.theCartHolds)
	ctx.Step(`^the cart total is "([^"]*)"$`, tc.theCartTotalIs)
	ctx.Step(`^the checkout is "([^"]*)"$`, tc.theCheckoutIs)
	ctx.Step(`^the player has (\d+) cash left$`, tc.thePlayerHasCashLeft)
	ctx.Step(`^the notification reads "([^"]*)"$`, tc.theNotificationReads)
	ctx.Step(`^the command fails with "([^"]*)"$`, tc.theCommandFailsWith)
	ctx.Step(`^the host received no purchase$`, tc.theHostReceivedNoPurchase)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"../../features/checkout.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
