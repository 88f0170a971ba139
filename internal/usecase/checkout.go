package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/domain"
)

// checkoutAttempt exists from BeginCheckout until success, cancel or close.
// submission is set only while Submitting.
type checkoutAttempt struct {
	state      domain.CheckoutState
	id         string
	method     string
	submission *domain.Submission
}

func idleCheckout() checkoutAttempt {
	return checkoutAttempt{state: domain.CheckoutIdle}
}

func newAttemptID() string { return uuid.NewString() }

// BeginCheckout opens the payment choice for a non-empty cart.
type BeginCheckout struct{}

func (BeginCheckout) apply(e *Engine) error {
	if err := e.requireOpen(); err != nil {
		return err
	}
	s := &e.st
	switch s.checkout.state {
	case domain.CheckoutSubmitting:
		return domain.ErrCheckoutInProgress
	case domain.CheckoutAwaitingPaymentChoice:
		return nil
	}
	if s.cart.IsEmpty() {
		e.notes.show(e, domain.NotifyError, domain.ErrCartEmpty.Error())
		return domain.ErrCartEmpty
	}
	s.checkout = checkoutAttempt{state: domain.CheckoutAwaitingPaymentChoice, id: e.newAttemptID()}
	e.logger.Debug("checkout opened", zap.String("attempt", s.checkout.id))
	return nil
}

// CancelCheckout closes the payment choice. An in-flight request is not
// aborted; its result is still reconciled when it arrives.
type CancelCheckout struct{}

func (CancelCheckout) apply(e *Engine) error {
	if e.st.checkout.state != domain.CheckoutIdle {
		e.logger.Debug("checkout cancelled",
			zap.String("attempt", e.st.checkout.id),
			zap.String("state", string(e.st.checkout.state)))
	}
	e.st.checkout = idleCheckout()
	return nil
}

// SelectPayment submits the cart with the chosen payment method.
type SelectPayment struct {
	Method string
}

func (c SelectPayment) apply(e *Engine) error {
	if err := e.requireOpen(); err != nil {
		return err
	}
	s := &e.st
	switch s.checkout.state {
	case domain.CheckoutIdle:
		return domain.ErrNoCheckout
	case domain.CheckoutSubmitting:
		return domain.ErrCheckoutInProgress
	}
	cls, ok := s.cart.Class()
	if !ok {
		s.checkout = idleCheckout()
		e.notes.show(e, domain.NotifyError, domain.ErrCartEmpty.Error())
		return domain.ErrCartEmpty
	}
	total := s.cart.Total()

	offered := false
	for _, opt := range domain.PaymentOptions(cls, s.wallet, total) {
		if opt.Method == c.Method {
			offered = true
			break
		}
	}
	if !offered {
		e.notes.show(e, domain.NotifyError, "This payment method cannot be used for this purchase")
		return fmt.Errorf("%w: %q for %s cart", domain.ErrMethodUnavailable, c.Method, cls)
	}
	if !s.wallet.Covers(c.Method, total) {
		e.notes.show(e, domain.NotifyError, insufficientMessage(cls, s.wallet, c.Method))
		return fmt.Errorf("%w: %s", domain.ErrInsufficientFunds, c.Method)
	}

	sub := domain.Submission{
		AttemptID:   s.checkout.id,
		Cart:        s.cart.Snapshot(),
		Total:       total,
		Method:      c.Method,
		SubmittedAt: e.now(),
		Generation:  s.generation,
	}
	s.settlements[sub.AttemptID] = domain.NewSettlement(sub.Cart)
	s.checkout.state = domain.CheckoutSubmitting
	s.checkout.method = c.Method
	s.checkout.submission = &sub
	e.submit(sub)
	return nil
}

func insufficientMessage(cls domain.CurrencyClass, w domain.Wallet, method string) string {
	if cls.IsStandard() {
		return "Insufficient funds in " + domain.StandardMethodName(method)
	}
	return "Insufficient " + domain.CustomCurrencyLabel(w, method)
}

// checkoutResolved carries the host's answer for a submission back onto
// the engine goroutine.
type checkoutResolved struct {
	sub  domain.Submission
	resp domain.PurchaseResponse
	err  error
}

func (e *Engine) submit(sub domain.Submission) {
	req := domain.PurchaseRequest{
		Items:         sub.Cart.Lines(),
		Total:         sub.Total.InexactFloat64(),
		PaymentMethod: sub.Method,
	}
	e.logger.Info("submitting checkout",
		zap.String("attempt", sub.AttemptID),
		zap.String("method", sub.Method),
		zap.String("total", sub.Total.String()),
		zap.Int("lines", len(req.Items)))

	e.background(func() {
		ctx, cancel := context.WithTimeout(e.runCtx, e.checkoutTimeout)
		defer cancel()
		resp, err := e.host.Purchase(ctx, req)
		e.post(checkoutResolved{sub: sub, resp: resp, err: err})
	})
}

func (c checkoutResolved) apply(e *Engine) error {
	s := &e.st
	current := s.checkout.state == domain.CheckoutSubmitting && s.checkout.id == c.sub.AttemptID
	log := e.logger.With(zap.String("attempt", c.sub.AttemptID), zap.Bool("current", current))
	pending, pendingOK := s.settlements[c.sub.AttemptID]
	delete(s.settlements, c.sub.AttemptID)

	if c.err != nil {
		log.Warn("checkout request failed", zap.Error(c.err))
		e.failCheckout(current, c.sub, domain.DefaultPurchaseFailure)
		return nil
	}

	if !c.resp.Success {
		msg := c.resp.Message
		if msg == "" {
			msg = domain.DefaultPurchaseFailure
		}
		if c.resp.Money != nil {
			s.wallet.Money = *c.resp.Money
		}
		if c.resp.CustomCurrencies != nil {
			s.wallet.CustomCurrencies = c.resp.CustomCurrencies
		}
		log.Info("checkout rejected by host", zap.String("message", msg))
		e.failCheckout(current, c.sub, msg)
		return nil
	}

	// Label comes from the balances the player paid with, before the host's update.
	msg := successMessage(c.sub, s.wallet)
	if c.resp.Money != nil {
		s.wallet.Money = *c.resp.Money
	}
	s.wallet.CustomCurrencies = c.resp.CustomCurrencies
	if s.wallet.CustomCurrencies == nil {
		s.wallet.CustomCurrencies = map[string]domain.CustomBalance{}
	}
	if current {
		s.checkout = idleCheckout()
	}
	if pendingOK && c.sub.Generation == s.generation {
		s.cart.Settle(pending)
		e.cartShrunk()
	} else {
		log.Info("cart was reset since submission, nothing to settle")
	}
	e.notes.show(e, domain.NotifySuccess, msg)
	log.Info("checkout succeeded", zap.String("method", c.sub.Method), zap.String("total", c.sub.Total.String()))
	e.record(c.sub, true, "")
	return nil
}

func (e *Engine) failCheckout(current bool, sub domain.Submission, msg string) {
	if current {
		e.st.checkout.state = domain.CheckoutAwaitingPaymentChoice
		e.st.checkout.submission = nil
		if e.st.cart.IsEmpty() {
			e.st.checkout = idleCheckout()
		}
	}
	e.notes.show(e, domain.NotifyError, msg)
	e.record(sub, false, msg)
}

func successMessage(sub domain.Submission, w domain.Wallet) string {
	if cls, _ := sub.Cart.Class(); cls.IsStandard() {
		return fmt.Sprintf("Purchase successful! Paid $%s with %s", sub.Total, domain.StandardMethodName(sub.Method))
	}
	return fmt.Sprintf("Purchase successful! Paid %s %s", sub.Total, domain.CustomCurrencyLabel(w, sub.Method))
}

func (e *Engine) record(sub domain.Submission, success bool, msg string) {
	if e.receipts == nil {
		return
	}
	cls, _ := sub.Cart.Class()
	r := domain.Receipt{
		AttemptID:  sub.AttemptID,
		ShopLabel:  e.st.shopLabel,
		Method:     sub.Method,
		Currency:   cls,
		Total:      sub.Total,
		Lines:      sub.Cart.Lines(),
		Success:    success,
		Message:    msg,
		ResolvedAt: e.now(),
	}
	e.background(func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(e.runCtx), receiptSaveTimeout)
		defer cancel()
		if err := e.receipts.Save(ctx, r); err != nil {
			e.logger.Error("save receipt", zap.String("attempt", r.AttemptID), zap.Error(err))
		}
	})
}
