package natsstan

import (
	"context"
	"errors"
	"fmt"
	"time"

	stan "github.com/nats-io/stan.go"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/domain"
)

const (
	handlerTimeout = 5 * time.Second
	ackWait        = 10 * time.Second
)

// Subscriber delivers host messages published on a NATS Streaming subject.
type Subscriber struct {
	ClusterID string
	ClientID  string
	URL       string
	Subject   string
	Queue     string
	Durable   string
	Logger    *zap.Logger
}

// Subscribe connects and registers handler. Messages the handler rejects
// are not acknowledged and get redelivered, except malformed ones which
// would never succeed.
func (s *Subscriber) Subscribe(ctx context.Context, handler func(ctx context.Context, raw []byte) error) error {
	log := s.Logger
	if log == nil {
		log = zap.NewNop()
	}
	clientID := s.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("storefront-%d", time.Now().UnixNano())
	}
	sc, err := stan.Connect(s.ClusterID, clientID, stan.NatsURL(s.URL))
	if err != nil {
		return fmt.Errorf("stan connect: %w", err)
	}
	go func() {
		<-ctx.Done()
		sc.Close()
	}()

	_, err = sc.QueueSubscribe(s.Subject, s.Queue, func(m *stan.Msg) {
		if !deliver(ctx, log, m.Sequence, m.Data, handler) {
			return
		}
		if err := m.Ack(); err != nil {
			log.Warn("ack failed", zap.Uint64("seq", m.Sequence), zap.Error(err))
		}
	}, stan.DurableName(s.Durable), stan.SetManualAckMode(), stan.AckWait(ackWait), stan.StartWithLastReceived())
	if err != nil {
		sc.Close()
		return fmt.Errorf("stan subscribe %s: %w", s.Subject, err)
	}
	log.Info("subscribed to host messages", zap.String("subject", s.Subject), zap.String("url", s.URL))
	return nil
}

// deliver runs handler for one message and reports whether it should be
// acknowledged.
func deliver(ctx context.Context, log *zap.Logger, seq uint64, data []byte, handler func(ctx context.Context, raw []byte) error) bool {
	hCtx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()
	err := handler(hCtx, data)
	switch {
	case err == nil:
		return true
	case isPermanent(err):
		log.Error("dropping host message", zap.Uint64("seq", seq), zap.Error(err))
		return true
	}
	log.Warn("host message not handled, awaiting redelivery", zap.Uint64("seq", seq), zap.Error(err))
	return false
}

// isPermanent reports errors that redelivery cannot fix.
func isPermanent(err error) bool {
	return errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrConflict)
}

var _ domain.MessageSubscriber = (*Subscriber)(nil)
