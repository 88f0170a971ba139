package natsstan

import (
	"fmt"

	stan "github.com/nats-io/stan.go"

	"github.com/example/storefront/internal/domain"
)

// Publisher puts host messages on the subject the storefront listens on.
type Publisher struct {
	conn    stan.Conn
	subject string
}

// Dial connects a publisher to the streaming cluster.
func Dial(clusterID, clientID, url, subject string) (*Publisher, error) {
	sc, err := stan.Connect(clusterID, clientID, stan.NatsURL(url))
	if err != nil {
		return nil, fmt.Errorf("stan connect: %w", err)
	}
	return &Publisher{conn: sc, subject: subject}, nil
}

// Publish checks raw is a host message the storefront understands and
// publishes it unchanged.
func (p *Publisher) Publish(raw []byte) (domain.HostMessage, error) {
	msg, err := domain.ParseHostMessage(raw)
	if err != nil {
		return domain.HostMessage{}, err
	}
	if err := p.conn.Publish(p.subject, raw); err != nil {
		return domain.HostMessage{}, fmt.Errorf("publish %s: %w", p.subject, err)
	}
	return msg, nil
}

func (p *Publisher) Close() error { return p.conn.Close() }
