package usecase

import (
	"time"

	"github.com/example/storefront/internal/domain"
)

// notifier keeps the latest notification. A new one supersedes the current
// one and cancels its timer; a stale timer cannot clear a newer message
// because expiry carries the generation it was scheduled for.
type notifier struct {
	current *domain.Notification
	gen     uint64
	timer   *time.Timer
}

type notificationExpired struct {
	gen uint64
}

func (c notificationExpired) apply(e *Engine) error {
	e.notes.expire(c.gen)
	return nil
}

func (n *notifier) show(e *Engine, kind domain.NotificationKind, msg string) {
	n.stop()
	n.gen++
	gen := n.gen
	n.current = &domain.Notification{Message: msg, Kind: kind}
	n.timer = time.AfterFunc(e.notificationTTL, func() {
		e.post(notificationExpired{gen: gen})
	})
}

func (n *notifier) expire(gen uint64) {
	if gen != n.gen {
		return
	}
	n.current = nil
	n.timer = nil
}

func (n *notifier) clear() {
	n.stop()
	n.gen++
	n.current = nil
}

func (n *notifier) stop() {
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}

func (n *notifier) latest() *domain.Notification {
	if n.current == nil {
		return nil
	}
	cp := *n.current
	return &cp
}
