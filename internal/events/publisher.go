// Package events publishes ledger changes to the storefront's message bus so
// other services (notifications, access grants, analytics) can react to them.
// Publishing is best effort: the ledger is the source of truth.
package events

import (
	"context"
	"encoding/json"
	"sync"
)

// Routing keys.
const (
	PackPurchased       = "purchase.pack.completed"
	LiveTicketPurchased = "purchase.live_ticket.completed"
	CallConfirmed       = "call.confirmed"
	SubscriptionSynced  = "subscription.synced"
	PayoutCreated       = "payout.created"
	PayoutFailed        = "payout.failed"
)

// Publisher sends a JSON-encoded message under a routing key.
type Publisher interface {
	PublishJSON(ctx context.Context, routingKey string, v any) error
}

// Noop discards every message.
type Noop struct{}

func (Noop) PublishJSON(context.Context, string, any) error { return nil }

// Message is one captured publication.
type Message struct {
	RoutingKey string
	Body       json.RawMessage
}

// Recorder keeps published messages in memory.
type Recorder struct {
	mu   sync.Mutex
	msgs []Message
}

func (r *Recorder) PublishJSON(_ context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.msgs = append(r.msgs, Message{RoutingKey: key, Body: b})
	r.mu.Unlock()
	return nil
}

// Messages returns a copy of everything published so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.msgs))
	copy(out, r.msgs)
	return out
}

// Keys returns the routing keys published so far, in order.
func (r *Recorder) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.msgs))
	for _, m := range r.msgs {
		out = append(out, m.RoutingKey)
	}
	return out
}
