// Package events defines domain events written to the transactional outbox.
package events

import (
	"context"
	"sync"

	"procura/internal/core/id"
)

// Event types.
const (
	PurchaseOrderCreated       = "PurchaseOrderCreated"
	PurchaseOrderStatusChanged = "PurchaseOrderStatusChanged"
	PurchaseOrderPaymentMade   = "PurchaseOrderPaymentRecorded"
	GoodsReceived              = "GoodsReceived"
)

// Aggregate types.
const (
	AggregatePurchaseOrder = "purchase_order"
	AggregateGoodsReceipt  = "goods_receipt"
)

// Event is a fact to publish after the surrounding transaction commits.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       any
}

// Publisher stores events in the caller's transaction.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Collector keeps published events in memory. Used by tests.
type Collector struct {
	mu     sync.Mutex
	events []Event
}

// Publish implements Publisher.
func (c *Collector) Publish(_ context.Context, event Event) error {
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
	return nil
}

// Events returns a copy of everything published so far.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

// OfType filters collected events by type.
func (c *Collector) OfType(eventType string) []Event {
	var out []Event
	for _, e := range c.Events() {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

// Snapshot lets tx.Memory discard events of a rolled back transaction.
func (c *Collector) Snapshot() any {
	return len(c.Events())
}

// Restore implements tx.Snapshotter.
func (c *Collector) Restore(state any) {
	n := state.(int)
	c.mu.Lock()
	c.events = c.events[:n]
	c.mu.Unlock()
}
