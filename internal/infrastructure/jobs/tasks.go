// Package jobs relays outbox events into asynq tasks and handles them.
package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"procura/internal/domain/events"
	"procura/internal/infrastructure/storage/postgres"
)

const (
	// QueueDefault is the queue procurement tasks run on.
	QueueDefault = "procurement"

	TaskGoodsReceived      = "procurement:goods_received"
	TaskPOStatusChanged    = "procurement:po_status_changed"
	TaskPOPaymentRecorded  = "procurement:po_payment_recorded"
	TaskPurchaseOrderAdded = "procurement:po_created"

	maxRetry = 10
)

var taskTypes = map[string]string{
	events.GoodsReceived:              TaskGoodsReceived,
	events.PurchaseOrderStatusChanged: TaskPOStatusChanged,
	events.PurchaseOrderPaymentMade:   TaskPOPaymentRecorded,
	events.PurchaseOrderCreated:       TaskPurchaseOrderAdded,
}

// TaskType maps an outbox event type to its task type.
func TaskType(eventType string) (string, bool) {
	t, ok := taskTypes[eventType]
	return t, ok
}

// Enqueuer is the part of asynq.Client the forwarder needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Forwarder is the outbox handler that turns each message into a task.
// The outbox message id is the task id, so a redelivered message is enqueued once.
type Forwarder struct {
	client Enqueuer
}

var _ postgres.OutboxHandler = (*Forwarder)(nil)

// NewForwarder creates a forwarder.
func NewForwarder(client Enqueuer) *Forwarder {
	return &Forwarder{client: client}
}

// Handle implements postgres.OutboxHandler. Unknown event types are dropped.
func (f *Forwarder) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	taskType, ok := TaskType(msg.EventType)
	if !ok {
		return nil
	}
	task := asynq.NewTask(taskType, msg.Payload)
	_, err := f.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueDefault),
		asynq.TaskID(msg.ID.String()),
		asynq.MaxRetry(maxRetry),
	)
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}
