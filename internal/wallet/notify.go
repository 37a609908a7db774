package wallet

import "context"

type EventKind string

const (
	EventCreated   EventKind = "transaction.created"
	EventCompleted EventKind = "transaction.completed"
	EventCancelled EventKind = "transaction.cancelled"
)

// Event is published after a workflow step has been committed.
type Event struct {
	Kind        EventKind   `json:"kind"`
	Transaction Transaction `json:"transaction"`
	Account     Account     `json:"account"`
}

// Notifier receives committed workflow events. Implementations must not block
// for long and handle their own failures.
type Notifier interface {
	Notify(ctx context.Context, evt Event)
}

// Notifiers fans an event out to each member in order.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, evt Event) {
	for _, n := range ns {
		if n != nil {
			n.Notify(ctx, evt)
		}
	}
}
