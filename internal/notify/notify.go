// Package notify decouples workflow transitions from notification delivery.
// The workflow services publish events onto a Bus; subscribers (websocket
// push, email) consume them on a dispatch goroutine. Publish never blocks and
// a subscriber failure never reaches the workflow.
package notify

import (
	"go.uber.org/zap"
)

// Event kinds
const (
	KindLeave         = "leave"
	KindReimbursement = "reimbursement"
	KindHoliday       = "holiday"
)

// Event describes a status change addressed to one employee. An event with an
// empty EmployeeID is an announcement for every connected user, such as a new
// company holiday.
type Event struct {
	EmployeeID string `json:"employee_id,omitempty"`
	RequestID  string `json:"request_id"`
	Kind       string `json:"kind"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

// Dispatcher is what the workflow services see.
type Dispatcher interface {
	Publish(event Event)
}

// Subscriber receives every published event. Errors are logged by the bus,
// never propagated.
type Subscriber interface {
	Notify(event Event) error
}

// Bus fans events out to subscribers. Delivery is fire-and-forget: a full
// buffer drops the event with a warning rather than stalling an approval.
type Bus struct {
	events      chan Event
	subscribers []Subscriber
	logger      *zap.Logger
	done        chan struct{}
}

func NewBus(buffer int, logger *zap.Logger, subscribers ...Subscriber) *Bus {
	if buffer <= 0 {
		buffer = 256
	}
	return &Bus{
		events:      make(chan Event, buffer),
		subscribers: subscribers,
		logger:      logger.Named("notify.bus"),
		done:        make(chan struct{}),
	}
}

// Publish enqueues the event, dropping it when the buffer is full.
func (b *Bus) Publish(event Event) {
	select {
	case b.events <- event:
	default:
		b.logger.Warn("notification buffer full, dropping event",
			zap.String("kind", event.Kind),
			zap.String("request_id", event.RequestID),
		)
	}
}

// Run delivers events until Close is called. Intended as a goroutine.
func (b *Bus) Run() {
	for {
		select {
		case event := <-b.events:
			b.deliver(event)
		case <-b.done:
			// Drain what is already queued before exiting.
			for {
				select {
				case event := <-b.events:
					b.deliver(event)
				default:
					return
				}
			}
		}
	}
}

// Close stops the dispatch loop after draining queued events.
func (b *Bus) Close() {
	close(b.done)
}

func (b *Bus) deliver(event Event) {
	for _, sub := range b.subscribers {
		if err := sub.Notify(event); err != nil {
			b.logger.Warn("notification delivery failed",
				zap.String("kind", event.Kind),
				zap.String("request_id", event.RequestID),
				zap.Error(err),
			)
		}
	}
}
