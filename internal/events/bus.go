package events

import (
	"github.com/asaskevich/EventBus"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

const (
	TopicOrderPlaced    = "order.placed"
	TopicOrderConfirmed = "order.confirmed"
	TopicOrderCancelled = "order.cancelled"
	TopicOrderStatus    = "order.status"
	TopicPaymentFailed  = "payment.failed"
)

// OrderEvent is the payload of every order lifecycle topic.
type OrderEvent struct {
	Topic     string
	OrderID   int64
	UserID    int64
	PaymentID int64
	Status    string
	Reason    string
}

// Publisher is what services need to announce lifecycle changes.
type Publisher interface {
	Publish(evt OrderEvent)
}

// Bus fans order events out to subscribers. Subscribers run on a bounded
// worker pool so publishers never wait on mail or courier calls.
type Bus struct {
	bus  EventBus.Bus
	pool *ants.Pool
}

func NewBus(workers int) (*Bus, error) {
	if workers <= 0 {
		workers = 16
	}
	pool, err := ants.NewPool(workers, ants.WithPanicHandler(func(p interface{}) {
		zap.S().Errorf("event subscriber panic: %v", p)
	}))
	if err != nil {
		return nil, err
	}
	return &Bus{bus: EventBus.New(), pool: pool}, nil
}

func (b *Bus) Publish(evt OrderEvent) {
	b.bus.Publish(evt.Topic, evt)
}

// Subscribe registers fn for topic. fn runs on the worker pool.
func (b *Bus) Subscribe(topic string, fn func(evt OrderEvent)) error {
	return b.bus.Subscribe(topic, func(evt OrderEvent) {
		if err := b.pool.Submit(func() { fn(evt) }); err != nil {
			zap.L().Warn("event dropped",
				zap.String("namespace", "events"),
				zap.String("topic", evt.Topic),
				zap.Int64("order_id", evt.OrderID),
				zap.Error(err))
		}
	})
}

// Running reports the number of subscriber tasks in flight.
func (b *Bus) Running() int {
	return b.pool.Running()
}

// Close waits for queued subscriber tasks and stops the pool.
func (b *Bus) Close() {
	b.bus.WaitAsync()
	_ = b.pool.ReleaseTimeout(defaultDrainTimeout)
}

// Recorder is a synchronous Publisher for tests.
type Recorder struct {
	Events []OrderEvent
}

func (r *Recorder) Publish(evt OrderEvent) {
	r.Events = append(r.Events, evt)
}

// Topics returns the recorded topics in publish order.
func (r *Recorder) Topics() []string {
	topics := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		topics = append(topics, e.Topic)
	}
	return topics
}
