package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversOnPool(t *testing.T) {
	bus, err := NewBus(2)
	require.NoError(t, err)

	var mu sync.Mutex
	var got []int64
	var wg sync.WaitGroup
	wg.Add(3)
	require.NoError(t, bus.Subscribe(TopicOrderConfirmed, func(evt OrderEvent) {
		defer wg.Done()
		mu.Lock()
		got = append(got, evt.OrderID)
		mu.Unlock()
	}))

	for i := int64(1); i <= 3; i++ {
		bus.Publish(OrderEvent{Topic: TopicOrderConfirmed, OrderID: i})
	}
	bus.Publish(OrderEvent{Topic: TopicOrderCancelled, OrderID: 99})

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("subscriber not called")
	}
	bus.Close()

	assert.ElementsMatch(t, []int64{1, 2, 3}, got)
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	r.Publish(OrderEvent{Topic: TopicOrderPlaced})
	r.Publish(OrderEvent{Topic: TopicOrderConfirmed})
	assert.Equal(t, []string{TopicOrderPlaced, TopicOrderConfirmed}, r.Topics())
}
