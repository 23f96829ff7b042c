package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/trade-registry/internal/models"
	"github.com/javajoker/trade-registry/internal/workflow"
)

type countingCounter struct {
	mu    sync.Mutex
	calls map[string]int
}

func (c *countingCounter) IncEventsPublished(kind, transport string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = map[string]int{}
	}
	c.calls[kind+"/"+transport]++
}

func sampleRequest() *models.Request {
	req := &models.Request{CompanyName: "Alpha", StatusID: models.StatusSubmitted, ProvinceID: 3}
	req.ID = uuid.New()
	return req
}

func TestHub_FanOut(t *testing.T) {
	counter := &countingCounter{}
	hub := NewHub(4, counter)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := hub.Subscribe(ctx)
	b := hub.Subscribe(ctx)
	assert.Equal(t, 2, hub.Subscribers())

	req := sampleRequest()
	hub.PublishRequestEvent(ctx, workflow.EventRequestCreated, req)

	for _, ch := range []<-chan Event{a, b} {
		select {
		case evt := <-ch:
			assert.Equal(t, workflow.EventRequestCreated, evt.Kind)
			assert.Equal(t, req.ID, evt.Request.ID)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
	assert.Equal(t, 1, counter.calls["RequestCreated/local"])
}

func TestHub_UnsubscribeOnCancel(t *testing.T) {
	hub := NewHub(1, nil)
	ctx, cancel := context.WithCancel(context.Background())

	ch := hub.Subscribe(ctx)
	require.Equal(t, 1, hub.Subscribers())
	cancel()

	assert.Eventually(t, func() bool { return hub.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
	_, open := <-ch
	assert.False(t, open)
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub(1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = hub.Subscribe(ctx)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			hub.PublishRequestEvent(ctx, workflow.EventRequestUpdated, sampleRequest())
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full subscriber")
	}
}
