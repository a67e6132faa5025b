package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"framelift/internal/domain"
)

func TestEventBusPublishSubscribe(t *testing.T) {
	bus := NewEventBus()

	ch := bus.Subscribe("job1")
	bus.Publish("job1", Event{Type: "stage", Stage: domain.StageDownload, Progress: 0.15})

	event := <-ch
	assert.Equal(t, domain.StageDownload, event.Stage)
	assert.Equal(t, 0.15, event.Progress)
}

func TestEventBusIsolatesJobs(t *testing.T) {
	bus := NewEventBus()

	ch1 := bus.Subscribe("job1")
	ch2 := bus.Subscribe("job2")

	bus.Publish("job1", Event{Type: "stage", Stage: domain.StageUpload})

	assert.Len(t, ch1, 1)
	assert.Len(t, ch2, 0)
}

func TestEventBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewEventBus()

	ch := bus.Subscribe("job1")
	bus.Unsubscribe("job1", ch)

	_, open := <-ch
	assert.False(t, open)

	// publishing to a fully-unsubscribed job is a no-op
	bus.Publish("job1", Event{Type: "stage"})
}

func TestEventBusDropsWhenSubscriberIsSlow(t *testing.T) {
	bus := NewEventBus()

	ch := bus.Subscribe("job1")
	for n := 0; n < 20; n++ {
		bus.Publish("job1", Event{Type: "stage"})
	}

	// buffer is 16; the rest were dropped rather than blocking the
	// publishing job
	assert.Len(t, ch, 16)
}
