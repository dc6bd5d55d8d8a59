// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryEventBus_Publish_AssignsFields(t *testing.T) {
	bus := NewMemoryEventBus(MemoryBusConfig{})
	defer bus.Close()
	bus.SetProject("/work/demo")

	var received Event
	_, err := bus.Subscribe("*", func(ctx context.Context, e Event) error {
		received = e
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), Event{Type: EventDataChanged}))

	assert.NotEmpty(t, received.ID)
	assert.False(t, received.Timestamp.IsZero())
	assert.Equal(t, "/work/demo", received.Project)
}

func TestMemoryEventBus_Publish_KeepsExplicitProject(t *testing.T) {
	bus := NewMemoryEventBus(MemoryBusConfig{})
	defer bus.Close()
	bus.SetProject("/work/demo")

	require.NoError(t, bus.Publish(context.Background(), Event{Type: EventDataChanged, Project: "/other"}))

	history, err := bus.History(EventFilter{})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "/other", history[0].Project)
}

func TestMemoryEventBus_Subscribe_PatternMatching(t *testing.T) {
	bus := NewMemoryEventBus(MemoryBusConfig{})
	defer bus.Close()

	var changed, terminal int32
	_, err := bus.Subscribe("*.changed", func(ctx context.Context, e Event) error {
		atomic.AddInt32(&changed, 1)
		return nil
	})
	require.NoError(t, err)
	_, err = bus.Subscribe("terminal.*", func(ctx context.Context, e Event) error {
		atomic.AddInt32(&terminal, 1)
		return nil
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, Event{Type: EventDataChanged}))
	require.NoError(t, bus.Publish(ctx, Event{Type: EventScriptChanged}))
	require.NoError(t, bus.Publish(ctx, Event{Type: EventTerminalOpened}))

	assert.Equal(t, int32(2), atomic.LoadInt32(&changed))
	assert.Equal(t, int32(1), atomic.LoadInt32(&terminal))
}

func TestMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewMemoryEventBus(MemoryBusConfig{})
	defer bus.Close()

	var count int32
	id, err := bus.Subscribe("*", func(ctx context.Context, e Event) error {
		atomic.AddInt32(&count, 1)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), Event{Type: EventDataChanged}))
	require.NoError(t, bus.Unsubscribe(id))
	require.NoError(t, bus.Publish(context.Background(), Event{Type: EventDataChanged}))

	assert.Equal(t, int32(1), atomic.LoadInt32(&count))
	assert.ErrorIs(t, bus.Unsubscribe(id), ErrSubscriptionNotFound)
}

func TestMemoryEventBus_SubscribeAsync(t *testing.T) {
	bus := NewMemoryEventBus(MemoryBusConfig{})
	defer bus.Close()

	received := make(chan Event, 1)
	_, err := bus.SubscribeAsync(EventOutputChanged, func(ctx context.Context, e Event) error {
		received <- e
		return nil
	}, 10)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), Event{
		Type:       EventOutputChanged,
		Path:       "/work/demo/output_folder/a.csv",
		ChangeType: "created",
	}))

	select {
	case e := <-received:
		assert.Equal(t, "created", e.ChangeType)
		assert.Equal(t, "/work/demo/output_folder/a.csv", e.Path)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for async event")
	}
}

func TestMemoryEventBus_HandlerErrorAndPanic(t *testing.T) {
	bus := NewMemoryEventBus(MemoryBusConfig{})
	defer bus.Close()

	var reached int32
	_, err := bus.Subscribe("*", func(ctx context.Context, e Event) error {
		return errors.New("boom")
	})
	require.NoError(t, err)
	_, err = bus.Subscribe("*", func(ctx context.Context, e Event) error {
		panic("handler exploded")
	})
	require.NoError(t, err)
	_, err = bus.Subscribe("*", func(ctx context.Context, e Event) error {
		atomic.AddInt32(&reached, 1)
		return nil
	})
	require.NoError(t, err)

	assert.NoError(t, bus.Publish(context.Background(), Event{Type: EventDataChanged}))
	assert.Equal(t, int32(1), atomic.LoadInt32(&reached))
}

func TestMemoryEventBus_Close(t *testing.T) {
	bus := NewMemoryEventBus(MemoryBusConfig{})

	_, err := bus.SubscribeAsync("*", func(ctx context.Context, e Event) error { return nil }, 1)
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(context.Background(), Event{Type: EventDataChanged}), ErrBusClosed)
	_, err = bus.Subscribe("*", func(ctx context.Context, e Event) error { return nil })
	assert.ErrorIs(t, err, ErrBusClosed)
	_, err = bus.History(EventFilter{})
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestMemoryEventBus_Concurrency(t *testing.T) {
	bus := NewMemoryEventBus(MemoryBusConfig{HistoryMaxEvents: 10000})
	defer bus.Close()

	var count int64
	_, err := bus.Subscribe("*", func(ctx context.Context, e Event) error {
		atomic.AddInt64(&count, 1)
		return nil
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				bus.Publish(context.Background(), Event{Type: EventScriptChanged})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1000), atomic.LoadInt64(&count))
	history, err := bus.History(EventFilter{})
	require.NoError(t, err)
	assert.Len(t, history, 1000)
}
