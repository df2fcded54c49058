package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalEventBus(t *testing.T) {
	bus := NewLocalEventBus(1)
	ch, cancel := bus.Subscribe(7)
	other, cancelOther := bus.Subscribe(8)
	defer cancelOther()

	bus.Publish(NewEvent(EventOrderCompleted, 7, map[string]string{"order": "A1"}))
	bus.Publish(NewEvent(EventOrderCompleted, 7, nil)) // dropped, buffer full

	select {
	case ev := <-ch:
		assert.Equal(t, EventOrderCompleted, ev.Type)
		assert.JSONEq(t, `{"order":"A1"}`, string(ev.Payload))
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
	select {
	case <-other:
		t.Fatal("event leaked to another user")
	default:
	}

	cancel()
	cancel()
	_, open := <-ch
	require.False(t, open)
	bus.Publish(NewEvent(EventOrderCompleted, 7, nil))
}

func TestLocalLocker(t *testing.T) {
	release, ok, err := LocalLocker{}.TryLock(context.Background(), "x", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	release()
}
