package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManager_BroadcastOrder(t *testing.T) {
	m := NewManager[int]()

	var got []string
	m.Subscribe(func(v int) { got = append(got, "first") })
	m.Subscribe(func(v int) { got = append(got, "second") })

	m.Broadcast(1)
	m.Broadcast(2)

	assert.Equal(t, []string{"first", "second", "first", "second"}, got)
}

func TestManager_Unsubscribe(t *testing.T) {
	m := NewManager[string]()

	var a, b []string
	idA := m.Subscribe(func(v string) { a = append(a, v) })
	m.Subscribe(func(v string) { b = append(b, v) })
	assert.Equal(t, 2, m.SubscriberCount())

	m.Broadcast("x")
	m.Unsubscribe(idA)
	m.Unsubscribe(idA)
	m.Unsubscribe("unknown")
	m.Broadcast("y")

	assert.Equal(t, []string{"x"}, a)
	assert.Equal(t, []string{"x", "y"}, b)
	assert.Equal(t, 1, m.SubscriberCount())
}

func TestManager_UnsubscribeDuringBroadcast(t *testing.T) {
	m := NewManager[int]()

	calls := 0
	var id string
	id = m.Subscribe(func(v int) {
		calls++
		m.Unsubscribe(id)
	})

	m.Broadcast(1)
	m.Broadcast(2)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, m.SubscriberCount())
}

func TestManager_PanickingListener(t *testing.T) {
	m := NewManager[int]()

	delivered := false
	m.Subscribe(func(v int) { panic("render failed") })
	m.Subscribe(func(v int) { delivered = true })

	assert.NotPanics(t, func() { m.Broadcast(1) })
	assert.True(t, delivered)
}

func TestManager_NextSequenceNo(t *testing.T) {
	m := NewManager[int]()
	assert.Equal(t, uint64(1), m.NextSequenceNo())
	assert.Equal(t, uint64(2), m.NextSequenceNo())
}

func TestManager_Close(t *testing.T) {
	m := NewManager[int]()
	called := false
	m.Subscribe(func(v int) { called = true })

	m.Close()
	m.Broadcast(1)

	assert.False(t, called)
	assert.Equal(t, 0, m.SubscriberCount())
}
