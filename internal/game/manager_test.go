package game

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	settings := DefaultSettings()
	settings.SweepInterval = time.Hour
	settings.RoomTTL = time.Minute
	m := NewManager(newTestService(t), nil, settings, zerolog.Nop())
	t.Cleanup(m.Stop)
	return m
}

func TestManagerGetOrCreate(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	room := m.GetOrCreate("g:c")
	assert.Same(t, room, m.GetOrCreate("g:c"))
	assert.Equal(t, 1, m.Count())

	other := m.GetOrCreate("elsewhere")
	assert.NotSame(t, room, other)
	assert.Equal(t, 2, m.Count())

	got, ok := m.Get("g:c")
	require.True(t, ok)
	assert.Same(t, room, got)

	_, ok = m.Get("missing")
	assert.False(t, ok)
}

func TestManagerSweepsIdleRooms(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	idle := m.GetOrCreate("idle")
	busy := m.GetOrCreate("busy")
	conn := join(busy, "p1", "ada")
	defer busy.RemoveConn(conn)

	m.sweep(time.Now().Add(2 * time.Minute))

	assert.Equal(t, 1, m.Count())
	_, ok := m.Get("idle")
	assert.False(t, ok)
	_, ok = m.Get("busy")
	assert.True(t, ok)

	idle.mu.Lock()
	closed := idle.closed
	idle.mu.Unlock()
	assert.True(t, closed)
}

func TestManagerStopClosesRooms(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	room := m.GetOrCreate("g:c")
	conn := join(room, "p1", "ada")

	m.Stop()

	assert.Equal(t, 0, m.Count())
	conn.mu.Lock()
	closed := conn.closed
	conn.mu.Unlock()
	assert.True(t, closed)
}
