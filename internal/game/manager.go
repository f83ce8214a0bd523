package game

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/raylou15/context-clues/internal/similarity"
)

// Manager owns the live rooms and sweeps idle ones on an interval.
type Manager struct {
	svc      *similarity.Service
	recorder StatsRecorder
	settings Settings
	log      zerolog.Logger

	mu    sync.Mutex
	rooms map[string]*Room

	done     chan struct{}
	stopOnce sync.Once
}

func NewManager(svc *similarity.Service, recorder StatsRecorder, settings Settings, logger zerolog.Logger) *Manager {
	m := &Manager{
		svc:      svc,
		recorder: recorder,
		settings: settings.withDefaults(),
		log:      logger.With().Str("component", "rooms").Logger(),
		rooms:    make(map[string]*Room),
		done:     make(chan struct{}),
	}
	go m.sweepLoop()
	return m
}

// GetOrCreate returns the room for id, creating it on first join.
func (m *Manager) GetOrCreate(id string) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	if room, ok := m.rooms[id]; ok {
		return room
	}
	room := NewRoom(id, m.svc, m.recorder, m.settings, m.log)
	m.rooms[id] = room
	m.log.Info().Str("room", id).Int("rooms", len(m.rooms)).Msg("room created")
	return room
}

// Get returns the room for id if it exists.
func (m *Manager) Get(id string) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[id]
	return room, ok
}

// Count reports the number of live rooms.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}

func (m *Manager) sweepLoop() {
	ticker := time.NewTicker(m.settings.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case now := <-ticker.C:
			m.sweep(now)
		}
	}
}

func (m *Manager) sweep(now time.Time) {
	m.mu.Lock()
	var expired []*Room
	for id, room := range m.rooms {
		if room.ShouldExpire(now) {
			expired = append(expired, room)
			delete(m.rooms, id)
		}
	}
	remaining := len(m.rooms)
	m.mu.Unlock()

	for _, room := range expired {
		room.Close()
		m.log.Info().Str("room", room.ID).Msg("room expired")
	}
	if len(expired) > 0 {
		m.log.Debug().Int("swept", len(expired)).Int("rooms", remaining).Msg("sweep finished")
	}
}

// Stop halts the sweeper and closes every room.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.done) })

	m.mu.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	m.rooms = make(map[string]*Room)
	m.mu.Unlock()

	for _, room := range rooms {
		room.Close()
	}
}
