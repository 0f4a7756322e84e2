package memory

import (
	"sync"

	"github.com/meetlink/signaling/internal/application/metric"
	"github.com/meetlink/signaling/internal/domain/models"
)

// RoomRegistry owns the roomId -> room mapping. Every mutation goes
// through it; a single lock covers the whole map, which is fine at the
// room cardinality this process serves.
//
// Room ids are opaque keys, no format validation happens here.
type RoomRegistry interface {
	Exists(roomID string) bool
	Remove(roomID string)

	// AddParticipant creates the room on first use, then appends p
	// unless a participant with the same connection id is already
	// present. It returns the participants that were in the room
	// before the call, and whether p was actually added.
	AddParticipant(roomID string, p models.Participant) ([]models.Participant, bool)

	// RemoveParticipant removes the participant bound to connID and
	// returns it. The second result is false when the room or the
	// participant is gone already.
	RemoveParticipant(roomID, connID string) (models.Participant, bool)

	// Participants returns a join-ordered snapshot.
	Participants(roomID string) []models.Participant

	// SetTitle stores the display title. It reports false when the
	// room does not exist; titles never create rooms.
	SetTitle(roomID, title string) bool
	Title(roomID string) string
}

type roomRegistry struct {
	rooms map[string]*models.Room
	mu    sync.RWMutex
}

func NewRoomRegistry() RoomRegistry {
	return &roomRegistry{
		rooms: make(map[string]*models.Room),
	}
}

func (r *roomRegistry) Exists(roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.rooms[roomID]
	return ok
}

func (r *roomRegistry) Remove(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[roomID]; !ok {
		return
	}

	delete(r.rooms, roomID)
	metric.SetActiveRooms(len(r.rooms))
}

func (r *roomRegistry) AddParticipant(roomID string, p models.Participant) ([]models.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		room = &models.Room{}
		r.rooms[roomID] = room
		metric.SetActiveRooms(len(r.rooms))
	}

	for _, existing := range room.Participants {
		if existing.SocketID == p.SocketID {
			return nil, false
		}
	}

	before := make([]models.Participant, len(room.Participants))
	copy(before, room.Participants)

	room.Participants = append(room.Participants, p)

	return before, true
}

func (r *roomRegistry) RemoveParticipant(roomID, connID string) (models.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return models.Participant{}, false
	}

	for i, p := range room.Participants {
		if p.SocketID == connID {
			room.Participants = append(room.Participants[:i], room.Participants[i+1:]...)
			return p, true
		}
	}

	return models.Participant{}, false
}

func (r *roomRegistry) Participants(roomID string) []models.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil
	}

	snapshot := make([]models.Participant, len(room.Participants))
	copy(snapshot, room.Participants)

	return snapshot
}

func (r *roomRegistry) SetTitle(roomID, title string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return false
	}

	room.Title = title
	return true
}

func (r *roomRegistry) Title(roomID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return ""
	}

	return room.Title
}
