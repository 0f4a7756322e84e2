package usecase

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/meetlink/signaling/internal/domain/events"
	"github.com/meetlink/signaling/internal/domain/models"
)

// connSink implements memory.ConnectionRegistry and records every write
// instead of touching a real websocket.
type connSink struct {
	mu        sync.Mutex
	connected map[string]bool
	writes    map[string][]events.Message
}

func newConnSink(connIDs ...string) *connSink {
	s := &connSink{
		connected: make(map[string]bool),
		writes:    make(map[string][]events.Message),
	}
	for _, id := range connIDs {
		s.connected[id] = true
	}
	return s
}

func (s *connSink) Add(connID string, _ *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected[connID] = true
}

func (s *connSink) Remove(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.connected, connID)
}

func (s *connSink) Connected(connID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected[connID]
}

func (s *connSink) Write(connID string, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := payload.(events.Message)
	if !ok {
		panic("connSink: payload is not an events.Message")
	}

	s.writes[connID] = append(s.writes[connID], msg)
}

// messages returns everything written to connID with the given event
// type, in order.
func (s *connSink) messages(connID, eventType string) []events.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []events.Message
	for _, msg := range s.writes[connID] {
		if msg.Type == eventType {
			out = append(out, msg)
		}
	}
	return out
}

func (s *connSink) writeCount(connID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.writes[connID])
}

func decodePayload(t *testing.T, msg events.Message, target any) {
	t.Helper()

	if err := json.Unmarshal(msg.Data, target); err != nil {
		t.Fatalf("decode %s payload: %v", msg.Type, err)
	}
}

func meeting(connID, memID, name string) models.Participant {
	return models.Participant{
		SocketID: connID,
		MemID:    memID,
		Name:     name,
		UserType: models.UserTypeMeeting,
	}
}

func observer(connID, memID, name string) models.Participant {
	return models.Participant{
		SocketID: connID,
		MemID:    memID,
		Name:     name,
		UserType: models.UserTypeObserver,
	}
}

func sessionFor(p models.Participant, roomID string) *models.Session {
	return &models.Session{
		ConnID:   p.SocketID,
		Identity: models.Identity{ID: p.MemID, Name: p.Name},
		RoomID:   roomID,
		UserType: p.UserType,
	}
}
