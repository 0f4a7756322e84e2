package memory

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/meetlink/signaling/internal/application/constant"
	"github.com/meetlink/signaling/internal/application/metric"
)

// ConnectionRegistry tracks live websocket connections by connection id.
type ConnectionRegistry interface {
	Add(connID string, conn *websocket.Conn)
	Remove(connID string)

	// Connected reports whether connID has a live connection.
	Connected(connID string) bool

	// Write sends payload as JSON to a single connection. Unknown ids
	// and write failures are logged, not returned: the relay drops
	// rather than errors.
	Write(connID string, payload any)
}

// safeWS serializes writes; gorilla/websocket allows one concurrent
// writer per connection.
type safeWS struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

type connectionRegistry struct {
	conns map[string]*safeWS
	mu    sync.RWMutex
}

func NewConnectionRegistry() ConnectionRegistry {
	return &connectionRegistry{
		conns: make(map[string]*safeWS, 10),
	}
}

func (r *connectionRegistry) Add(connID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[connID] = &safeWS{conn: conn}

	metric.IncrementWSActiveConnections()
}

func (r *connectionRegistry) Remove(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[connID]; ok {
		delete(r.conns, connID)

		metric.DecrementWSActiveConnections()
	}
}

func (r *connectionRegistry) Connected(connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.conns[connID]
	return ok
}

func (r *connectionRegistry) Write(connID string, payload any) {
	ws, ok := r.getSafeWS(connID)
	if !ok {
		slog.Debug("write to unknown connection", slog.String(constant.ConnID, connID))
		return
	}

	ws.mu.Lock()
	defer ws.mu.Unlock()

	if err := ws.conn.WriteJSON(payload); err != nil {
		slog.Error(
			"write to websocket",
			slog.Any(constant.Error, err),
			slog.String(constant.ConnID, connID),
		)
		return
	}
}

func (r *connectionRegistry) getSafeWS(connID string) (*safeWS, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[connID]
	return conn, ok
}
