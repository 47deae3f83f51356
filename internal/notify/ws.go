// Package notify pushes newly posted listings to connected passenger
// sessions over websockets, standing in for the hosted realtime channel
// the web client normally subscribes to.
package notify

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/example/ongopool/internal/models"
)

// WSSession is one connected subscriber.
type WSSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *WSSession) send(l models.RideListing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(l)
}

// WSRegistry tracks subscriber sessions keyed by user id.
type WSRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*WSSession
	logger   *slog.Logger
}

func NewWSRegistry(logger *slog.Logger) *WSRegistry {
	return &WSRegistry{sessions: make(map[string]*WSSession), logger: logger}
}

func (r *WSRegistry) Add(userID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.sessions[userID]; ok {
		_ = old.conn.Close()
	}
	r.sessions[userID] = &WSSession{conn: conn}
}

func (r *WSRegistry) Remove(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[userID]; ok {
		_ = s.conn.Close()
		delete(r.sessions, userID)
	}
}

// BroadcastListing sends a listing to every connected session,
// best-effort. Dead sessions are dropped on write failure.
func (r *WSRegistry) BroadcastListing(l models.RideListing) {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	for _, id := range ids {
		r.mu.RLock()
		s, ok := r.sessions[id]
		r.mu.RUnlock()
		if !ok {
			continue
		}
		if err := s.send(l); err != nil {
			if r.logger != nil {
				r.logger.Warn("dropping dead ws session", "user_id", id, "error", err)
			}
			r.Remove(id)
		}
	}
}
