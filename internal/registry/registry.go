package registry

import (
	"context"
	"log/slog"
	"sync"
)

// Conn is a live viewer connection able to receive a payload. The socket
// transport and tests bring their own implementations.
type Conn interface {
	Send(ctx context.Context, payload []byte) error
}

// Registry tracks the live connections watching each room and broadcasts
// room state to all of them. It is purely in-memory and process-local.
type Registry struct {
	logger *slog.Logger

	mu    sync.RWMutex
	rooms map[string]map[Conn]struct{}
}

func New(logger *slog.Logger) *Registry {
	return &Registry{
		logger: logger.With("component", "registry"),
		rooms:  make(map[string]map[Conn]struct{}),
	}
}

func (that *Registry) Register(roomID string, conn Conn) {
	that.mu.Lock()
	defer that.mu.Unlock()

	viewers, ok := that.rooms[roomID]
	if !ok {
		viewers = make(map[Conn]struct{})
		that.rooms[roomID] = viewers
	}

	viewers[conn] = struct{}{}
}

// Unregister removes the connection from the room's set. Removing an absent
// connection is a no-op, disconnects can race with other cleanup.
func (that *Registry) Unregister(roomID string, conn Conn) {
	that.mu.Lock()
	defer that.mu.Unlock()

	viewers, ok := that.rooms[roomID]
	if !ok {
		return
	}

	delete(viewers, conn)

	if len(viewers) == 0 {
		delete(that.rooms, roomID)
	}
}

// Broadcast sends the payload to every connection currently registered for
// the room. A failing connection is logged and skipped so the rest of the
// room still receives the payload.
func (that *Registry) Broadcast(ctx context.Context, roomID string, payload []byte) {
	log := that.logger.With("method", "Broadcast", "roomID", roomID)

	that.mu.RLock()
	viewers := make([]Conn, 0, len(that.rooms[roomID]))
	for conn := range that.rooms[roomID] {
		viewers = append(viewers, conn)
	}
	that.mu.RUnlock()

	for _, conn := range viewers {
		if err := conn.Send(ctx, payload); err != nil {
			log.Error("failed to send payload to viewer", "error", err)
		}
	}
}

// Viewers reports how many connections are watching the room.
func (that *Registry) Viewers(roomID string) int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.rooms[roomID])
}
