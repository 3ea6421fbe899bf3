package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gridlockgames/tictactoe-rooms/internal/entity"
)

// handleRead - answers this viewer with the full room document.
func (that *Server) handleRead(ctx context.Context, roomID string, viewer *conn) error {
	room, err := that.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return fmt.Errorf("failed to get room: %w", err)
	}

	payload, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to marshal room: %w", err)
	}

	if err = viewer.Send(ctx, payload); err != nil {
		return fmt.Errorf("failed to send room state: %w", err)
	}

	return nil
}

// handleUpdate - applies the partial update and broadcasts the new state to
// every viewer of the room, the sender included.
func (that *Server) handleUpdate(ctx context.Context, roomID string, message *Message) error {
	var update entity.Update
	if err := json.Unmarshal(message.Value, &update); err != nil {
		return fmt.Errorf("failed to unmarshal update: %w", err)
	}

	room, err := that.rooms.ApplyMove(ctx, roomID, &update)
	if err != nil {
		return fmt.Errorf("failed to apply move: %w", err)
	}

	payload, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to marshal room: %w", err)
	}

	that.registry.Broadcast(ctx, roomID, payload)

	return nil
}
