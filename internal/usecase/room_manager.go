package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gridlockgames/tictactoe-rooms/internal/apperror"
	"github.com/gridlockgames/tictactoe-rooms/internal/entity"
	"github.com/gridlockgames/tictactoe-rooms/internal/pkg"
)

// maxWriteAttempts bounds the read-merge-write retries after a version conflict.
const maxWriteAttempts = 3

type roomRepo interface {
	Create(ctx context.Context, room *entity.Room) error
	GetByID(ctx context.Context, id string) (*entity.Room, error)
	Update(ctx context.Context, room *entity.Room) error
}

// RoomManager owns the game-state transitions: room creation, seat
// assignment, move application and win/draw detection. It has no I/O beyond
// the room repository.
type RoomManager struct {
	logger *slog.Logger
	rooms  roomRepo
}

func NewRoomManager(logger *slog.Logger, rooms roomRepo) *RoomManager {
	return &RoomManager{
		logger: logger.With("component", "rooms"),
		rooms:  rooms,
	}
}

// CreateRoom - builds an empty room under a fresh identifier and persists it.
func (that *RoomManager) CreateRoom(ctx context.Context) (*entity.Room, error) {
	roomID, err := pkg.GenerateRoomID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate room id: %w", err)
	}

	room := entity.NewRoom(roomID)
	if err = that.rooms.Create(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	that.logger.Info("room created", "roomID", roomID)

	return room, nil
}

func (that *RoomManager) GetRoom(ctx context.Context, id string) (*entity.Room, error) {
	room, err := that.rooms.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	return room, nil
}

// AssignSeat - seats the viewer per the fixed policy: first distinct viewer
// takes primary, a returning viewer keeps its seat without a write, the next
// distinct viewer takes secondary, everyone later is a hermit. Taking the
// secondary seat also moves a waiting room to ongoing, that is the moment
// both players are present.
func (that *RoomManager) AssignSeat(ctx context.Context, room *entity.Room, viewerID string) (string, error) {
	for attempt := 1; ; attempt++ {
		role, changed := room.SeatViewer(viewerID)
		if !changed {
			return role, nil
		}

		if role == entity.RoleSecondary && room.IsWaiting() {
			room.Status = entity.StatusOngoing
		}

		err := that.rooms.Update(ctx, room)
		if err == nil {
			that.logger.Info("seat assigned", "roomID", room.ID, "role", role)
			return role, nil
		}

		if !errors.Is(err, apperror.ErrVersionConflict) || attempt >= maxWriteAttempts {
			return "", fmt.Errorf("failed to update room: %w", err)
		}

		fresh, err := that.rooms.GetByID(ctx, room.ID)
		if err != nil {
			return "", fmt.Errorf("failed to re-read room: %w", err)
		}

		*room = *fresh
	}
}

// ApplyMove - merges the partial update into the room, recomputes the status
// and persists the result. Moves against a finished room are rejected. A
// concurrent writer triggers a fresh read-merge-write, bounded by
// maxWriteAttempts.
func (that *RoomManager) ApplyMove(ctx context.Context, roomID string, update *entity.Update) (*entity.Room, error) {
	for attempt := 1; ; attempt++ {
		room, err := that.rooms.GetByID(ctx, roomID)
		if err != nil {
			return nil, fmt.Errorf("failed to get room: %w", err)
		}

		if room.IsFinished() {
			return room, fmt.Errorf("%w: %s", apperror.ErrRoomFinished, roomID)
		}

		if err = room.ApplyUpdate(update); err != nil {
			return nil, fmt.Errorf("failed to apply update: %w", err)
		}

		room.RecomputeStatus()

		err = that.rooms.Update(ctx, room)
		if err == nil {
			if room.IsFinished() {
				that.logger.Info("room finished", "roomID", roomID, "winner", room.Winner, "draw", room.Draw)
			}

			return room, nil
		}

		if !errors.Is(err, apperror.ErrVersionConflict) || attempt >= maxWriteAttempts {
			return nil, fmt.Errorf("failed to update room: %w", err)
		}
	}
}

// RecomputeStatus - re-runs win/draw detection on the room and persists the
// transition when one fires. Reports whether the room moved to finished.
func (that *RoomManager) RecomputeStatus(ctx context.Context, room *entity.Room) (bool, error) {
	if !room.RecomputeStatus() {
		return false, nil
	}

	if err := that.rooms.Update(ctx, room); err != nil {
		return false, fmt.Errorf("failed to update room: %w", err)
	}

	return true, nil
}

// MarkOf - the mark the viewer plays in this room. Only meaningful for a
// seated viewer.
func (that *RoomManager) MarkOf(room *entity.Room, viewerID string) string {
	return room.MarkOf(viewerID)
}
