package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/gridlockgames/tictactoe-rooms/internal/apperror"
	"github.com/gridlockgames/tictactoe-rooms/internal/entity"
)

type RoomRepository interface {
	Create(ctx context.Context, room *entity.Room) error
	GetByID(ctx context.Context, id string) (*entity.Room, error)
	Update(ctx context.Context, room *entity.Room) error
}

type dbRoom struct {
	client *redis.Client
}

func NewRoomRepository(client *redis.Client) RoomRepository {
	return &dbRoom{
		client: client,
	}
}

func roomKey(id string) string {
	return "room:" + id
}

func (that *dbRoom) Create(ctx context.Context, room *entity.Room) error {
	roomJSON, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("could not marshal room: %w", err)
	}

	ok, err := that.client.SetNX(ctx, roomKey(room.ID), roomJSON, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	if !ok {
		return fmt.Errorf("%w: %s", apperror.ErrRoomAlreadyExists, room.ID)
	}

	return nil
}

func (that *dbRoom) GetByID(ctx context.Context, id string) (*entity.Room, error) {
	response, err := that.client.Get(ctx, roomKey(id)).Result()

	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", apperror.ErrRoomNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get room by id: %w", err)
	}

	var existingRoom entity.Room
	if err = json.Unmarshal([]byte(response), &existingRoom); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}

	return &existingRoom, nil
}

// Update - persists the room only if the stored document still carries the
// version the caller read. The key is watched for the whole read-compare-write,
// so a concurrent writer aborts the transaction and the caller gets
// ErrVersionConflict instead of silently losing its update.
func (that *dbRoom) Update(ctx context.Context, room *entity.Room) error {
	key := roomKey(room.ID)

	err := that.client.Watch(ctx, func(tx *redis.Tx) error {
		response, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %s", apperror.ErrRoomNotFound, room.ID)
		}

		if err != nil {
			return fmt.Errorf("failed to get room by id: %w", err)
		}

		var storedRoom entity.Room
		if err = json.Unmarshal([]byte(response), &storedRoom); err != nil {
			return fmt.Errorf("failed to unmarshal room: %w", err)
		}

		if storedRoom.Version != room.Version {
			return fmt.Errorf("%w: room %s", apperror.ErrVersionConflict, room.ID)
		}

		updatedRoom := *room
		updatedRoom.Version++

		roomJSON, err := json.Marshal(&updatedRoom)
		if err != nil {
			return fmt.Errorf("could not marshal room: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, roomJSON, 0)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to set room: %w", err)
		}

		room.Version = updatedRoom.Version

		return nil
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("%w: room %s", apperror.ErrVersionConflict, room.ID)
	}

	return err
}
