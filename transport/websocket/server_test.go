package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridlockgames/tictactoe-rooms/internal/apperror"
	"github.com/gridlockgames/tictactoe-rooms/internal/entity"
	"github.com/gridlockgames/tictactoe-rooms/internal/registry"
	"github.com/gridlockgames/tictactoe-rooms/internal/usecase"
)

type memoryRoomRepo struct {
	rooms map[string]*entity.Room
}

func newMemoryRoomRepo() *memoryRoomRepo {
	return &memoryRoomRepo{rooms: make(map[string]*entity.Room)}
}

func (that *memoryRoomRepo) Create(_ context.Context, room *entity.Room) error {
	if _, ok := that.rooms[room.ID]; ok {
		return fmt.Errorf("%w: %s", apperror.ErrRoomAlreadyExists, room.ID)
	}

	that.rooms[room.ID] = cloneRoom(room)

	return nil
}

func (that *memoryRoomRepo) GetByID(_ context.Context, id string) (*entity.Room, error) {
	room, ok := that.rooms[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperror.ErrRoomNotFound, id)
	}

	return cloneRoom(room), nil
}

func (that *memoryRoomRepo) Update(_ context.Context, room *entity.Room) error {
	stored, ok := that.rooms[room.ID]
	if !ok {
		return fmt.Errorf("%w: %s", apperror.ErrRoomNotFound, room.ID)
	}

	if stored.Version != room.Version {
		return fmt.Errorf("%w: room %s", apperror.ErrVersionConflict, room.ID)
	}

	room.Version++
	that.rooms[room.ID] = cloneRoom(room)

	return nil
}

func cloneRoom(room *entity.Room) *entity.Room {
	clone := *room
	clone.Coordinates = make(map[string]string, len(room.Coordinates))
	for coordinate, mark := range room.Coordinates {
		clone.Coordinates[coordinate] = mark
	}

	return &clone
}

type socketSuite struct {
	server  *httptest.Server
	manager *usecase.RoomManager
}

func newSocketSuite(t *testing.T) *socketSuite {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	manager := usecase.NewRoomManager(logger, newMemoryRoomRepo())

	router := chi.NewRouter()
	New(logger, manager, registry.New(logger)).Routes(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &socketSuite{server: server, manager: manager}
}

// dial opens a socket to the room as the given viewer.
func (that *socketSuite) dial(ctx context.Context, t *testing.T, roomID, viewerID string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(that.server.URL, "http") + "/game/" + roomID + "/socket"

	header := http.Header{}
	header.Set("Cookie", "viewer_token="+viewerID)

	ws, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: header})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close(websocket.StatusNormalClosure, "") })

	return ws
}

func send(ctx context.Context, t *testing.T, ws *websocket.Conn, message Message) {
	t.Helper()

	data, err := json.Marshal(message)
	require.NoError(t, err)
	require.NoError(t, ws.Write(ctx, websocket.MessageText, data))
}

func receive(ctx context.Context, t *testing.T, ws *websocket.Conn) map[string]json.RawMessage {
	t.Helper()

	_, data, err := ws.Read(ctx)
	require.NoError(t, err)

	var payload map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &payload))

	return payload
}

func TestServer_ReadEvent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Given: a room and a connected viewer
	st := newSocketSuite(t)
	room, err := st.manager.CreateRoom(ctx)
	require.NoError(t, err)

	ws := st.dial(ctx, t, room.ID, "viewer-1")

	// When: the viewer asks for the current state
	send(ctx, t, ws, Message{Event: EventRead})

	// Then: it receives the full room document
	payload := receive(ctx, t, ws)
	assert.JSONEq(t, fmt.Sprintf("%q", room.ID), string(payload["id"]))
	assert.Contains(t, payload, "coordinates")
	assert.Contains(t, payload, "seats")
}

func TestServer_UpdateEvent_BroadcastsToRoom(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Given: a room watched by two viewers
	st := newSocketSuite(t)
	room, err := st.manager.CreateRoom(ctx)
	require.NoError(t, err)

	first := st.dial(ctx, t, room.ID, "viewer-1")
	second := st.dial(ctx, t, room.ID, "viewer-2")

	update, err := json.Marshal(entity.Update{
		Coordinates: map[string]string{"b1": entity.MarkCross},
		LastMark:    entity.MarkCross,
	})
	require.NoError(t, err)

	// When: the first viewer places a mark
	send(ctx, t, first, Message{Event: EventUpdate, Value: update})

	// Then: both viewers receive the updated room state
	for _, ws := range []*websocket.Conn{first, second} {
		payload := receive(ctx, t, ws)

		var coordinates map[string]string
		require.NoError(t, json.Unmarshal(payload["coordinates"], &coordinates))
		assert.Equal(t, entity.MarkCross, coordinates["b1"])
		assert.Len(t, coordinates, 9)
	}
}

func TestServer_UnknownEventIsRejected(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Given: a connected viewer
	st := newSocketSuite(t)
	room, err := st.manager.CreateRoom(ctx)
	require.NoError(t, err)

	ws := st.dial(ctx, t, room.ID, "viewer-1")

	// When: the viewer sends an event outside the protocol
	send(ctx, t, ws, Message{Event: "dance"})

	// Then: only this connection gets an error payload and stays usable
	payload := receive(ctx, t, ws)
	require.Contains(t, payload, "error")
	assert.Contains(t, string(payload["error"]), "unknown event")

	send(ctx, t, ws, Message{Event: EventRead})
	assert.Contains(t, receive(ctx, t, ws), "coordinates")
}

func TestServer_UnknownRoomIs404(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st := newSocketSuite(t)

	wsURL := "ws" + strings.TrimPrefix(st.server.URL, "http") + "/game/missing/socket"

	// When: dialing a socket for a room that does not exist
	ws, resp, err := websocket.Dial(ctx, wsURL, nil)

	// Then: the handshake is refused with a 404
	require.Error(t, err)
	if ws != nil {
		_ = ws.Close(websocket.StatusNormalClosure, "")
	}
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
