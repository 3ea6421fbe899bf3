package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/gridlockgames/tictactoe-rooms/internal/apperror"
	"github.com/gridlockgames/tictactoe-rooms/internal/entity"
	"github.com/gridlockgames/tictactoe-rooms/internal/registry"
	"github.com/gridlockgames/tictactoe-rooms/transport/rest"
)

type roomManager interface {
	GetRoom(ctx context.Context, id string) (*entity.Room, error)
	AssignSeat(ctx context.Context, room *entity.Room, viewerID string) (string, error)
	ApplyMove(ctx context.Context, roomID string, update *entity.Update) (*entity.Room, error)
}

// Server accepts one socket per viewer per room, relays board updates into
// the room manager and fans the resulting state out to everyone watching.
type Server struct {
	logger   *slog.Logger
	rooms    roomManager
	registry *registry.Registry
}

func New(logger *slog.Logger, rooms roomManager, reg *registry.Registry) *Server {
	return &Server{
		logger:   logger.With("component", "websocket"),
		rooms:    rooms,
		registry: reg,
	}
}

// Routes - registers the per-room socket endpoint on the given router.
func (that *Server) Routes(router chi.Router) {
	router.Get("/game/{roomID}/socket", that.handleSocket)
}

// conn adapts a websocket connection to the registry's Conn interface.
type conn struct {
	ws *websocket.Conn
}

func (that *conn) Send(ctx context.Context, payload []byte) error {
	if err := that.ws.Write(ctx, websocket.MessageText, payload); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

func (that *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "handleSocket")

	roomID := chi.URLParam(r, "roomID")

	room, err := that.rooms.GetRoom(r.Context(), roomID)
	if errors.Is(err, apperror.ErrRoomNotFound) {
		http.NotFound(w, r)
		return
	}

	if err != nil {
		log.Error("failed to get room", "roomID", roomID, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	viewerID := rest.ViewerToken(w, r)

	if _, err = that.rooms.AssignSeat(r.Context(), room, viewerID); err != nil {
		log.Error("failed to assign seat", "roomID", roomID, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ws, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error("failed to accept websocket connection", "error", err)
		return
	}

	viewer := &conn{ws: ws}

	that.registry.Register(roomID, viewer)
	log.Info("viewer connected", "roomID", roomID)

	defer func() {
		that.registry.Unregister(roomID, viewer)
		_ = ws.Close(websocket.StatusNormalClosure, "")
		log.Info("viewer disconnected", "roomID", roomID)
	}()

	that.readLoop(r.Context(), roomID, viewer)
}

// readLoop - decodes inbound messages and dispatches them over the two known
// event kinds. A rejected message answers this connection only; the loop
// survives it.
func (that *Server) readLoop(ctx context.Context, roomID string, viewer *conn) {
	log := that.logger.With("method", "readLoop", "roomID", roomID)

	for {
		_, data, err := viewer.ws.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				log.Error("failed to read message", "error", err)
			}
			return
		}

		var message Message
		if err = json.Unmarshal(data, &message); err != nil {
			that.sendError(ctx, viewer, fmt.Errorf("failed to unmarshal message: %w", err))
			continue
		}

		switch message.Event {
		case EventRead:
			err = that.handleRead(ctx, roomID, viewer)
		case EventUpdate:
			err = that.handleUpdate(ctx, roomID, &message)
		default:
			err = fmt.Errorf("%w: %q", apperror.ErrUnknownEvent, message.Event)
		}

		if err != nil {
			log.Error("failed to process message", "event", message.Event, "error", err)
			that.sendError(ctx, viewer, err)
		}
	}
}

func (that *Server) sendError(ctx context.Context, viewer *conn, cause error) {
	payload, err := json.Marshal(ErrorPayload{Error: cause.Error()})
	if err != nil {
		return
	}

	if err = viewer.Send(ctx, payload); err != nil {
		that.logger.Error("failed to send error payload", "error", err)
	}
}
