package rest

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/gridlockgames/tictactoe-rooms/internal/entity"
)

//go:embed templates/*.html
var templateFS embed.FS

type roomManager interface {
	CreateRoom(ctx context.Context) (*entity.Room, error)
	GetRoom(ctx context.Context, id string) (*entity.Room, error)
	AssignSeat(ctx context.Context, room *entity.Room, viewerID string) (string, error)
	MarkOf(room *entity.Room, viewerID string) string
}

// Server renders the room pages: the index, the create-and-redirect flow and
// the per-room game page that seats the viewer.
type Server struct {
	logger *slog.Logger
	rooms  roomManager
	pages  *template.Template
}

func New(logger *slog.Logger, rooms roomManager) (*Server, error) {
	pages, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &Server{
		logger: logger.With("component", "rest"),
		rooms:  rooms,
		pages:  pages,
	}, nil
}

// Routes - registers the page handlers on the given router.
func (that *Server) Routes(router chi.Router) {
	router.Get("/", that.handleIndex)
	router.Get("/play", that.handlePlay)
	router.Get("/game/{roomID}", that.handleRoomPage)
	router.Get("/ping", that.handlePing)
}
