package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gridlockgames/tictactoe-rooms/internal/apperror"
	"github.com/gridlockgames/tictactoe-rooms/internal/entity"
)

const viewerCookieName = "viewer_token"

func (that *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	if err := that.pages.ExecuteTemplate(w, "base.html", nil); err != nil {
		that.logger.Error("failed to render index", "error", err)
	}
}

// handlePlay - creates a new room and redirects the viewer to its page.
func (that *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "handlePlay")

	room, err := that.rooms.CreateRoom(r.Context())
	if err != nil {
		log.Error("failed to create room", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/game/"+room.ID, http.StatusFound)
}

// handleRoomPage - loads the room, makes sure the viewer carries an identity
// cookie, seats the viewer and renders the game page.
func (that *Server) handleRoomPage(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "handleRoomPage")

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

	viewerID := ViewerToken(w, r)

	role, err := that.rooms.AssignSeat(r.Context(), room, viewerID)
	if err != nil {
		log.Error("failed to assign seat", "roomID", roomID, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	payload := struct {
		Room *entity.Room
		Role string
		Mark string
	}{
		Room: room,
		Role: role,
		Mark: that.rooms.MarkOf(room, viewerID),
	}

	if err = that.pages.ExecuteTemplate(w, "game.html", payload); err != nil {
		log.Error("failed to render game page", "roomID", roomID, "error", err)
	}
}

func (that *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

// ViewerToken - returns the opaque viewer identity from the cookie, issuing
// a fresh one when the browser has none yet.
func ViewerToken(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(viewerCookieName)
	if err == nil && cookie.Value != "" {
		return cookie.Value
	}

	token := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     viewerCookieName,
		Value:    token,
		Expires:  time.Now().Add(24 * time.Hour),
		Path:     "/",
		HttpOnly: true,
	})

	return token
}
