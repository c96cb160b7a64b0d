// Package relay is a dumb websocket relay for Balloon Bomb rooms. It stores
// each slot's last blob, fans frames out to the room and archives restart
// logs. It never interprets game documents.
package relay

import (
	"context"
	"errors"
	"net/http"

	scoredb "github.com/bloops-games/balloonbomb/internal/database/scorearchive/database"
	"github.com/bloops-games/balloonbomb/internal/database/scorearchive/model"
	"github.com/bloops-games/balloonbomb/internal/logging"
	"github.com/bloops-games/balloonbomb/internal/server"
	"github.com/go-chi/chi/v5"
)

type Server struct {
	ctx     context.Context
	hub     *Hub
	archive Archive
	config  Config
}

func NewServer(ctx context.Context, hub *Hub, archive Archive, config Config) *Server {
	return &Server{ctx: ctx, hub: hub, archive: archive, config: config.withDefaults()}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Post("/rooms", s.handleCreateRoom)
	r.Get("/rooms/{code}/scores", s.handleScores)
	r.Method(http.MethodGet, "/healthz", server.HandleHealth(s.ctx))
	r.Get("/ws", s.handleWS)
	return r
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	room, err := s.hub.Create(r.Context())
	if err != nil {
		logging.FromContext(s.ctx).Named("relay.handleCreateRoom").Errorf("create room: %v", err)
		http.Error(w, "failed to create room", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, struct {
		Code string `json:"code"`
	}{Code: room.Code()})
}

func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if s.archive == nil {
		http.Error(w, "archive disabled", http.StatusNotFound)
		return
	}

	entries, err := s.archive.FetchByRoom(code)
	if err != nil {
		if errors.Is(err, scoredb.ErrNotFound) {
			writeJSON(w, http.StatusOK, []model.Entry{})
			return
		}
		logging.FromContext(s.ctx).Named("relay.handleScores").Errorf("fetch scores %s: %v", code, err)
		http.Error(w, "failed to fetch scores", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []model.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
