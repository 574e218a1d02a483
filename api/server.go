package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/wricardo/connectn/game/config"
	"github.com/wricardo/connectn/game/service"
	"github.com/wricardo/connectn/game/session"
	"go.uber.org/zap"
)

// maxBodySize bounds request bodies on the control channel.
const maxBodySize = 64 << 10

// SocketHandler upgrades a request to the websocket endpoint of a slot.
type SocketHandler interface {
	ServeWS(w http.ResponseWriter, r *http.Request, slotID string)
}

// Server represents the REST API server
type Server struct {
	service service.LobbyService
	hub     SocketHandler
	router  *mux.Router
	logger  *zap.Logger
}

// NewServer creates a new API server
func NewServer(lobby service.LobbyService, hub SocketHandler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		service: lobby,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  logger,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Rooms
	api.HandleFunc("/rooms", s.handleListRooms).Methods("GET")
	api.HandleFunc("/rooms", s.handleCreateRoom).Methods("POST")
	api.HandleFunc("/rooms/{id}/socket", s.handleRoomSocket).Methods("GET", "POST")
	api.HandleFunc("/rooms/{id}/join", s.handleJoinCheck).Methods("POST")

	// Players
	api.HandleFunc("/player_id", s.handleNewPlayerID).Methods("GET")

	// Presets
	api.HandleFunc("/presets", s.handleListPresets).Methods("GET")
	api.HandleFunc("/presets", s.handleSavePreset).Methods("POST")
	api.HandleFunc("/presets/{name}", s.handleGetPreset).Methods("GET")

	// WebSocket, one endpoint per slot
	s.router.HandleFunc("/ws/{slotID}", s.handleWebSocket)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps lobby errors to HTTP status codes. Unknown rooms answer
// 403 like a full pool does: the caller may not use that room.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrCapacity), errors.Is(err, session.ErrRoomNotFound):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, config.ErrInvalidPreset):
		return http.StatusBadRequest
	case errors.Is(err, config.ErrPresetNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Room Handlers

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.service.ListRooms(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, rooms)
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req service.CreateRoomRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := s.service.CreateRoom(r.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("room creation failed", zap.Error(err))
		}
		respondError(w, status, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleRoomSocket(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]

	socket, err := s.service.RoomSocket(r.Context(), roomID)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, socket)
}

// handleJoinCheck answers whether a player may join. The body is the
// player id, either raw or as {"playerID": "..."}.
func (s *Server) handleJoinCheck(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read request")
		return
	}
	playerID := parsePlayerID(body)

	ok, err := s.service.CanJoin(r.Context(), roomID, playerID)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	if !ok {
		respondError(w, http.StatusForbidden, "room is not open to this player")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"canJoin": true})
}

func parsePlayerID(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}

	switch body[0] {
	case '{':
		var req service.PlayerID
		if err := json.Unmarshal(body, &req); err == nil {
			return req.PlayerID
		}
		return ""
	case '"':
		var id string
		if err := json.Unmarshal(body, &id); err == nil {
			return id
		}
	}
	return strings.TrimSpace(string(body))
}

// Player Handlers

func (s *Server) handleNewPlayerID(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.service.NewPlayerID(r.Context()))
}

// Preset Handlers

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	presets, err := s.service.ListPresets(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, presets)
}

func (s *Server) handleGetPreset(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(mux.Vars(r)["name"], ".yaml")

	preset, err := s.service.GetPreset(r.Context(), name)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, preset)
}

func (s *Server) handleSavePreset(w http.ResponseWriter, r *http.Request) {
	var preset config.Preset
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&preset); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if preset.Name == "" {
		respondError(w, http.StatusBadRequest, "Preset name is required")
		return
	}

	if err := s.service.SavePreset(r.Context(), &preset); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"message": "Preset saved successfully",
		"preset":  preset.Name,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.hub.ServeWS(w, r, mux.Vars(r)["slotID"])
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.service.Health(r.Context()))
}
