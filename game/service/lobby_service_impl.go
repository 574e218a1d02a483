package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wricardo/connectn/game/config"
	"github.com/wricardo/connectn/game/session"
	"go.uber.org/zap"
)

// Clock bounds in request units, checked before converting to durations.
const (
	maxMinutes   = int(session.MaxBaseTime / time.Minute)
	maxIncrement = int(session.MaxIncrement / time.Second)
)

// lobbyServiceImpl implements the LobbyService interface
type lobbyServiceImpl struct {
	rooms   RoomPool
	presets PresetStore
	logger  *zap.Logger
}

// NewLobbyService creates a new lobby service instance
func NewLobbyService(rooms RoomPool, presets PresetStore, logger *zap.Logger) LobbyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &lobbyServiceImpl{
		rooms:   rooms,
		presets: presets,
		logger:  logger,
	}
}

// CreateRoom creates a room from a preset or from explicit parameters
func (s *lobbyServiceImpl) CreateRoom(ctx context.Context, req CreateRoomRequest) (*RoomCreated, error) {
	params, err := s.roomParams(req)
	if err != nil {
		return nil, err
	}

	room, err := s.rooms.CreateRoom(params)
	if err != nil {
		if errors.Is(err, session.ErrInvalidParams) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return nil, err
	}

	s.logger.Debug("room requested",
		zap.String("room", room.ID),
		zap.String("player", req.PlayerID),
		zap.String("preset", req.Preset))
	return &RoomCreated{ID: room.ID, Preset: req.Preset}, nil
}

func (s *lobbyServiceImpl) roomParams(req CreateRoomRequest) (session.RoomParams, error) {
	if req.Preset != "" {
		p, err := s.presets.LoadPreset(req.Preset)
		if err != nil {
			if errors.Is(err, config.ErrPresetNotFound) {
				return session.RoomParams{}, fmt.Errorf("%w: unknown preset %q", ErrInvalidRequest, req.Preset)
			}
			return session.RoomParams{}, err
		}
		return p.Params(), nil
	}

	if req.Minutes < 1 {
		return session.RoomParams{}, fmt.Errorf("%w: minutes must be at least 1", ErrInvalidRequest)
	}
	if req.Minutes > maxMinutes {
		return session.RoomParams{}, fmt.Errorf("%w: minutes must not exceed %d", ErrInvalidRequest, maxMinutes)
	}
	if req.Increment < 0 {
		return session.RoomParams{}, fmt.Errorf("%w: increment must not be negative", ErrInvalidRequest)
	}
	if req.Increment > maxIncrement {
		return session.RoomParams{}, fmt.Errorf("%w: increment must not exceed %d seconds", ErrInvalidRequest, maxIncrement)
	}
	return session.RoomParams{
		Board:     req.Board(),
		BaseTime:  time.Duration(req.Minutes) * time.Minute,
		Increment: time.Duration(req.Increment) * time.Second,
	}, nil
}

// ListRooms returns every live room in creation order
func (s *lobbyServiceImpl) ListRooms(ctx context.Context) (RoomListing, error) {
	listing := s.rooms.Listing()
	if listing == nil {
		listing = []session.RoomInfo{}
	}
	return listing, nil
}

// RoomSocket returns the slot a client should connect to for roomID
func (s *lobbyServiceImpl) RoomSocket(ctx context.Context, roomID string) (*SocketInfo, error) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return nil, session.ErrRoomNotFound
	}
	return &SocketInfo{SocketID: room.SlotID, Path: "/ws/" + room.SlotID}, nil
}

// CanJoin reports whether playerID could take a seat in roomID right now.
// The answer is advisory; the join over the socket decides.
func (s *lobbyServiceImpl) CanJoin(ctx context.Context, roomID, playerID string) (bool, error) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return false, session.ErrRoomNotFound
	}

	room.Slot().Lock()
	defer room.Slot().Unlock()
	return room.CanJoin(playerID), nil
}

// NewPlayerID issues a fresh player id
func (s *lobbyServiceImpl) NewPlayerID(ctx context.Context) PlayerID {
	return PlayerID{PlayerID: session.NewID()}
}

// ListPresets returns the available presets
func (s *lobbyServiceImpl) ListPresets(ctx context.Context) ([]*config.Preset, error) {
	return s.presets.ListPresets()
}

// GetPreset returns one preset by name
func (s *lobbyServiceImpl) GetPreset(ctx context.Context, name string) (*config.Preset, error) {
	return s.presets.LoadPreset(name)
}

// SavePreset stores a preset
func (s *lobbyServiceImpl) SavePreset(ctx context.Context, p *config.Preset) error {
	if err := s.presets.SavePreset(p); err != nil {
		return err
	}
	s.logger.Info("preset saved", zap.String("preset", p.Name))
	return nil
}

// Health reports pool occupancy
func (s *lobbyServiceImpl) Health(ctx context.Context) Health {
	return Health{
		Status:    "ok",
		Rooms:     s.rooms.Count(),
		FreeSlots: s.rooms.FreeSlots(),
	}
}
