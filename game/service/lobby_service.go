package service

import (
	"context"
	"errors"

	"github.com/wricardo/connectn/game/config"
	"github.com/wricardo/connectn/game/session"
)

// ErrInvalidRequest reports a lobby request that cannot describe a room.
var ErrInvalidRequest = errors.New("invalid request")

// LobbyService is the main service interface for everything that happens
// before a player opens a socket.
type LobbyService interface {
	// Rooms
	CreateRoom(ctx context.Context, req CreateRoomRequest) (*RoomCreated, error)
	ListRooms(ctx context.Context) (RoomListing, error)
	RoomSocket(ctx context.Context, roomID string) (*SocketInfo, error)
	CanJoin(ctx context.Context, roomID, playerID string) (bool, error)

	// Players
	NewPlayerID(ctx context.Context) PlayerID

	// Presets
	ListPresets(ctx context.Context) ([]*config.Preset, error)
	GetPreset(ctx context.Context, name string) (*config.Preset, error)
	SavePreset(ctx context.Context, p *config.Preset) error

	Health(ctx context.Context) Health
}

// RoomPool is the part of the session pool the lobby depends on.
type RoomPool interface {
	CreateRoom(params session.RoomParams) (*session.Session, error)
	Get(id string) (*session.Session, bool)
	Listing() []session.RoomInfo
	Count() int
	FreeSlots() int
}

// PresetStore loads and stores named room presets.
type PresetStore interface {
	LoadPreset(name string) (*config.Preset, error)
	ListPresets() ([]*config.Preset, error)
	SavePreset(p *config.Preset) error
}
