package service

import (
	"github.com/wricardo/connectn/game/engine"
	"github.com/wricardo/connectn/game/session"
)

// CreateRoomRequest describes a new room. When Preset is set the board and
// clock fields are ignored.
type CreateRoomRequest struct {
	PlayerID  string `json:"playerID,omitempty"`
	Preset    string `json:"preset,omitempty"`
	Width     int    `json:"w"`
	Height    int    `json:"h"`
	Connect   int    `json:"connect"`
	Gravity   bool   `json:"gravity"`
	Minutes   int    `json:"minutes"`
	Increment int    `json:"increment"` // seconds
}

// Board returns the board part of the request.
func (r CreateRoomRequest) Board() engine.BoardConfig {
	return engine.BoardConfig{
		Width:   r.Width,
		Height:  r.Height,
		Connect: r.Connect,
		Gravity: r.Gravity,
	}
}

// RoomCreated is returned after a successful room creation.
type RoomCreated struct {
	ID     string `json:"id"`
	Preset string `json:"preset,omitempty"`
}

// SocketInfo tells a client where to connect for a room.
type SocketInfo struct {
	SocketID string `json:"socketID"`
	Path     string `json:"path"`
}

// PlayerID wraps a freshly issued player id.
type PlayerID struct {
	PlayerID string `json:"playerID"`
}

// Health summarizes pool occupancy.
type Health struct {
	Status    string `json:"status"`
	Rooms     int    `json:"rooms"`
	FreeSlots int    `json:"free_slots"`
}

// RoomListing is the lobby view of the open rooms.
type RoomListing []session.RoomInfo
