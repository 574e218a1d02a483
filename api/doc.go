// Package api provides the HTTP control channel of the Connect-N room
// server.
//
// The control channel is everything a client does before it plays: list
// rooms, create one, get a player id, find the socket of a room and ask
// whether it may join. Gameplay runs over the per-slot websocket routed
// from here.
//
// Endpoints:
//
// Rooms:
//   - GET /api/rooms - List open rooms {id, w, h, connect, numPlayers, gravity}
//   - POST /api/rooms - Create a room from parameters or a preset
//   - GET|POST /api/rooms/{id}/socket - Socket id and path of a room
//   - POST /api/rooms/{id}/join - 200 if the player in the body may join, else 403
//
// Players:
//   - GET /api/player_id - Issue a fresh player id
//
// Presets:
//   - GET /api/presets - List room presets
//   - POST /api/presets - Save a preset
//   - GET /api/presets/{name} - Get one preset
//
// Other:
//   - GET /ws/{slotID} - WebSocket endpoint of a slot
//   - GET /health - Pool occupancy
//
// Creating a room:
//
//	POST /api/rooms
//	{"playerID": "...", "w": 7, "h": 6, "connect": 4, "gravity": true, "minutes": 5, "increment": 3}
//
//	POST /api/rooms
//	{"playerID": "...", "preset": "blitz"}
//
// A full pool answers 403, invalid parameters 400.
//
// Error Handling:
//
// Errors are returned as JSON with the matching status code:
//
//	{"error": "error message"}
package api
