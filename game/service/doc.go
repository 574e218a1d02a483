// Package service provides the lobby layer of the Connect-N room server.
//
// The service sits between the transports (HTTP, MCP) and the session pool.
// It turns lobby requests into pool operations:
//   - Room creation from explicit parameters or a named preset
//   - Room listing and capacity reporting
//   - Player id issuance
//   - Socket lookup and join pre-checks
//
// Gameplay itself never passes through the lobby. Once a player has a
// socket id, all moves travel over the websocket endpoint for that slot.
//
// Usage:
//
//	pool := session.NewPool(session.PoolConfig{}, logger)
//	presets, _ := config.NewManager("presets", engine.DefaultMaxLength)
//	lobby := service.NewLobbyService(pool, presets, logger)
//
//	created, err := lobby.CreateRoom(ctx, service.CreateRoomRequest{Preset: "classic"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	socket, _ := lobby.RoomSocket(ctx, created.ID)
package service
