// Package mcp exposes the Connect-N lobby as Model Context Protocol tools.
//
// The Client is a thin proxy: every tool is a call against the REST API,
// so the MCP surface can never see or change more than an HTTP client can.
//
// MCP Tools:
//   - list_rooms: open rooms with board size and seat count
//   - create_room: create a room from parameters or a preset
//   - new_player_id: issue a player id
//   - room_socket: websocket path of a room
//   - check_join: whether a player may join a room
//   - list_presets: named room presets
//   - protocol_guide: the websocket message reference
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer())
//   - HTTP: POST /mcp on the main server, handled with HandleMessage
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := server.ServeStdio(client.GetMCPServer()); err != nil {
//		log.Fatal(err)
//	}
package mcp
