package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/connectn/game/config"
	"github.com/wricardo/connectn/game/service"
	"github.com/wricardo/connectn/game/session"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Connect-N Room Server",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Connect-N Room Server - MCP Interface

This is a thin client that proxies lobby requests to the REST API server.

Two players take turns dropping (or placing) pieces on a grid. The first to
line up "connect" pieces in a row, column or diagonal wins. Each player has a
chess clock with a per-move increment; running out of time loses.

AVAILABLE TOOLS:
- list_rooms: List open rooms and how many seats are taken
- create_room: Create a room from board and clock parameters, or a preset
- new_player_id: Get a fresh player id
- room_socket: Get the websocket path of a room
- check_join: Ask whether a player may join a room
- list_presets: List named room presets
- protocol_guide: How to play over the websocket once you have a socket path

Gameplay itself happens over the websocket, not through these tools.`),
	)

	// Register all tools
	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_rooms",
		Description: "List open rooms with board size, connect length, gravity and seat count",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListRooms)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_room",
		Description: "Create a room. Give either a preset name or w, h, connect and minutes.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"player_id": map[string]interface{}{
					"type":        "string",
					"description": "Id of the creating player (optional)",
				},
				"preset": map[string]interface{}{
					"type":        "string",
					"description": "Name of a preset; board and clock arguments are ignored when set",
				},
				"w": map[string]interface{}{
					"type":        "integer",
					"description": "Board width in columns",
				},
				"h": map[string]interface{}{
					"type":        "integer",
					"description": "Board height in rows",
				},
				"connect": map[string]interface{}{
					"type":        "integer",
					"description": "Pieces in a row needed to win",
				},
				"gravity": map[string]interface{}{
					"type":        "boolean",
					"description": "Pieces fall to the lowest empty cell of a column",
				},
				"minutes": map[string]interface{}{
					"type":        "integer",
					"description": "Base time per player in minutes",
				},
				"increment": map[string]interface{}{
					"type":        "integer",
					"description": "Seconds credited back after each move",
				},
			},
		},
	}, c.handleCreateRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "new_player_id",
		Description: "Issue a fresh player id",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleNewPlayerID)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "room_socket",
		Description: "Get the socket id and websocket path of a room",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": map[string]interface{}{
					"type":        "string",
					"description": "Room ID",
				},
			},
			Required: []string{"room_id"},
		},
	}, c.handleRoomSocket)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "check_join",
		Description: "Check whether a player may take a seat in a room",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": map[string]interface{}{
					"type":        "string",
					"description": "Room ID",
				},
				"player_id": map[string]interface{}{
					"type":        "string",
					"description": "Player ID",
				},
			},
			Required: []string{"room_id", "player_id"},
		},
	}, c.handleCheckJoin)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_presets",
		Description: "List named room presets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListPresets)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "protocol_guide",
		Description: "Explain the websocket messages used to play a match",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleProtocolGuide)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// apiCall makes an HTTP request to the REST API
func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	endpoint := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, endpoint, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// intArg reads a JSON number argument.
func intArg(args map[string]interface{}, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	default:
		return 0
	}
}

// Tool handlers

func (c *Client) handleListRooms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var rooms []session.RoomInfo
	if err := c.apiCall("GET", "/api/rooms", nil, &rooms); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRooms(rooms)), nil
}

func (c *Client) handleCreateRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	req := service.CreateRoomRequest{
		Width:     intArg(args, "w"),
		Height:    intArg(args, "h"),
		Connect:   intArg(args, "connect"),
		Minutes:   intArg(args, "minutes"),
		Increment: intArg(args, "increment"),
	}
	req.PlayerID, _ = args["player_id"].(string)
	req.Preset, _ = args["preset"].(string)
	req.Gravity, _ = args["gravity"].(bool)

	var created service.RoomCreated
	if err := c.apiCall("POST", "/api/rooms", req, &created); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created room: %s\n", created.ID)
	if created.Preset != "" {
		result += fmt.Sprintf("Preset: %s\n", created.Preset)
	}
	result += "Use room_socket to get its websocket path."
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleNewPlayerID(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var id service.PlayerID
	if err := c.apiCall("GET", "/api/player_id", nil, &id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Player ID: %s", id.PlayerID)), nil
}

func (c *Client) handleRoomSocket(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	roomID, _ := arguments(request)["room_id"].(string)
	if roomID == "" {
		return mcp.NewToolResultError("room_id is required"), nil
	}

	var socket service.SocketInfo
	if err := c.apiCall("POST", "/api/rooms/"+url.PathEscape(roomID)+"/socket", nil, &socket); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Socket ID: %s\nWebSocket path: %s", socket.SocketID, socket.Path)), nil
}

func (c *Client) handleCheckJoin(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	roomID, _ := args["room_id"].(string)
	playerID, _ := args["player_id"].(string)
	if roomID == "" || playerID == "" {
		return mcp.NewToolResultError("room_id and player_id are required"), nil
	}

	err := c.apiCall("POST", "/api/rooms/"+url.PathEscape(roomID)+"/join", service.PlayerID{PlayerID: playerID}, nil)
	if err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("Player %s cannot join room %s: %v", playerID, roomID, err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Player %s can join room %s", playerID, roomID)), nil
}

func (c *Client) handleListPresets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var presets []*config.Preset
	if err := c.apiCall("GET", "/api/presets", nil, &presets); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatPresets(presets)), nil
}

func (c *Client) handleProtocolGuide(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(protocolGuide), nil
}

const protocolGuide = `# Playing over the websocket

Connect to ws://<host><path>, where path comes from room_socket.
Every message is a JSON object carrying your playerID plus at most one action:

  {"playerID": "<id>", "joining": true}         take a seat
  {"playerID": "<id>", "move": 4}               drop into column 4 (1-based)
  {"playerID": "<id>", "move": 4, "moveRow": 2} place at column 4, row 2 (no gravity)
  {"playerID": "<id>", "message": "hi"}         chat with the opponent
  {"playerID": "<id>", "resigns": true}         resign
  {"playerID": "<id>"}                          ask for the board

Replies carry a "header":
  JOINED / REJECTED                    your join
  OPPONENT_JOINED                      someone else joined
  GAME_STARTED                         both seats taken, player ONE moves first
  MOVE_RESULT                          your move: result Valid|Invalid|Win|Draw|Malformed
  OPPONENT_MOVE                        the opponent's move
  MESSAGE / OPPONENT_RESIGN            chat and resignation
  INFORMATION                          your role (ONE|TWO) and the board
  P1_TIME_OUT / P2_TIME_OUT            a clock ran out
  OPPONENT_DISCONNECT                  the opponent closed the connection
  MALFORMED                            the message could not be read

Board data lists columns left to right; each column lists cells bottom to top
(" ", "R" for player ONE, "Y" for player TWO).`

// Formatting helpers

func formatRooms(rooms []session.RoomInfo) string {
	if len(rooms) == 0 {
		return "No open rooms."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d room(s):\n", len(rooms)))
	for _, r := range rooms {
		mode := "free placement"
		if r.Gravity {
			mode = "gravity"
		}
		sb.WriteString(fmt.Sprintf("- %s: %dx%d connect %d, %s, %d/2 seated\n",
			r.ID, r.Width, r.Height, r.Connect, mode, r.Seats))
	}
	return sb.String()
}

func formatPresets(presets []*config.Preset) string {
	if len(presets) == 0 {
		return "No presets available."
	}

	var sb strings.Builder
	sb.WriteString("Available presets:\n")
	for _, p := range presets {
		sb.WriteString(fmt.Sprintf("- %s: %dx%d connect %d, %d+%d", p.Name, p.Width, p.Height, p.Connect, p.Minutes, p.Increment))
		if p.Description != "" {
			sb.WriteString(" - " + p.Description)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
