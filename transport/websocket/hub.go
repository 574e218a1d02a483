package websocket

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wricardo/connectn/game/protocol"
	"github.com/wricardo/connectn/game/session"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Outbound messages buffered per client before it is dropped.
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// MatchObserver is told when a match in any room reaches its end.
type MatchObserver interface {
	MatchFinished(roomID string, outcome session.Outcome, moves int)
}

// Client represents a WebSocket client connected to one slot.
type Client struct {
	endpoint *endpoint
	conn     *websocket.Conn
	send     chan []byte

	// guarded by the slot lock
	playerID string
	closed   bool
}

// queue hands data to the write pump. A client that cannot keep up is
// dropped. Caller holds the slot lock.
func (c *Client) queue(data []byte) {
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		c.endpoint.hub.logger.Warn("dropping slow client", zap.String("slot", c.endpoint.slot.ID))
		c.shut()
	}
}

// shut closes the send channel once. Caller holds the slot lock.
func (c *Client) shut() {
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// endpoint is the connection set of one slot and the interpreter for the
// room currently occupying it. All fields are guarded by the slot lock.
type endpoint struct {
	hub     *Hub
	slot    *session.Slot
	clients map[*Client]struct{}
	room    *session.Session
	interp  *protocol.Interpreter

	// events raised while a message is handled wait for its reply
	handling bool
	held     []session.Event
}

// Hub owns one endpoint per pool slot.
type Hub struct {
	pool      *session.Pool
	matches   MatchObserver
	logger    *zap.Logger
	endpoints map[string]*endpoint
}

// NewHub creates a hub serving every slot of pool. matches may be nil.
func NewHub(pool *session.Pool, matches MatchObserver, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		pool:      pool,
		matches:   matches,
		logger:    logger,
		endpoints: make(map[string]*endpoint),
	}
	for _, slot := range pool.Slots() {
		h.endpoints[slot.ID] = &endpoint{
			hub:     h,
			slot:    slot,
			clients: make(map[*Client]struct{}),
		}
	}
	return h
}

// ServeWS handles WebSocket requests for slotID. A connection to a slot
// without a room is closed right after the upgrade.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, slotID string) {
	ep, ok := h.endpoints[slotID]
	if !ok {
		http.Error(w, "unknown socket", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		endpoint: ep,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
	}
	if !ep.connect(client) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "no room"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

// Connections returns the number of open connections on slotID.
func (h *Hub) Connections(slotID string) int {
	ep, ok := h.endpoints[slotID]
	if !ok {
		return 0
	}
	ep.slot.Lock()
	defer ep.slot.Unlock()
	return len(ep.clients)
}

// Shutdown closes every client connection.
func (h *Hub) Shutdown() {
	for _, ep := range h.endpoints {
		ep.slot.Lock()
		for c := range ep.clients {
			c.shut()
		}
		ep.slot.Unlock()
	}
}

// bind points the endpoint at the slot's current occupant, rebuilding the
// interpreter when the occupant changed. Caller holds the slot lock.
func (ep *endpoint) bind() bool {
	room, ok := ep.hub.pool.Occupant(ep.slot.ID)
	if !ok {
		return false
	}
	if room != ep.room {
		ep.room = room
		ep.interp = protocol.NewInterpreter(room, ep.onEvent)
		for c := range ep.clients {
			c.playerID = ""
		}
	}
	return true
}

func (ep *endpoint) connect(c *Client) bool {
	ep.slot.Lock()
	defer ep.slot.Unlock()

	if !ep.bind() {
		return false
	}
	ep.clients[c] = struct{}{}
	n := ep.slot.Attach()
	ep.hub.logger.Debug("client connected",
		zap.String("slot", ep.slot.ID),
		zap.String("room", ep.room.ID),
		zap.Int("connections", n))
	return true
}

func (ep *endpoint) disconnect(c *Client) {
	ep.slot.Lock()
	defer ep.slot.Unlock()

	if _, ok := ep.clients[c]; !ok {
		return
	}
	delete(ep.clients, c)
	c.shut()
	n := ep.slot.Detach()

	room, ok := ep.hub.pool.Occupant(ep.slot.ID)
	if !ok {
		return
	}
	if room == ep.room && c.playerID != "" && room.HasPlayer(c.playerID) {
		ep.broadcast(c, protocol.Simple(protocol.HeaderOpponentDisconnect))
	}
	if n == 0 {
		room.ScheduleEmptyCheck()
	}
	ep.hub.logger.Debug("client disconnected",
		zap.String("slot", ep.slot.ID),
		zap.String("room", room.ID),
		zap.Int("connections", n))
}

func (ep *endpoint) handle(c *Client, raw []byte) {
	ep.slot.Lock()
	defer ep.slot.Unlock()

	if c.closed {
		return
	}
	if !ep.bind() {
		c.shut()
		return
	}

	ep.handling = true
	resp := ep.interp.Handle(raw)
	ep.handling = false
	if resp.Joined != "" {
		c.playerID = resp.Joined
	}
	if resp.EndRoom {
		ep.finished()
		ep.room.ScheduleEmptyCheck()
	}
	if resp.Reflect.Present() {
		c.queue(resp.Reflect)
	}
	if resp.Propagate.Present() {
		ep.broadcast(c, resp.Propagate)
	}

	held := ep.held
	ep.held = nil
	for _, ev := range held {
		ep.deliver(ev)
	}
}

// broadcast sends data to every client except skip. Caller holds the slot
// lock.
func (ep *endpoint) broadcast(skip *Client, data []byte) {
	for c := range ep.clients {
		if c != skip {
			c.queue(data)
		}
	}
}

// onEvent receives session events. Sessions emit with the slot lock held.
func (ep *endpoint) onEvent(ev session.Event) {
	if ep.room == nil || ev.RoomID() != ep.room.ID {
		return
	}
	if ep.handling {
		ep.held = append(ep.held, ev)
		return
	}
	ep.deliver(ev)
}

func (ep *endpoint) deliver(ev session.Event) {
	if _, ok := ev.(session.TimeOut); ok {
		ep.finished()
	}
	if data, ok := protocol.EventPayload(ev); ok {
		ep.broadcast(nil, data)
	}
}

func (ep *endpoint) finished() {
	outcome := ep.room.Outcome()
	ep.hub.logger.Info("match finished",
		zap.String("room", ep.room.ID),
		zap.String("outcome", outcome.Kind.String()),
		zap.String("seat", outcome.Seat.String()),
		zap.Int("moves", ep.room.Moves()))
	if ep.hub.matches != nil {
		ep.hub.matches.MatchFinished(ep.room.ID, outcome, ep.room.Moves())
	}
}

// readPump pumps messages from the WebSocket connection to the endpoint
func (c *Client) readPump() {
	defer func() {
		c.endpoint.disconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.endpoint.hub.logger.Debug("websocket read failed", zap.Error(err))
			}
			break
		}
		c.endpoint.handle(c, message)
	}
}

// writePump pumps messages from the endpoint to the WebSocket connection.
// Each payload is its own text frame.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The endpoint closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
