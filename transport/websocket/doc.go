// Package websocket provides the per-slot WebSocket transport for the
// Connect-N room server.
//
// Every pool slot has one endpoint, served at /ws/{slotID}. The endpoint
// keeps the set of connections on that slot and a protocol interpreter
// bound to the room currently occupying it. When the pool hands the slot
// to a new room the interpreter is rebuilt on the next connect or message.
//
// Message Protocol:
//
// Clients send JSON messages such as
//
//	{"playerID": "...", "joining": true}
//	{"playerID": "...", "move": 4}
//
// and receive one JSON payload per text frame, tagged by "header". A
// response is either reflected to the sender, propagated to every other
// connection on the slot, or both. Session events (GAME_STARTED,
// P1_TIME_OUT, P2_TIME_OUT) go to every connection. An event raised by a
// message, such as GAME_STARTED on the second join, follows that message's
// reply.
//
// Connection Lifecycle:
//
//  1. Client opens /ws/{slotID}; a slot without a room closes it at once
//  2. Client joins with its player id and is bound to that seat
//  3. Moves, chat and resignations flow through the interpreter
//  4. Closing a seated connection tells the opponent (OPPONENT_DISCONNECT)
//  5. When the last connection leaves, the room's empty check is re-armed
//
// Concurrency:
//
// All endpoint state is guarded by the slot lock, the same lock that
// serializes the room's moves and timer callbacks. Sends never block: a
// client whose buffer is full is dropped.
//
// Usage:
//
//	hub := websocket.NewHub(pool, publisher, logger)
//	router.HandleFunc("/ws/{slotID}", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, mux.Vars(r)["slotID"])
//	})
package websocket
