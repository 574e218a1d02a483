// Package nats publishes lobby events to a NATS server.
//
// Subjects, relative to a configurable prefix:
//
//	<prefix>.room.created    a room entered the pool
//	<prefix>.room.deleted    a room left the pool
//	<prefix>.match.finished  a match ended by win, draw, resignation or timeout
//
// Bodies are JSON. Publishing is fire-and-forget on core NATS: a lobby
// event that cannot be delivered is logged and dropped, it never blocks a
// room. A Publisher without a connection (see Nop) discards everything,
// which is what the server uses when no NATS URL is configured.
package nats
