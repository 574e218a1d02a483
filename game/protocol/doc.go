// Package protocol turns inbound room messages into session transitions
// and the outbound payloads that report them.
//
// An Interpreter is bound to one session. Handle decodes a single JSON
// message and returns a Response with an optional payload for the sender
// (reflect) and one for every other connection on the slot (propagate).
//
// Dispatch priority when several fields are present is join, move, chat
// message, resign, and finally the information query. Messages from a
// player who holds no seat are dropped silently, except for join.
//
// Handle must be called with the session's slot lock held.
package protocol
