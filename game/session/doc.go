// Package session provides match lifecycle and room registry management.
//
// The session package implements:
//   - Seating two players with a coin flip for the first seat
//   - A Fischer-increment chess clock with cancellable timeouts
//   - Move application on top of the engine board
//   - Resignation and timeout termination
//   - A bounded pool of rooms bound 1:1 to transport slots
//   - Reclaiming rooms that have no open connections
//
// Core Types:
//
// Session is one match. Pool owns every live Session and the fixed set of
// Slots they are bound to. A Slot carries the per-room lock and the number
// of open transport connections.
//
// Locking:
//
// There are two lock tiers. The pool lock guards the registry and the free
// slot set and is held only inside CreateRoom and DeleteRoom. Each Slot lock
// guards the state of the Session bound to it. A Slot lock may be held while
// taking the pool lock, never the other way around.
//
// Session methods do not lock. Callers hold the Slot lock around them, the
// same way the transport does for every inbound message. Timer callbacks
// take the Slot lock themselves before touching session state, and a handle
// cancelled under that lock never fires.
//
// Usage:
//
//	pool := session.NewPool(session.PoolConfig{MaxRooms: 5}, logger)
//
//	sess, err := pool.CreateRoom(session.RoomParams{
//		Board:     engine.BoardConfig{Width: 7, Height: 6, Connect: 4, Gravity: true},
//		BaseTime:  5 * time.Minute,
//		Increment: 3 * time.Second,
//	})
//	if errors.Is(err, session.ErrCapacity) {
//		// all slots are taken
//	}
//
//	slot := sess.Slot()
//	slot.Lock()
//	sess.Join(playerID)
//	slot.Unlock()
//
// Events:
//
// GameStarted, TimeOut and EmptyCheck are delivered to the EventSink
// installed with SetEventSink, always with the Slot lock held.
package session
