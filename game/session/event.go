package session

// Event is emitted by a Session to its EventSink. The set of events is
// closed: GameStarted, TimeOut and EmptyCheck.
type Event interface {
	RoomID() string
	isEvent()
}

// GameStarted is emitted once, when the second seat fills.
type GameStarted struct {
	Room string
}

// TimeOut is emitted when the seat to move runs out of time.
type TimeOut struct {
	Room string
	Seat Seat
}

// EmptyCheck is emitted when the room's idle timer fires.
type EmptyCheck struct {
	Room string
}

func (e GameStarted) RoomID() string { return e.Room }
func (e TimeOut) RoomID() string { return e.Room }
func (e EmptyCheck) RoomID() string { return e.Room }

func (GameStarted) isEvent() {}
func (TimeOut) isEvent() {}
func (EmptyCheck) isEvent() {}

// EventSink receives session events with the Slot lock held.
type EventSink func(Event)
