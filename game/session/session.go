package session

import (
	"sync/atomic"
	"time"

	"github.com/wricardo/connectn/game/engine"
)

// Seat is one of the two playing positions. SeatOne plays Red and moves
// first.
type Seat int

const (
	SeatNone Seat = iota
	SeatOne
	SeatTwo
)

func (s Seat) String() string {
	switch s {
	case SeatOne:
		return "ONE"
	case SeatTwo:
		return "TWO"
	default:
		return "NONE"
	}
}

// Other returns the opposing seat.
func (s Seat) Other() Seat {
	switch s {
	case SeatOne:
		return SeatTwo
	case SeatTwo:
		return SeatOne
	default:
		return SeatNone
	}
}

// Phase is the lifecycle stage of a match.
type Phase int

const (
	PhaseWaiting Phase = iota
	PhaseActive
	PhaseFinished
	PhaseAbandoned
)

func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseActive:
		return "active"
	case PhaseFinished:
		return "finished"
	case PhaseAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// OutcomeKind says how a finished match ended.
type OutcomeKind int

const (
	NoOutcome OutcomeKind = iota
	Won
	Drawn
	TimedOut
	Resigned
)

func (k OutcomeKind) String() string {
	switch k {
	case Won:
		return "win"
	case Drawn:
		return "draw"
	case TimedOut:
		return "timeout"
	case Resigned:
		return "resign"
	default:
		return "none"
	}
}

// Outcome is the terminal result of a match. Seat is the winner for Won,
// and the losing seat for TimedOut and Resigned.
type Outcome struct {
	Kind OutcomeKind
	Seat Seat
}

// RoomParams are the creation parameters of a match.
type RoomParams struct {
	Board     engine.BoardConfig
	BaseTime  time.Duration
	Increment time.Duration
}

// RoomInfo is the public listing entry of a room. It never carries player
// identities or board contents.
type RoomInfo struct {
	ID      string `json:"id"`
	Width   int    `json:"w"`
	Height  int    `json:"h"`
	Connect int    `json:"connect"`
	Seats   int    `json:"numPlayers"`
	Gravity bool   `json:"gravity"`
}

// Snapshot is a consistent copy of a match's visible state.
type Snapshot struct {
	Board     engine.BoardConfig
	Grid      [][]string
	Active    Seat
	Moves     int
	BaseTime  time.Duration
	Increment time.Duration
	Remaining [2]time.Duration
	Phase     Phase
	Outcome   Outcome
}

type seatHolder struct {
	playerID string
	taken    bool
}

// Session is one match bound to one Slot. Except for ID, Info and
// SeatCount, every method must be called with the Slot lock held.
type Session struct {
	ID        string
	SlotID    string
	Params    RoomParams
	CreatedAt time.Time

	slot     *Slot
	clock    Clock
	coinFlip func() bool
	board    *engine.Board

	seats     [3]seatHolder // indexed by Seat
	seatCount atomic.Int32
	active    Seat
	phase     Phase
	outcome   Outcome
	started   bool
	moves     int
	remaining [3]time.Duration
	lastMark  time.Time

	pending    *timerHandle
	emptyCheck *timerHandle
	emptyDelay time.Duration

	sink    EventSink
	reclaim func()
	closed  bool
}

func newSession(id string, slot *Slot, board *engine.Board, params RoomParams, cfg PoolConfig) *Session {
	s := &Session{
		ID:         id,
		SlotID:     slot.ID,
		Params:     params,
		CreatedAt:  cfg.Clock.Now(),
		slot:       slot,
		clock:      cfg.Clock,
		coinFlip:   cfg.CoinFlip,
		board:      board,
		active:     SeatOne,
		phase:      PhaseWaiting,
		emptyDelay: cfg.EmptyCheckDelay,
	}
	s.remaining[SeatOne] = params.BaseTime
	s.remaining[SeatTwo] = params.BaseTime
	return s
}

// Slot returns the slot the session is bound to.
func (s *Session) Slot() *Slot {
	return s.slot
}

// SetEventSink replaces the receiver of session events.
func (s *Session) SetEventSink(sink EventSink) {
	s.sink = sink
}

// Info returns the listing entry. It is safe without the Slot lock.
func (s *Session) Info() RoomInfo {
	return RoomInfo{
		ID:      s.ID,
		Width:   s.Params.Board.Width,
		Height:  s.Params.Board.Height,
		Connect: s.Params.Board.Connect,
		Seats:   s.SeatCount(),
		Gravity: s.Params.Board.Gravity,
	}
}

// SeatCount returns how many seats are filled. It is safe without the Slot
// lock.
func (s *Session) SeatCount() int {
	return int(s.seatCount.Load())
}

// SeatOf returns the seat held by playerID, or SeatNone.
func (s *Session) SeatOf(playerID string) Seat {
	for _, seat := range [2]Seat{SeatOne, SeatTwo} {
		if h := s.seats[seat]; h.taken && h.playerID == playerID {
			return seat
		}
	}
	return SeatNone
}

// Occupant returns the identity in a seat and whether the seat is taken.
func (s *Session) Occupant(seat Seat) (string, bool) {
	if seat != SeatOne && seat != SeatTwo {
		return "", false
	}
	h := s.seats[seat]
	return h.playerID, h.taken
}

// HasPlayer reports whether playerID holds a seat.
func (s *Session) HasPlayer(playerID string) bool {
	return s.SeatOf(playerID) != SeatNone
}

// IsEmpty reports whether no seat has been filled.
func (s *Session) IsEmpty() bool {
	return !s.seats[SeatOne].taken && !s.seats[SeatTwo].taken
}

// Active returns the seat to move, SeatNone once the match is over.
func (s *Session) Active() Seat {
	return s.active
}

// IsActive reports whether playerID holds the seat to move.
func (s *Session) IsActive(playerID string) bool {
	seat := s.SeatOf(playerID)
	return seat != SeatNone && seat == s.active
}

func (s *Session) Phase() Phase { return s.phase }

func (s *Session) Outcome() Outcome { return s.outcome }

func (s *Session) Started() bool { return s.started }

func (s *Session) Moves() int { return s.moves }

// Closed reports whether the pool has deleted the session.
func (s *Session) Closed() bool { return s.closed }

// HasPendingTimeout reports whether a clock timeout is armed.
func (s *Session) HasPendingTimeout() bool {
	return s.pending != nil && !s.pending.cancelled
}

// Remaining returns the stored clock of a seat. The running clock of the
// seat to move is only charged when it moves.
func (s *Session) Remaining(seat Seat) time.Duration {
	if seat != SeatOne && seat != SeatTwo {
		return 0
	}
	return s.remaining[seat]
}

// Snapshot copies the visible match state.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Board:     s.Params.Board,
		Grid:      s.board.Columns(),
		Active:    s.active,
		Moves:     s.moves,
		BaseTime:  s.Params.BaseTime,
		Increment: s.Params.Increment,
		Remaining: [2]time.Duration{s.remaining[SeatOne], s.remaining[SeatTwo]},
		Phase:     s.phase,
		Outcome:   s.outcome,
	}
}

// CanJoin reports whether playerID would be seated by Join.
func (s *Session) CanJoin(playerID string) bool {
	if playerID == "" || s.closed || s.phase != PhaseWaiting {
		return false
	}
	if s.HasPlayer(playerID) {
		return false
	}
	return !s.seats[SeatOne].taken || !s.seats[SeatTwo].taken
}

// Join seats playerID. The first arrival gets a random seat. Filling the
// second seat starts the match and the clock of SeatOne.
func (s *Session) Join(playerID string) bool {
	if !s.CanJoin(playerID) {
		return false
	}

	var seat Seat
	switch {
	case s.IsEmpty():
		seat = SeatOne
		if s.coinFlip() {
			seat = SeatTwo
		}
	case s.seats[SeatOne].taken:
		seat = SeatTwo
	default:
		seat = SeatOne
	}

	s.seats[seat] = seatHolder{playerID: playerID, taken: true}
	if s.seatCount.Add(1) == 2 {
		s.start()
	}
	return true
}

func (s *Session) start() {
	s.started = true
	s.phase = PhaseActive
	s.active = SeatOne
	s.startClock(SeatOne)
	s.emit(GameStarted{Room: s.ID})
}

// MakeMove applies a move for playerID. It returns Invalid without any
// change when the match is not running or playerID is not the seat to move.
func (s *Session) MakeMove(column int, row engine.Row, playerID string) engine.Result {
	if !s.started || s.phase != PhaseActive {
		return engine.Invalid
	}
	mover := s.SeatOf(playerID)
	if mover == SeatNone || mover != s.active {
		return engine.Invalid
	}

	res := s.board.Place(column, row)
	switch res {
	case engine.Valid:
		s.cancelPending()
		s.stopClock(mover)
		s.active = mover.Other()
		s.moves++
		s.startClock(s.active)
	case engine.Win:
		s.cancelPending()
		s.stopClock(mover)
		s.finish(Outcome{Kind: Won, Seat: mover})
	case engine.Draw:
		s.cancelPending()
		s.stopClock(mover)
		s.finish(Outcome{Kind: Drawn})
	}
	return res
}

// Resign ends the match for playerID's seat. It reports false when
// playerID is not seated or the match is already over.
func (s *Session) Resign(playerID string) bool {
	seat := s.SeatOf(playerID)
	if seat == SeatNone || s.phase == PhaseFinished || s.phase == PhaseAbandoned {
		return false
	}

	s.cancelPending()
	if s.phase == PhaseActive && seat == s.active {
		s.stopClock(seat)
	}
	s.finish(Outcome{Kind: Resigned, Seat: seat})
	return true
}

// ScheduleEmptyCheck restarts the idle timer. When it fires the session
// emits EmptyCheck and the pool reclaims the room if its slot has no
// connections.
func (s *Session) ScheduleEmptyCheck() {
	if s.closed {
		return
	}
	s.emptyCheck.cancel()
	s.emptyCheck = s.schedule(s.emptyDelay, s.checkEmpty)
}

func (s *Session) checkEmpty() {
	s.emit(EmptyCheck{Room: s.ID})
	if s.reclaim != nil {
		s.reclaim()
	}
}

func (s *Session) finish(o Outcome) {
	s.phase = PhaseFinished
	s.outcome = o
	s.active = SeatNone
}

func (s *Session) timeOut(seat Seat) {
	s.pending = nil
	s.remaining[seat] = 0
	s.started = false
	s.finish(Outcome{Kind: TimedOut, Seat: seat})
	s.emit(TimeOut{Room: s.ID, Seat: seat})
}

// startClock marks the turn start and arms the timeout for seat.
func (s *Session) startClock(seat Seat) {
	s.lastMark = s.clock.Now()
	s.pending = s.schedule(s.remaining[seat], func() { s.timeOut(seat) })
}

// stopClock charges seat for its turn, crediting one increment.
func (s *Session) stopClock(seat Seat) {
	elapsed := s.clock.Now().Sub(s.lastMark)
	s.remaining[seat] -= elapsed - s.Params.Increment
}

func (s *Session) cancelPending() {
	s.pending.cancel()
	s.pending = nil
}

// schedule arms fire after d. The callback takes the Slot lock and does
// nothing if the handle was cancelled or the session closed meanwhile.
func (s *Session) schedule(d time.Duration, fire func()) *timerHandle {
	h := &timerHandle{}
	h.timer = s.clock.AfterFunc(d, func() {
		s.slot.Lock()
		defer s.slot.Unlock()
		if h.cancelled || s.closed {
			return
		}
		h.cancelled = true
		fire()
	})
	return h
}

func (s *Session) emit(ev Event) {
	if s.sink != nil {
		s.sink(ev)
	}
}

// close stops every timer. Only the pool calls it, after unregistering.
func (s *Session) close() {
	if s.closed {
		return
	}
	s.closed = true
	s.cancelPending()
	s.emptyCheck.cancel()
	s.emptyCheck = nil
	if s.phase != PhaseFinished {
		s.phase = PhaseAbandoned
		s.active = SeatNone
	}
}
