package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/connectn/game/engine"
	"go.uber.org/zap"
)

var testEpoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) sink(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *eventRecorder) timeouts() []TimeOut {
	var out []TimeOut
	for _, ev := range r.all() {
		if to, ok := ev.(TimeOut); ok {
			out = append(out, to)
		}
	}
	return out
}

func classicParams(base, inc time.Duration) RoomParams {
	return RoomParams{
		Board:     engine.BoardConfig{Width: 7, Height: 6, Connect: 4, Gravity: true},
		BaseTime:  base,
		Increment: inc,
	}
}

// newTestSession creates a session on a manual clock whose coin flip always
// gives the first arrival SeatOne.
func newTestSession(t *testing.T, params RoomParams) (*Session, *ManualClock, *eventRecorder) {
	t.Helper()
	clock := NewManualClock(testEpoch)
	pool := NewPool(PoolConfig{
		MaxRooms:        1,
		Clock:           clock,
		CoinFlip:        func() bool { return false },
		EmptyCheckDelay: time.Hour,
	}, zap.NewNop())

	s, err := pool.CreateRoom(params)
	require.NoError(t, err)

	rec := &eventRecorder{}
	locked(s, func() { s.SetEventSink(rec.sink) })
	return s, clock, rec
}

func locked(s *Session, f func()) {
	s.Slot().Lock()
	defer s.Slot().Unlock()
	f()
}

func join(t *testing.T, s *Session, ids ...string) {
	t.Helper()
	for _, id := range ids {
		var ok bool
		locked(s, func() { ok = s.Join(id) })
		require.True(t, ok, "join %s", id)
	}
}

func move(s *Session, column int, playerID string) engine.Result {
	var res engine.Result
	locked(s, func() { res = s.MakeMove(column, engine.NoRow(), playerID) })
	return res
}

func TestSession_Join(t *testing.T) {
	s, _, rec := newTestSession(t, classicParams(time.Minute, 0))

	locked(s, func() {
		assert.False(t, s.Join(""), "empty identity")
		assert.True(t, s.Join("alice"))
		assert.False(t, s.Join("alice"), "already seated")
		assert.False(t, s.Started())
		assert.Equal(t, PhaseWaiting, s.Phase())
		assert.False(t, s.HasPendingTimeout())

		assert.True(t, s.Join("bob"))
		assert.False(t, s.Join("carol"), "both seats taken")
		assert.False(t, s.CanJoin("carol"))

		assert.True(t, s.Started())
		assert.Equal(t, PhaseActive, s.Phase())
		assert.Equal(t, SeatOne, s.Active())
		assert.Equal(t, SeatOne, s.SeatOf("alice"))
		assert.Equal(t, SeatTwo, s.SeatOf("bob"))
		assert.Equal(t, SeatNone, s.SeatOf("carol"))
		assert.True(t, s.HasPendingTimeout())
	})

	assert.Equal(t, 2, s.SeatCount())
	assert.Equal(t, []Event{GameStarted{Room: s.ID}}, rec.all())
}

func TestSession_JoinCoinFlip(t *testing.T) {
	for _, flip := range []bool{false, true} {
		clock := NewManualClock(testEpoch)
		pool := NewPool(PoolConfig{Clock: clock, CoinFlip: func() bool { return flip }}, nil)
		s, err := pool.CreateRoom(classicParams(time.Minute, 0))
		require.NoError(t, err)

		join(t, s, "first", "second")

		locked(s, func() {
			if flip {
				assert.Equal(t, SeatTwo, s.SeatOf("first"))
				assert.Equal(t, SeatOne, s.SeatOf("second"))
			} else {
				assert.Equal(t, SeatOne, s.SeatOf("first"))
				assert.Equal(t, SeatTwo, s.SeatOf("second"))
			}
			p1, ok := s.Occupant(SeatOne)
			assert.True(t, ok)
			assert.NotEmpty(t, p1)
		})
	}
}

func TestSession_MakeMoveGating(t *testing.T) {
	s, _, _ := newTestSession(t, classicParams(time.Minute, 0))

	join(t, s, "alice")
	assert.Equal(t, engine.Invalid, move(s, 1, "alice"), "not started")

	join(t, s, "bob")
	assert.Equal(t, engine.Invalid, move(s, 1, "bob"), "not bob's turn")
	assert.Equal(t, engine.Invalid, move(s, 1, "mallory"), "not seated")

	locked(s, func() {
		assert.Zero(t, s.Moves())
		assert.Equal(t, SeatOne, s.Active())
	})

	assert.Equal(t, engine.Valid, move(s, 1, "alice"))
	locked(s, func() {
		assert.Equal(t, 1, s.Moves())
		assert.Equal(t, SeatTwo, s.Active())
		assert.True(t, s.IsActive("bob"))
	})

	assert.Equal(t, engine.Invalid, move(s, 9, "bob"), "out of range column")
	locked(s, func() {
		assert.Equal(t, 1, s.Moves())
		assert.Equal(t, SeatTwo, s.Active(), "invalid moves do not switch seats")
	})
}

func TestSession_FischerIncrement(t *testing.T) {
	s, clock, _ := newTestSession(t, classicParams(time.Minute, 2*time.Second))
	join(t, s, "alice", "bob")

	clock.Advance(5 * time.Second)
	require.Equal(t, engine.Valid, move(s, 1, "alice"))

	clock.Advance(500 * time.Millisecond)
	require.Equal(t, engine.Valid, move(s, 2, "bob"))

	locked(s, func() {
		// charged elapsed minus one increment
		assert.Equal(t, 57*time.Second, s.Remaining(SeatOne))
		// faster than the increment gains time
		assert.Equal(t, 61500*time.Millisecond, s.Remaining(SeatTwo))

		snap := s.Snapshot()
		assert.Equal(t, [2]time.Duration{57 * time.Second, 61500 * time.Millisecond}, snap.Remaining)
		assert.Equal(t, 2, snap.Moves)
	})
}

func TestSession_TimeoutFiresOnce(t *testing.T) {
	s, clock, rec := newTestSession(t, classicParams(1000*time.Millisecond, 0))
	join(t, s, "alice", "bob")

	clock.Advance(999 * time.Millisecond)
	assert.Empty(t, rec.timeouts())
	locked(s, func() { assert.Equal(t, PhaseActive, s.Phase()) })

	clock.Advance(time.Millisecond)
	assert.Equal(t, []TimeOut{{Room: s.ID, Seat: SeatOne}}, rec.timeouts())

	locked(s, func() {
		assert.Equal(t, PhaseFinished, s.Phase())
		assert.Equal(t, Outcome{Kind: TimedOut, Seat: SeatOne}, s.Outcome())
		assert.False(t, s.Started())
		assert.False(t, s.HasPendingTimeout())
		assert.Equal(t, SeatNone, s.Active())
	})

	clock.Advance(time.Hour)
	assert.Len(t, rec.timeouts(), 1)
	assert.Equal(t, engine.Invalid, move(s, 1, "alice"))
}

func TestSession_MoveCancelsPendingTimeout(t *testing.T) {
	s, clock, rec := newTestSession(t, classicParams(time.Second, 0))
	join(t, s, "alice", "bob")

	clock.Advance(900 * time.Millisecond)
	require.Equal(t, engine.Valid, move(s, 1, "alice"))

	// alice's original deadline passes without firing
	clock.Advance(200 * time.Millisecond)
	assert.Empty(t, rec.timeouts())

	clock.Advance(800 * time.Millisecond)
	assert.Equal(t, []TimeOut{{Room: s.ID, Seat: SeatTwo}}, rec.timeouts())
	locked(s, func() {
		assert.Equal(t, Outcome{Kind: TimedOut, Seat: SeatTwo}, s.Outcome())
	})
}

func TestSession_WinStopsClock(t *testing.T) {
	s, clock, rec := newTestSession(t, classicParams(time.Minute, 0))
	join(t, s, "alice", "bob")

	for i := 1; i <= 3; i++ {
		require.Equal(t, engine.Valid, move(s, 4, "alice"))
		require.Equal(t, engine.Valid, move(s, i, "bob"))
	}
	assert.Equal(t, engine.Win, move(s, 4, "alice"))

	locked(s, func() {
		assert.Equal(t, PhaseFinished, s.Phase())
		assert.Equal(t, Outcome{Kind: Won, Seat: SeatOne}, s.Outcome())
		assert.False(t, s.HasPendingTimeout())
		assert.True(t, s.Started())
		assert.Equal(t, 6, s.Moves())
	})

	clock.Advance(24 * time.Hour)
	assert.Empty(t, rec.timeouts())
	assert.Equal(t, engine.Invalid, move(s, 5, "bob"))
}

func TestSession_Draw(t *testing.T) {
	params := RoomParams{
		Board:    engine.BoardConfig{Width: 2, Height: 2, Connect: 3, Gravity: true},
		BaseTime: time.Minute,
	}
	s, clock, rec := newTestSession(t, params)
	join(t, s, "alice", "bob")

	require.Equal(t, engine.Valid, move(s, 1, "alice"))
	require.Equal(t, engine.Valid, move(s, 2, "bob"))
	require.Equal(t, engine.Valid, move(s, 1, "alice"))
	assert.Equal(t, engine.Draw, move(s, 2, "bob"))

	locked(s, func() {
		assert.Equal(t, Outcome{Kind: Drawn}, s.Outcome())
		assert.False(t, s.HasPendingTimeout())
	})
	clock.Advance(time.Hour)
	assert.Empty(t, rec.timeouts())
}

func TestSession_Resign(t *testing.T) {
	s, clock, rec := newTestSession(t, classicParams(time.Second, 0))
	join(t, s, "alice", "bob")

	locked(s, func() {
		assert.False(t, s.Resign("mallory"))
		assert.True(t, s.Resign("bob"))
		assert.False(t, s.Resign("alice"), "already over")

		assert.Equal(t, Outcome{Kind: Resigned, Seat: SeatTwo}, s.Outcome())
		assert.False(t, s.HasPendingTimeout())
	})

	clock.Advance(time.Hour)
	assert.Empty(t, rec.timeouts())
}

func TestSession_ResignChargesActiveClock(t *testing.T) {
	s, clock, _ := newTestSession(t, classicParams(time.Minute, 0))
	join(t, s, "alice", "bob")

	clock.Advance(10 * time.Second)
	locked(s, func() {
		require.True(t, s.Resign("alice"))
		assert.Equal(t, 50*time.Second, s.Remaining(SeatOne))
		assert.Equal(t, time.Minute, s.Remaining(SeatTwo))
	})
}

func TestSession_FreePlacementMalformed(t *testing.T) {
	params := RoomParams{
		Board:    engine.BoardConfig{Width: 3, Height: 3, Connect: 3},
		BaseTime: time.Minute,
	}
	s, _, _ := newTestSession(t, params)
	join(t, s, "alice", "bob")

	locked(s, func() {
		assert.Equal(t, engine.Malformed, s.MakeMove(1, engine.NoRow(), "alice"))
		assert.Equal(t, SeatOne, s.Active())
		assert.Equal(t, engine.Valid, s.MakeMove(1, engine.RowAt(3), "alice"))
		assert.Equal(t, "R", s.Snapshot().Grid[0][2])
	})
}

func TestSession_EmptyCheck(t *testing.T) {
	clock := NewManualClock(testEpoch)
	pool := NewPool(PoolConfig{MaxRooms: 2, Clock: clock}, nil)

	idle, err := pool.CreateRoom(classicParams(time.Minute, 0))
	require.NoError(t, err)
	busy, err := pool.CreateRoom(classicParams(time.Minute, 0))
	require.NoError(t, err)

	rec := &eventRecorder{}
	locked(idle, func() { idle.SetEventSink(rec.sink) })
	locked(busy, func() {
		busy.SetEventSink(rec.sink)
		busy.Slot().Attach()
	})

	clock.Advance(DefaultEmptyCheckDelay - time.Second)
	assert.Empty(t, rec.all())
	assert.Equal(t, 2, pool.Count())

	clock.Advance(time.Second)
	assert.ElementsMatch(t, []Event{EmptyCheck{Room: idle.ID}, EmptyCheck{Room: busy.ID}}, rec.all())

	_, ok := pool.Get(idle.ID)
	assert.False(t, ok, "room without connections is reclaimed")
	_, ok = pool.Get(busy.ID)
	assert.True(t, ok, "room with a connection survives")

	locked(idle, func() {
		assert.True(t, idle.Closed())
		assert.Equal(t, PhaseAbandoned, idle.Phase())
	})
}

func TestSession_ScheduleEmptyCheckRestarts(t *testing.T) {
	clock := NewManualClock(testEpoch)
	pool := NewPool(PoolConfig{Clock: clock, EmptyCheckDelay: 10 * time.Second}, nil)
	s, err := pool.CreateRoom(classicParams(time.Minute, 0))
	require.NoError(t, err)

	clock.Advance(8 * time.Second)
	locked(s, func() { s.ScheduleEmptyCheck() })

	clock.Advance(8 * time.Second)
	_, ok := pool.Get(s.ID)
	assert.True(t, ok, "restarted timer has not fired yet")

	clock.Advance(2 * time.Second)
	_, ok = pool.Get(s.ID)
	assert.False(t, ok)
	assert.Zero(t, clock.Pending())
}

func TestSession_DeleteCancelsTimers(t *testing.T) {
	clock := NewManualClock(testEpoch)
	pool := NewPool(PoolConfig{Clock: clock}, nil)
	s, err := pool.CreateRoom(classicParams(time.Second, 0))
	require.NoError(t, err)

	rec := &eventRecorder{}
	locked(s, func() { s.SetEventSink(rec.sink) })
	join(t, s, "alice", "bob")

	require.True(t, pool.Reclaim(s.ID))
	assert.Zero(t, clock.Pending())

	clock.Advance(time.Hour)
	assert.Equal(t, []Event{GameStarted{Room: s.ID}}, rec.all())
	locked(s, func() {
		assert.False(t, s.CanJoin("carol"))
		assert.Equal(t, engine.Invalid, s.MakeMove(1, engine.NoRow(), "alice"))
	})
}

func TestSession_RealClockTimeout(t *testing.T) {
	pool := NewPool(PoolConfig{CoinFlip: func() bool { return false }}, nil)
	s, err := pool.CreateRoom(classicParams(50*time.Millisecond, 0))
	require.NoError(t, err)

	fired := make(chan TimeOut, 2)
	locked(s, func() {
		s.SetEventSink(func(ev Event) {
			if to, ok := ev.(TimeOut); ok {
				fired <- to
			}
		})
	})
	join(t, s, "alice", "bob")

	select {
	case to := <-fired:
		assert.Equal(t, SeatOne, to.Seat)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout event not delivered")
	}

	select {
	case <-fired:
		t.Fatal("timeout delivered twice")
	case <-time.After(100 * time.Millisecond):
	}
	pool.Close()
}

func TestSeatAndPhaseStrings(t *testing.T) {
	assert.Equal(t, "ONE", SeatOne.String())
	assert.Equal(t, "TWO", SeatTwo.String())
	assert.Equal(t, "NONE", SeatNone.String())
	assert.Equal(t, SeatTwo, SeatOne.Other())
	assert.Equal(t, SeatNone, SeatNone.Other())
	assert.Equal(t, "abandoned", PhaseAbandoned.String())
	assert.Equal(t, "timeout", TimedOut.String())
}
