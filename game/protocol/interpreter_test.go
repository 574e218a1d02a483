package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/connectn/game/engine"
	"github.com/wricardo/connectn/game/session"
)

type fixture struct {
	pool    *session.Pool
	clock   *session.ManualClock
	session *session.Session
	interp  *Interpreter
	events  []session.Event
}

func newFixture(t *testing.T, board engine.BoardConfig) *fixture {
	t.Helper()
	f := &fixture{clock: session.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))}
	f.pool = session.NewPool(session.PoolConfig{
		Clock:    f.clock,
		CoinFlip: func() bool { return false },
	}, nil)

	s, err := f.pool.CreateRoom(session.RoomParams{Board: board, BaseTime: time.Minute, Increment: time.Second})
	require.NoError(t, err)
	f.session = s

	s.Slot().Lock()
	f.interp = NewInterpreter(s, func(ev session.Event) { f.events = append(f.events, ev) })
	s.Slot().Unlock()
	return f
}

func classic() engine.BoardConfig {
	return engine.BoardConfig{Width: 7, Height: 6, Connect: 4, Gravity: true}
}

func (f *fixture) send(t *testing.T, msg string) Response {
	t.Helper()
	f.session.Slot().Lock()
	defer f.session.Slot().Unlock()
	return f.interp.Handle([]byte(msg))
}

func decodeMap(t *testing.T, p Payload) map[string]any {
	t.Helper()
	require.True(t, p.Present(), "expected a payload")
	var m map[string]any
	require.NoError(t, json.Unmarshal(p, &m))
	return m
}

func header(t *testing.T, p Payload) string {
	t.Helper()
	return decodeMap(t, p)["header"].(string)
}

func TestHandle_Malformed(t *testing.T) {
	f := newFixture(t, classic())

	for _, msg := range []string{
		`not json`,
		`{}`,
		`{"move": 3}`,
		`{"playerID": 7}`,
		`{"playerID": "a", "unknown": true}`,
		`{"playerID": "a", "move": "four"}`,
		`{"playerID": "a"} garbage`,
		`{"playerID": "a"}}`,
		`{"playerID": "a"}{"playerID": "b"}`,
	} {
		resp := f.send(t, msg)
		assert.Equal(t, "MALFORMED", header(t, resp.Reflect), msg)
		assert.False(t, resp.Propagate.Present(), msg)
	}
	assert.Zero(t, f.session.SeatCount())
}

func TestDecode(t *testing.T) {
	in, err := Decode([]byte("  {\"playerID\": \"a\", \"move\": 3}\n"))
	require.NoError(t, err)
	assert.Equal(t, "a", *in.PlayerID)
	assert.Equal(t, 3, *in.Move)

	_, err = Decode([]byte(`{"playerID": "a"} 7`))
	assert.ErrorIs(t, err, errTrailingData)

	_, err = Decode([]byte(`{"move": 1}`))
	assert.ErrorIs(t, err, errMissingPlayerID)
}

func TestHandle_Join(t *testing.T) {
	f := newFixture(t, classic())

	resp := f.send(t, `{"playerID": "alice", "joining": true}`)
	assert.Equal(t, "JOINED", header(t, resp.Reflect))
	assert.Equal(t, "OPPONENT_JOINED", header(t, resp.Propagate))
	assert.Equal(t, "alice", resp.Joined)
	assert.Empty(t, f.events)

	resp = f.send(t, `{"playerID": "alice", "joining": true}`)
	assert.Equal(t, "REJECTED", header(t, resp.Reflect))
	assert.False(t, resp.Propagate.Present())
	assert.Empty(t, resp.Joined)

	resp = f.send(t, `{"playerID": "bob", "joining": false}`)
	assert.Equal(t, "REJECTED", header(t, resp.Reflect))

	resp = f.send(t, `{"playerID": "bob", "joining": true}`)
	assert.Equal(t, "JOINED", header(t, resp.Reflect))
	assert.Equal(t, []session.Event{session.GameStarted{Room: f.session.ID}}, f.events)

	resp = f.send(t, `{"playerID": "carol", "joining": true}`)
	assert.Equal(t, "REJECTED", header(t, resp.Reflect))
}

func TestHandle_UnseatedDropped(t *testing.T) {
	f := newFixture(t, classic())
	f.send(t, `{"playerID": "alice", "joining": true}`)

	for _, msg := range []string{
		`{"playerID": "eve", "move": 1}`,
		`{"playerID": "eve", "message": "hi"}`,
		`{"playerID": "eve", "resigns": true}`,
		`{"playerID": "eve"}`,
	} {
		resp := f.send(t, msg)
		assert.False(t, resp.Reflect.Present(), msg)
		assert.False(t, resp.Propagate.Present(), msg)
	}
}

func TestHandle_MoveOutOfTurn(t *testing.T) {
	f := newFixture(t, classic())
	f.send(t, `{"playerID": "alice", "joining": true}`)
	f.send(t, `{"playerID": "bob", "joining": true}`)

	resp := f.send(t, `{"playerID": "bob", "move": 2}`)
	m := decodeMap(t, resp.Reflect)
	assert.Equal(t, "MOVE_RESULT", m["header"])
	assert.Equal(t, "Malformed", m["result"])
	assert.EqualValues(t, 2, m["move"])
	assert.False(t, resp.Propagate.Present())
	assert.False(t, resp.EndRoom)

	board := m["boardData"].(map[string]any)
	assert.EqualValues(t, 0, board["madeMoves"])
	assert.Equal(t, "ONE", board["activePlayer"])
}

func TestHandle_MoveValidAndInvalid(t *testing.T) {
	f := newFixture(t, classic())
	f.send(t, `{"playerID": "alice", "joining": true}`)
	f.send(t, `{"playerID": "bob", "joining": true}`)

	resp := f.send(t, `{"playerID": "alice", "move": 4}`)
	reflect := decodeMap(t, resp.Reflect)
	propagate := decodeMap(t, resp.Propagate)
	assert.Equal(t, "MOVE_RESULT", reflect["header"])
	assert.Equal(t, "OPPONENT_MOVE", propagate["header"])
	assert.Equal(t, "Valid", reflect["result"])
	assert.Equal(t, reflect["boardData"], propagate["boardData"], "both sides see the post-move board")
	assert.False(t, resp.EndRoom)

	board := reflect["boardData"].(map[string]any)
	assert.Equal(t, "TWO", board["activePlayer"])
	assert.EqualValues(t, 1, board["madeMoves"])
	column := board["board"].([]any)[3].([]any)
	assert.Equal(t, "R", column[0])
	assert.Equal(t, " ", column[1])

	resp = f.send(t, `{"playerID": "bob", "move": 0}`)
	assert.Equal(t, "Invalid", decodeMap(t, resp.Reflect)["result"])
	assert.False(t, resp.Propagate.Present(), "invalid moves are not propagated")
	assert.False(t, resp.EndRoom)
}

func TestHandle_FreePlacementRow(t *testing.T) {
	f := newFixture(t, engine.BoardConfig{Width: 3, Height: 3, Connect: 3})
	f.send(t, `{"playerID": "alice", "joining": true}`)
	f.send(t, `{"playerID": "bob", "joining": true}`)

	// a missing row is reported to both sides and changes nothing
	resp := f.send(t, `{"playerID": "alice", "move": 2}`)
	assert.Equal(t, "Malformed", decodeMap(t, resp.Reflect)["result"])
	propagate := decodeMap(t, resp.Propagate)
	assert.Equal(t, "OPPONENT_MOVE", propagate["header"])
	assert.Equal(t, "Malformed", propagate["result"])
	assert.False(t, resp.EndRoom)
	board := propagate["boardData"].(map[string]any)
	assert.EqualValues(t, 0, board["madeMoves"])
	assert.Equal(t, "ONE", board["activePlayer"])

	resp = f.send(t, `{"playerID": "alice", "move": 2, "moveRow": 3}`)
	m := decodeMap(t, resp.Reflect)
	assert.Equal(t, "Valid", m["result"])
	column := m["boardData"].(map[string]any)["board"].([]any)[1].([]any)
	assert.Equal(t, "R", column[2])
}

func TestHandle_WinEndsRoom(t *testing.T) {
	f := newFixture(t, classic())
	f.send(t, `{"playerID": "alice", "joining": true}`)
	f.send(t, `{"playerID": "bob", "joining": true}`)

	for _, col := range []string{"1", "2", "3"} {
		require.Equal(t, "Valid", decodeMap(t, f.send(t, `{"playerID": "alice", "move": 4}`).Reflect)["result"])
		require.Equal(t, "Valid", decodeMap(t, f.send(t, `{"playerID": "bob", "move": `+col+`}`).Reflect)["result"])
	}

	resp := f.send(t, `{"playerID": "alice", "move": 4}`)
	assert.Equal(t, "Win", decodeMap(t, resp.Reflect)["result"])
	assert.Equal(t, "Win", decodeMap(t, resp.Propagate)["result"])
	assert.True(t, resp.EndRoom)

	board := decodeMap(t, resp.Reflect)["boardData"].(map[string]any)
	assert.Equal(t, "NONE", board["activePlayer"])
}

func TestHandle_Message(t *testing.T) {
	f := newFixture(t, classic())
	f.send(t, `{"playerID": "alice", "joining": true}`)

	resp := f.send(t, `{"playerID": "alice", "message": "good luck"}`)
	assert.False(t, resp.Reflect.Present())
	m := decodeMap(t, resp.Propagate)
	assert.Equal(t, "MESSAGE", m["header"])
	assert.Equal(t, "good luck", m["message"])
}

func TestHandle_Resign(t *testing.T) {
	f := newFixture(t, classic())
	f.send(t, `{"playerID": "alice", "joining": true}`)
	f.send(t, `{"playerID": "bob", "joining": true}`)

	resp := f.send(t, `{"playerID": "bob", "resigns": false}`)
	assert.Equal(t, "INFORMATION", header(t, resp.Reflect), "resigns=false is an information query")

	resp = f.send(t, `{"playerID": "bob", "resigns": true}`)
	assert.False(t, resp.Reflect.Present())
	assert.Equal(t, "OPPONENT_RESIGN", header(t, resp.Propagate))
	assert.True(t, resp.EndRoom)

	f.session.Slot().Lock()
	assert.Equal(t, session.Outcome{Kind: session.Resigned, Seat: session.SeatTwo}, f.session.Outcome())
	f.session.Slot().Unlock()

	resp = f.send(t, `{"playerID": "alice", "resigns": true}`)
	assert.False(t, resp.Reflect.Present())
	assert.False(t, resp.Propagate.Present())
}

func TestHandle_Information(t *testing.T) {
	f := newFixture(t, classic())
	f.send(t, `{"playerID": "alice", "joining": true}`)

	m := decodeMap(t, f.send(t, `{"playerID": "alice"}`).Reflect)
	assert.Equal(t, "INFORMATION", m["header"])
	assert.Equal(t, "ONE", m["role"])

	board := m["boardData"].(map[string]any)
	assert.EqualValues(t, 7, board["w"])
	assert.EqualValues(t, 6, board["h"])
	assert.EqualValues(t, 4, board["connect"])
	assert.Equal(t, true, board["gravity"])
	assert.EqualValues(t, 60000, board["baseTimeMs"])
	assert.EqualValues(t, 1000, board["incrementMs"])
	assert.EqualValues(t, 60000, board["p1RemainingMs"])
	assert.EqualValues(t, 60000, board["p2RemainingMs"])
	assert.Len(t, board["board"], 7)
}

func TestHandle_DispatchPriority(t *testing.T) {
	f := newFixture(t, classic())
	f.send(t, `{"playerID": "alice", "joining": true}`)

	// join wins over move
	resp := f.send(t, `{"playerID": "bob", "joining": true, "move": 1}`)
	assert.Equal(t, "JOINED", header(t, resp.Reflect))

	// move wins over message and resign
	resp = f.send(t, `{"playerID": "alice", "move": 1, "message": "x", "resigns": true}`)
	assert.Equal(t, "MOVE_RESULT", header(t, resp.Reflect))

	// message wins over resign
	resp = f.send(t, `{"playerID": "bob", "message": "x", "resigns": true}`)
	assert.Equal(t, "MESSAGE", header(t, resp.Propagate))

	f.session.Slot().Lock()
	assert.Equal(t, session.PhaseActive, f.session.Phase())
	f.session.Slot().Unlock()
}

func TestEventPayload(t *testing.T) {
	tests := []struct {
		ev     session.Event
		header string
		ok     bool
	}{
		{session.GameStarted{Room: "r"}, "GAME_STARTED", true},
		{session.TimeOut{Room: "r", Seat: session.SeatOne}, "P1_TIME_OUT", true},
		{session.TimeOut{Room: "r", Seat: session.SeatTwo}, "P2_TIME_OUT", true},
		{session.EmptyCheck{Room: "r"}, "", false},
	}

	for _, tt := range tests {
		p, ok := EventPayload(tt.ev)
		assert.Equal(t, tt.ok, ok)
		if tt.ok {
			assert.Equal(t, tt.header, header(t, p))
		}
	}
}
