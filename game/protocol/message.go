package protocol

import (
	"encoding/json"
	"time"

	"github.com/wricardo/connectn/game/session"
)

// Header discriminates outbound payloads.
type Header string

const (
	HeaderMalformed          Header = "MALFORMED"
	HeaderInformation        Header = "INFORMATION"
	HeaderMoveResult         Header = "MOVE_RESULT"
	HeaderOpponentMove       Header = "OPPONENT_MOVE"
	HeaderOpponentResign     Header = "OPPONENT_RESIGN"
	HeaderMessage            Header = "MESSAGE"
	HeaderOpponentJoined     Header = "OPPONENT_JOINED"
	HeaderJoined             Header = "JOINED"
	HeaderRejected           Header = "REJECTED"
	HeaderGameStarted        Header = "GAME_STARTED"
	HeaderP1TimeOut          Header = "P1_TIME_OUT"
	HeaderP2TimeOut          Header = "P2_TIME_OUT"
	HeaderOpponentDisconnect Header = "OPPONENT_DISCONNECT"
)

// Inbound is one client message. Only one optional field is expected per
// message.
type Inbound struct {
	PlayerID *string `json:"playerID"`
	Move     *int    `json:"move,omitempty"`
	MoveRow  *int    `json:"moveRow,omitempty"`
	Message  *string `json:"message,omitempty"`
	Resigns  *bool   `json:"resigns,omitempty"`
	Joining  *bool   `json:"joining,omitempty"`
}

// BoardData is the board snapshot sent to clients. Board holds w columns
// of h cells; index 0 of a column is row 1.
type BoardData struct {
	W             int        `json:"w"`
	H             int        `json:"h"`
	Connect       int        `json:"connect"`
	Board         [][]string `json:"board"`
	ActivePlayer  string     `json:"activePlayer"`
	MadeMoves     int        `json:"madeMoves"`
	Gravity       bool       `json:"gravity"`
	BaseTimeMs    int64      `json:"baseTimeMs"`
	IncrementMs   int64      `json:"incrementMs"`
	P1RemainingMs int64      `json:"p1RemainingMs"`
	P2RemainingMs int64      `json:"p2RemainingMs"`
}

// NewBoardData converts a session snapshot to its wire form.
func NewBoardData(snap session.Snapshot) BoardData {
	return BoardData{
		W:             snap.Board.Width,
		H:             snap.Board.Height,
		Connect:       snap.Board.Connect,
		Board:         snap.Grid,
		ActivePlayer:  snap.Active.String(),
		MadeMoves:     snap.Moves,
		Gravity:       snap.Board.Gravity,
		BaseTimeMs:    millis(snap.BaseTime),
		IncrementMs:   millis(snap.Increment),
		P1RemainingMs: millis(snap.Remaining[0]),
		P2RemainingMs: millis(snap.Remaining[1]),
	}
}

func millis(d time.Duration) int64 {
	return d.Milliseconds()
}

type SimpleResponse struct {
	Header Header `json:"header"`
}

type MoveResultResponse struct {
	Move      int       `json:"move"`
	Result    string    `json:"result"`
	BoardData BoardData `json:"boardData"`
	Header    Header    `json:"header"`
}

type InformationResponse struct {
	Role      string    `json:"role"`
	BoardData BoardData `json:"boardData"`
	Header    Header    `json:"header"`
}

type MessageResponse struct {
	Message string `json:"message"`
	Header  Header `json:"header"`
}

// Payload is an encoded outbound message. An empty Payload means none.
type Payload []byte

// Present reports whether there is something to send.
func (p Payload) Present() bool {
	return len(p) > 0
}

func encode(v any) Payload {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// Simple encodes a header-only payload.
func Simple(h Header) Payload {
	return encode(SimpleResponse{Header: h})
}

// EventPayload returns the broadcast payload for a session event. EmptyCheck
// has none.
func EventPayload(ev session.Event) (Payload, bool) {
	switch e := ev.(type) {
	case session.GameStarted:
		return Simple(HeaderGameStarted), true
	case session.TimeOut:
		if e.Seat == session.SeatOne {
			return Simple(HeaderP1TimeOut), true
		}
		return Simple(HeaderP2TimeOut), true
	case session.EmptyCheck:
		return nil, false
	default:
		return nil, false
	}
}
