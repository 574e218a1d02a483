package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/wricardo/connectn/game/engine"
	"github.com/wricardo/connectn/game/session"
)

var (
	errMissingPlayerID = errors.New("playerID is required")
	errTrailingData    = errors.New("unexpected data after message")
)

// Response is the outcome of one inbound message.
type Response struct {
	Reflect   Payload
	Propagate Payload
	// EndRoom is set when the message ended the match.
	EndRoom bool
	// Joined is the player id seated by this message, empty otherwise.
	Joined string
}

// Interpreter dispatches inbound messages to one session.
type Interpreter struct {
	session *session.Session
}

// NewInterpreter binds an interpreter to s and routes the session's events
// to emit. Caller holds the slot lock.
func NewInterpreter(s *session.Session, emit session.EventSink) *Interpreter {
	s.SetEventSink(emit)
	return &Interpreter{session: s}
}

// Session returns the bound session.
func (i *Interpreter) Session() *session.Session {
	return i.session
}

// Decode parses an inbound message. Unknown fields, a missing playerID
// and anything after the object are errors.
func Decode(raw []byte) (Inbound, error) {
	var in Inbound
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return Inbound{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Inbound{}, errTrailingData
	}
	if in.PlayerID == nil {
		return Inbound{}, errMissingPlayerID
	}
	return in, nil
}

// Handle processes one raw message.
func (i *Interpreter) Handle(raw []byte) Response {
	in, err := Decode(raw)
	if err != nil {
		return Response{Reflect: Simple(HeaderMalformed)}
	}

	s := i.session
	playerID := *in.PlayerID

	if in.Joining != nil {
		if *in.Joining && s.Join(playerID) {
			return Response{
				Reflect:   Simple(HeaderJoined),
				Propagate: Simple(HeaderOpponentJoined),
				Joined:    playerID,
			}
		}
		return Response{Reflect: Simple(HeaderRejected)}
	}

	if !s.HasPlayer(playerID) {
		return Response{}
	}

	switch {
	case in.Move != nil:
		return i.move(*in.Move, in.MoveRow, playerID)

	case in.Message != nil:
		return Response{Propagate: encode(MessageResponse{Message: *in.Message, Header: HeaderMessage})}

	case in.Resigns != nil && *in.Resigns:
		if !s.Resign(playerID) {
			return Response{}
		}
		return Response{Propagate: Simple(HeaderOpponentResign), EndRoom: true}
	}

	return Response{Reflect: encode(InformationResponse{
		Role:      s.SeatOf(playerID).String(),
		BoardData: NewBoardData(s.Snapshot()),
		Header:    HeaderInformation,
	})}
}

func (i *Interpreter) move(column int, moveRow *int, playerID string) Response {
	s := i.session

	if !s.IsActive(playerID) {
		return Response{Reflect: encode(MoveResultResponse{
			Move:      column,
			Result:    engine.Malformed.String(),
			BoardData: NewBoardData(s.Snapshot()),
			Header:    HeaderMoveResult,
		})}
	}

	row := engine.NoRow()
	if moveRow != nil {
		row = engine.RowAt(*moveRow)
	}
	res := s.MakeMove(column, row, playerID)

	reflect := MoveResultResponse{
		Move:      column,
		Result:    res.String(),
		BoardData: NewBoardData(s.Snapshot()),
		Header:    HeaderMoveResult,
	}
	if res == engine.Invalid {
		return Response{Reflect: encode(reflect)}
	}

	propagate := reflect
	propagate.Header = HeaderOpponentMove
	return Response{
		Reflect:   encode(reflect),
		Propagate: encode(propagate),
		EndRoom:   res.Terminal(),
	}
}
