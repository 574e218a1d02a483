package nats

import (
	"encoding/json"
	"fmt"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/wricardo/connectn/game/session"
	"go.uber.org/zap"
)

const (
	SubjectRoomCreated   = "room.created"
	SubjectRoomDeleted   = "room.deleted"
	SubjectMatchFinished = "match.finished"
)

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// RoomCreatedEvent is the body of <prefix>.room.created.
type RoomCreatedEvent struct {
	session.RoomInfo
	At time.Time `json:"at"`
}

// RoomDeletedEvent is the body of <prefix>.room.deleted.
type RoomDeletedEvent struct {
	ID string    `json:"id"`
	At time.Time `json:"at"`
}

// MatchFinishedEvent is the body of <prefix>.match.finished.
type MatchFinishedEvent struct {
	ID      string    `json:"id"`
	Outcome string    `json:"outcome"`
	Seat    string    `json:"seat"`
	Moves   int       `json:"moves"`
	At      time.Time `json:"at"`
}

// Publisher sends lobby events. It satisfies session.Observer and
// websocket.MatchObserver.
type Publisher struct {
	conn   Conn
	prefix string
	logger *zap.Logger
	now    func() time.Time
}

// Connect dials url and returns a publisher using prefix for its
// subjects. The connection reconnects forever.
func Connect(url, prefix string, logger *zap.Logger) (*Publisher, error) {
	conn, err := natsgo.Connect(url,
		natsgo.Name("connectn"),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(time.Second),
		natsgo.PingInterval(20*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return NewPublisher(conn, prefix, logger), nil
}

// NewPublisher wraps an established connection. A nil conn publishes
// nothing.
func NewPublisher(conn Conn, prefix string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		conn:   conn,
		prefix: prefix,
		logger: logger,
		now:    time.Now,
	}
}

// Nop returns a publisher that discards every event.
func Nop() *Publisher {
	return NewPublisher(nil, "", nil)
}

// Enabled reports whether the publisher has a connection.
func (p *Publisher) Enabled() bool {
	return p.conn != nil
}

// Subject returns the full subject for name.
func (p *Publisher) Subject(name string) string {
	if p.prefix == "" {
		return name
	}
	return p.prefix + "." + name
}

// RoomCreated publishes a room.created event.
func (p *Publisher) RoomCreated(info session.RoomInfo) {
	p.publish(SubjectRoomCreated, RoomCreatedEvent{RoomInfo: info, At: p.now()})
}

// RoomDeleted publishes a room.deleted event.
func (p *Publisher) RoomDeleted(id string) {
	p.publish(SubjectRoomDeleted, RoomDeletedEvent{ID: id, At: p.now()})
}

// MatchFinished publishes a match.finished event.
func (p *Publisher) MatchFinished(roomID string, outcome session.Outcome, moves int) {
	p.publish(SubjectMatchFinished, MatchFinishedEvent{
		ID:      roomID,
		Outcome: outcome.Kind.String(),
		Seat:    outcome.Seat.String(),
		Moves:   moves,
		At:      p.now(),
	})
}

func (p *Publisher) publish(name string, v any) {
	if p.conn == nil {
		return
	}
	subject := p.Subject(name)
	data, err := json.Marshal(v)
	if err != nil {
		p.logger.Error("failed to encode lobby event", zap.String("subject", subject), zap.Error(err))
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Warn("failed to publish lobby event", zap.String("subject", subject), zap.Error(err))
	}
}

// Close drains the connection.
func (p *Publisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}
