package session

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/wricardo/connectn/game/engine"
	"go.uber.org/zap"
)

var (
	ErrCapacity      = errors.New("room capacity reached")
	ErrInvalidParams = errors.New("invalid room parameters")
	ErrRoomNotFound  = errors.New("room not found")
)

const (
	DefaultMaxRooms        = 5
	DefaultEmptyCheckDelay = 50 * time.Second

	// MaxBaseTime and MaxIncrement bound a room's clock.
	MaxBaseTime  = 24 * time.Hour
	MaxIncrement = time.Hour
)

// Observer is told about rooms entering and leaving the pool. It is
// called outside the pool lock.
type Observer interface {
	RoomCreated(info RoomInfo)
	RoomDeleted(id string)
}

// PoolConfig configures a Pool. Zero values take the defaults.
type PoolConfig struct {
	MaxRooms        int
	Slots           int // defaults to MaxRooms
	EmptyCheckDelay time.Duration
	MaxDimension    int
	Clock           Clock
	CoinFlip        func() bool
	Observer        Observer
}

func (c PoolConfig) withDefaults() PoolConfig {
	if c.MaxRooms <= 0 {
		c.MaxRooms = DefaultMaxRooms
	}
	if c.Slots <= 0 {
		c.Slots = c.MaxRooms
	}
	if c.EmptyCheckDelay <= 0 {
		c.EmptyCheckDelay = DefaultEmptyCheckDelay
	}
	if c.MaxDimension <= 0 {
		c.MaxDimension = engine.DefaultMaxLength
	}
	if c.Clock == nil {
		c.Clock = SystemClock
	}
	if c.CoinFlip == nil {
		c.CoinFlip = func() bool { return rand.IntN(2) == 1 }
	}
	return c
}

// Pool is the bounded registry of live sessions and the slots they occupy.
type Pool struct {
	cfg    PoolConfig
	logger *zap.Logger

	// slots and slotOrder are fixed at construction.
	slots     map[string]*Slot
	slotOrder []string

	mu       sync.RWMutex
	sessions map[string]*Session
	occupied map[string]*Session // slot id -> session
	free     []*Slot
}

// NewPool creates a pool and its slots.
func NewPool(cfg PoolConfig, logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()

	p := &Pool{
		cfg:      cfg,
		logger:   logger,
		slots:    make(map[string]*Slot, cfg.Slots),
		sessions: make(map[string]*Session),
		occupied: make(map[string]*Session),
	}

	for i := 0; i < cfg.Slots; i++ {
		slot := newSlot(NewID())
		p.slots[slot.ID] = slot
		p.slotOrder = append(p.slotOrder, slot.ID)
	}
	// free is a stack; push in reverse so the first slot is handed out first
	for i := len(p.slotOrder) - 1; i >= 0; i-- {
		p.free = append(p.free, p.slots[p.slotOrder[i]])
	}

	return p
}

// Config returns the effective configuration.
func (p *Pool) Config() PoolConfig {
	return p.cfg
}

// ValidateParams checks room parameters without creating anything.
func (p *Pool) ValidateParams(params RoomParams) error {
	if err := engine.ValidateBoardConfig(params.Board, p.cfg.MaxDimension); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if params.BaseTime <= 0 {
		return fmt.Errorf("%w: base time must be positive", ErrInvalidParams)
	}
	if params.BaseTime > MaxBaseTime {
		return fmt.Errorf("%w: base time must not exceed %s", ErrInvalidParams, MaxBaseTime)
	}
	if params.Increment < 0 {
		return fmt.Errorf("%w: increment must not be negative", ErrInvalidParams)
	}
	if params.Increment > MaxIncrement {
		return fmt.Errorf("%w: increment must not exceed %s", ErrInvalidParams, MaxIncrement)
	}
	// a clock gains at most one increment per cell on the board
	cells := int64(params.Board.Width) * int64(params.Board.Height)
	if params.Increment > 0 && cells > (math.MaxInt64-int64(params.BaseTime))/int64(params.Increment) {
		return fmt.Errorf("%w: clock would overflow on a %dx%d board", ErrInvalidParams, params.Board.Width, params.Board.Height)
	}
	return nil
}

// CreateRoom builds a session on a free slot. It fails with ErrCapacity
// when MaxRooms sessions are live or no slot is free.
func (p *Pool) CreateRoom(params RoomParams) (*Session, error) {
	if err := p.ValidateParams(params); err != nil {
		return nil, err
	}
	board, err := engine.NewBoardWithLimit(params.Board, p.cfg.MaxDimension)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	p.mu.Lock()
	if len(p.sessions) >= p.cfg.MaxRooms || len(p.free) == 0 {
		p.mu.Unlock()
		return nil, ErrCapacity
	}

	slot := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]

	s := newSession(NewID(), slot, board, params, p.cfg)
	s.reclaim = func() { p.reclaimIfIdle(s) }
	// not yet visible to anyone, so the slot lock is not needed
	s.ScheduleEmptyCheck()

	p.occupied[slot.ID] = s
	p.sessions[s.ID] = s
	p.mu.Unlock()

	p.logger.Info("room created",
		zap.String("room", s.ID),
		zap.String("slot", slot.ID),
		zap.Int("w", params.Board.Width),
		zap.Int("h", params.Board.Height),
		zap.Int("connect", params.Board.Connect),
		zap.Bool("gravity", params.Board.Gravity),
	)
	if p.cfg.Observer != nil {
		p.cfg.Observer.RoomCreated(s.Info())
	}
	return s, nil
}

// DeleteRoom unregisters a session and returns its slot to the free set.
// It is the only path that frees a slot and reports false for an unknown
// id. Callers that can race with traffic on the room hold its Slot lock;
// Reclaim does that for callers that do not.
func (p *Pool) DeleteRoom(id string) bool {
	p.mu.Lock()
	s, ok := p.sessions[id]
	if !ok {
		p.mu.Unlock()
		return false
	}
	delete(p.sessions, id)
	if occupant, ok := p.occupied[s.SlotID]; ok && occupant == s {
		delete(p.occupied, s.SlotID)
		p.free = append(p.free, s.slot)
	}
	p.mu.Unlock()

	s.close()

	p.logger.Info("room deleted", zap.String("room", id), zap.String("slot", s.SlotID))
	if p.cfg.Observer != nil {
		p.cfg.Observer.RoomDeleted(id)
	}
	return true
}

// Reclaim deletes a room while holding its Slot lock.
func (p *Pool) Reclaim(id string) bool {
	s, ok := p.Get(id)
	if !ok {
		return false
	}
	s.slot.Lock()
	defer s.slot.Unlock()
	return p.DeleteRoom(id)
}

// reclaimIfIdle runs from the idle timer with the Slot lock held.
func (p *Pool) reclaimIfIdle(s *Session) {
	if n := s.slot.Connections(); n > 0 {
		p.logger.Debug("room still connected", zap.String("room", s.ID), zap.Int("connections", n))
		return
	}
	if p.DeleteRoom(s.ID) {
		p.logger.Info("reclaimed idle room", zap.String("room", s.ID))
	}
}

// Get looks up a live session.
func (p *Pool) Get(id string) (*Session, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.sessions[id]
	return s, ok
}

// Occupant returns the session bound to a slot.
func (p *Pool) Occupant(slotID string) (*Session, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.occupied[slotID]
	return s, ok
}

// Slot returns a slot by id. Slots never change after NewPool.
func (p *Pool) Slot(slotID string) (*Slot, bool) {
	s, ok := p.slots[slotID]
	return s, ok
}

// Slots returns every slot in creation order.
func (p *Pool) Slots() []*Slot {
	out := make([]*Slot, 0, len(p.slotOrder))
	for _, id := range p.slotOrder {
		out = append(out, p.slots[id])
	}
	return out
}

// Listing returns a discovery snapshot ordered by creation time.
func (p *Pool) Listing() []RoomInfo {
	p.mu.RLock()
	sessions := make([]*Session, 0, len(p.sessions))
	for _, s := range p.sessions {
		sessions = append(sessions, s)
	}
	p.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})

	out := make([]RoomInfo, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Info())
	}
	return out
}

// Count returns the number of live sessions.
func (p *Pool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.sessions)
}

// FreeSlots returns the number of unassigned slots.
func (p *Pool) FreeSlots() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.free)
}

// Close deletes every live room.
func (p *Pool) Close() {
	p.mu.RLock()
	ids := make([]string, 0, len(p.sessions))
	for id := range p.sessions {
		ids = append(ids, id)
	}
	p.mu.RUnlock()

	for _, id := range ids {
		p.Reclaim(id)
	}
}
