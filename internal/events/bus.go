// Package events fans game events out to connected clients. Every game is
// its own topic with a monotonic sequence number, and every subscriber
// gets its own queue and delivery goroutine so a slow client never holds
// up the game or its neighbours.
package events

import (
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// SnapshotType is the event type carrying a full game state. Snapshots
// supersede each other, which makes them safe to coalesce when a
// subscriber falls behind.
const SnapshotType = "stateSnapshot"

// ErrSlowConsumer is reported by a subscriber that was dropped because its
// queue hit the hard limit.
var ErrSlowConsumer = errors.New("events: subscriber too slow")

// Event is one entry in a game's event stream. Seq increases by one per
// published event and never repeats within a game.
type Event struct {
	GameID  string `json:"gameId"`
	Seq     uint64 `json:"seq"`
	Type    string `json:"event"`
	Payload any    `json:"payload"`
}

// Config bounds the per-subscriber queue.
type Config struct {
	// SoftLimit is the queue length at which consecutive snapshots are
	// coalesced into the newest one.
	SoftLimit int
	// HardLimit is the queue length at which the subscriber is dropped.
	HardLimit int
	// DrainTimeout bounds how long a subscriber of a closed game may
	// take to flush its queue before delivery is cut off.
	DrainTimeout time.Duration
}

// DefaultConfig returns the limits used when none are given.
func DefaultConfig() Config {
	return Config{SoftLimit: 64, HardLimit: 256, DrainTimeout: time.Second}
}

// Bus routes published events to per-game subscribers.
type Bus struct {
	cfg    Config
	logger *log.Logger

	mu    sync.Mutex
	games map[string]*gameTopic
}

type gameTopic struct {
	seq  uint64
	subs map[*Subscriber]struct{}
}

// NewBus creates a bus with the given limits.
func NewBus(cfg Config, logger *log.Logger) *Bus {
	if cfg.SoftLimit <= 0 || cfg.HardLimit <= cfg.SoftLimit {
		cfg = DefaultConfig()
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = DefaultConfig().DrainTimeout
	}
	return &Bus{
		cfg:    cfg,
		logger: logger.WithPrefix("events"),
		games:  make(map[string]*gameTopic),
	}
}

// Publish appends an event to the game's stream and hands it to every
// subscriber. It returns the sequence number assigned to the event and
// never blocks on slow subscribers.
func (b *Bus) Publish(gameID, typ string, payload any) uint64 {
	b.mu.Lock()
	topic := b.games[gameID]
	if topic == nil {
		topic = &gameTopic{subs: make(map[*Subscriber]struct{})}
		b.games[gameID] = topic
	}
	topic.seq++
	ev := Event{GameID: gameID, Seq: topic.seq, Type: typ, Payload: payload}
	subs := make([]*Subscriber, 0, len(topic.subs))
	for s := range topic.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		if !s.enqueue(ev) {
			b.logger.Warn("dropping slow subscriber",
				"game", gameID, "subscriber", s.id, "seq", ev.Seq)
			b.remove(s)
		}
	}
	return ev.Seq
}

// Subscribe attaches a new subscriber to a game's stream. Delivery starts
// with the next published event.
func (b *Bus) Subscribe(gameID, subscriberID string) *Subscriber {
	s := &Subscriber{
		GameID: gameID,
		id:     subscriberID,
		bus:    b,
		soft:   b.cfg.SoftLimit,
		hard:   b.cfg.HardLimit,
		drain:  b.cfg.DrainTimeout,
		ch:     make(chan Event),
		wake:   make(chan struct{}, 1),
		quit:   make(chan struct{}),
	}

	b.mu.Lock()
	topic := b.games[gameID]
	if topic == nil {
		topic = &gameTopic{subs: make(map[*Subscriber]struct{})}
		b.games[gameID] = topic
	}
	topic.subs[s] = struct{}{}
	b.mu.Unlock()

	go s.pump()
	b.logger.Debug("subscriber attached", "game", gameID, "subscriber", subscriberID)
	return s
}

// CloseGame tears down a game's topic. Subscribers receive everything
// already queued, then their channels close.
func (b *Bus) CloseGame(gameID string) {
	b.mu.Lock()
	topic := b.games[gameID]
	delete(b.games, gameID)
	b.mu.Unlock()
	if topic == nil {
		return
	}
	for s := range topic.subs {
		s.shutdown(true, nil)
	}
}

func (b *Bus) remove(s *Subscriber) {
	b.mu.Lock()
	if topic := b.games[s.GameID]; topic != nil {
		delete(topic.subs, s)
	}
	b.mu.Unlock()
}

// Subscriber is one attached consumer of a game's event stream.
type Subscriber struct {
	GameID string
	id     string

	bus        *Bus
	soft, hard int
	drain      time.Duration
	ch         chan Event
	wake       chan struct{}
	quit       chan struct{}
	quitOnce   sync.Once

	mu      sync.Mutex
	pending []Event
	closed  bool
	err     error
}

// closeQuit cuts delivery off. Safe to call from any of the teardown
// paths; only the first call closes the channel.
func (s *Subscriber) closeQuit() {
	s.quitOnce.Do(func() { close(s.quit) })
}

// Events returns the delivery channel. It closes when the subscriber is
// detached; check Err afterwards to tell a drop from a normal close.
func (s *Subscriber) Events() <-chan Event {
	return s.ch
}

// Err reports why the subscriber stopped. It is ErrSlowConsumer after a
// backpressure drop and nil otherwise. Only valid once Events is closed.
func (s *Subscriber) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close detaches the subscriber. Queued events are discarded.
func (s *Subscriber) Close() {
	s.bus.remove(s)
	s.shutdown(false, nil)
}

// enqueue adds an event to the pending queue. It reports false when the
// subscriber hit the hard limit and must be removed.
func (s *Subscriber) enqueue(ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}

	// Behind and another snapshot arrives: the queued one is stale, so
	// the newest replaces it.
	if ev.Type == SnapshotType && len(s.pending) >= s.soft {
		if n := len(s.pending); n > 0 && s.pending[n-1].Type == SnapshotType {
			s.pending[n-1] = ev
			return true
		}
	}

	if len(s.pending) >= s.hard {
		s.closed = true
		s.err = ErrSlowConsumer
		s.closeQuit()
		return false
	}

	s.pending = append(s.pending, ev)
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

func (s *Subscriber) shutdown(drain bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.err = err
	if drain {
		select {
		case s.wake <- struct{}{}:
		default:
		}
		// A consumer that stops reading must not pin the pump forever;
		// past the deadline the rest of the queue is forfeit.
		time.AfterFunc(s.drain, s.closeQuit)
		return
	}
	s.closeQuit()
}

// pump moves events from the pending queue to the delivery channel, one
// goroutine per subscriber.
func (s *Subscriber) pump() {
	defer close(s.ch)
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			if s.closed {
				s.mu.Unlock()
				return
			}
			s.mu.Unlock()
			select {
			case <-s.wake:
			case <-s.quit:
				return
			}
			continue
		}
		ev := s.pending[0]
		s.pending = s.pending[1:]
		if len(s.pending) == 0 {
			s.pending = nil
		}
		s.mu.Unlock()

		select {
		case s.ch <- ev:
		case <-s.quit:
			return
		}
	}
}
