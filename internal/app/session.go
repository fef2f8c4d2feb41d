package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"trivia-service/internal/domain"
	"trivia-service/internal/game"
)

// Session wraps one controller. All controller calls happen under mu.
type Session struct {
	id     string
	bankID string
	player string
	now    func() time.Time

	mu          sync.Mutex
	ctrl        *game.Controller
	gen         uint64
	stopTicker  context.CancelFunc
	subscribers map[chan domain.Event]struct{}
	closed      bool
}

// NewSession is exported for infrastructure layers and tests that need to seed sessions.
func NewSession(id string, b domain.Bank, player string, rules domain.Rules) *Session {
	return newSession(id, b, player, rules, time.Now)
}

func newSession(id string, b domain.Bank, player string, rules domain.Rules, now func() time.Time) *Session {
	s := &Session{
		id:          id,
		bankID:      b.ID,
		player:      player,
		now:         now,
		subscribers: make(map[chan domain.Event]struct{}),
	}
	s.ctrl = game.NewController(b, rules, s.broadcastLocked)
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// BankID returns the id of the bank the session plays.
func (s *Session) BankID() string { return s.bankID }

// Phase reports the controller phase.
func (s *Session) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.Phase()
}

func (s *Session) start() (domain.Snapshot, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopTicker != nil {
		s.stopTicker()
		s.stopTicker = nil
	}
	s.gen++
	s.ctrl.Start()
	return s.ctrl.Snapshot(), s.gen
}

func (s *Session) setTicker(gen uint64, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.closed {
		cancel()
		return
	}
	s.stopTicker = cancel
}

func (s *Session) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// tick is ignored with ErrInvalidOperation when gen belongs to an earlier playthrough.
func (s *Session) tick(gen uint64) (domain.Snapshot, *domain.ScoreEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return s.ctrl.Snapshot(), nil, fmt.Errorf("stale tick: %w", domain.ErrInvalidOperation)
	}
	return s.applyLocked(s.ctrl.Tick)
}

func (s *Session) submit(choice int) (domain.Snapshot, *domain.ScoreEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(func() error { return s.ctrl.Submit(choice) })
}

// applyLocked runs op and returns a score entry when op finished the game.
func (s *Session) applyLocked(op func() error) (domain.Snapshot, *domain.ScoreEntry, error) {
	before := s.ctrl.Phase()
	if err := op(); err != nil {
		return s.ctrl.Snapshot(), nil, err
	}
	snap := s.ctrl.Snapshot()
	if before == domain.PhaseFinished || snap.Phase != domain.PhaseFinished {
		return snap, nil, nil
	}
	if s.stopTicker != nil {
		s.stopTicker()
		s.stopTicker = nil
	}
	res, _ := s.ctrl.Result()
	return snap, &domain.ScoreEntry{
		SessionID:      s.id,
		BankID:         s.bankID,
		Player:         s.player,
		Score:          res.Score,
		ElapsedSeconds: res.ElapsedSeconds,
		Reason:         res.Reason,
		FinishedAt:     s.now(),
	}, nil
}

func (s *Session) snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.Snapshot()
}

func (s *Session) subscribe() (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, 8)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	initial := domain.Event{Type: domain.EventSnapshot, Snapshot: s.ctrl.Snapshot()}
	ch <- initial
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopTicker != nil {
		s.stopTicker()
		s.stopTicker = nil
	}
	s.closed = true
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// broadcastLocked is the controller's notify hook; the controller only runs under mu.
func (s *Session) broadcastLocked(event domain.Event) {
	for ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// Drop the oldest queued event so slow clients never block the session.
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}
