package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"trivia-service/internal/bank"
	"trivia-service/internal/domain"
)

// SessionRepository abstracts where live game sessions are registered (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(id string) (*Session, bool)
	Delete(id string)
}

// BankRepository loads question banks (from cache/backing store).
type BankRepository interface {
	GetBank(ctx context.Context, bankID string) (domain.Bank, error)
}

// ScoreRepository keeps finished games per bank.
type ScoreRepository interface {
	Record(ctx context.Context, entry domain.ScoreEntry) error
	Top(ctx context.Context, bankID string, limit int) ([]domain.ScoreEntry, error)
}

// Option customizes a GameService.
type Option func(*GameService)

// WithRules overrides the default scoring and timing rules.
func WithRules(rules domain.Rules) Option {
	return func(s *GameService) { s.rules = rules }
}

// WithTickInterval sets the countdown cadence. Zero disables the built-in
// ticker; the caller then drives Tick itself.
func WithTickInterval(d time.Duration) Option {
	return func(s *GameService) { s.tick = d }
}

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *GameService) { s.now = now }
}

// WithIDGenerator replaces uuid session ids.
func WithIDGenerator(fn func() string) Option {
	return func(s *GameService) { s.newID = fn }
}

// GameService hosts quiz sessions: it owns their tick cadence and serializes
// calls into each session's controller.
type GameService struct {
	sessions SessionRepository
	banks    BankRepository
	scores   ScoreRepository
	rules    domain.Rules
	tick     time.Duration
	now      func() time.Time
	newID    func() string
}

func NewGameService(sessions SessionRepository, banks BankRepository, scores ScoreRepository, opts ...Option) *GameService {
	s := &GameService{
		sessions: sessions,
		banks:    banks,
		scores:   scores,
		rules:    domain.DefaultRules(),
		tick:     time.Second,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bank returns a validated question bank.
func (s *GameService) Bank(ctx context.Context, bankID string) (domain.Bank, error) {
	b, err := s.banks.GetBank(ctx, bankID)
	if err != nil {
		return domain.Bank{}, err
	}
	if err := bank.Validate(b); err != nil {
		return domain.Bank{}, err
	}
	return b, nil
}

// Create loads a bank and registers an idle session for player.
func (s *GameService) Create(ctx context.Context, bankID, player string) (string, domain.Snapshot, error) {
	b, err := s.Bank(ctx, bankID)
	if err != nil {
		return "", domain.Snapshot{}, err
	}
	if strings.TrimSpace(player) == "" {
		player = "anonymous"
	}

	id := s.newID()
	session := newSession(id, b, player, s.rules, s.now)
	s.sessions.Put(session)
	log.Printf("game %s created on bank %s for %s", id, b.ID, player)
	return id, session.snapshot(), nil
}

// Start begins or restarts a session and, unless disabled, its ticker.
func (s *GameService) Start(_ context.Context, id string) (domain.Snapshot, error) {
	session, ok := s.sessions.Get(id)
	if !ok {
		return domain.Snapshot{}, domain.ErrSessionNotFound
	}
	snap, gen := session.start()
	if s.tick > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		session.setTicker(gen, cancel)
		go s.tickLoop(ctx, session, gen)
	}
	return snap, nil
}

// Submit scores choice for the current question of session id.
func (s *GameService) Submit(_ context.Context, id string, choice int) (domain.Snapshot, error) {
	session, ok := s.sessions.Get(id)
	if !ok {
		return domain.Snapshot{}, domain.ErrSessionNotFound
	}
	snap, finished, err := session.submit(choice)
	if err != nil {
		return snap, err
	}
	s.record(finished)
	return snap, nil
}

// Tick advances the countdown of session id by one second.
func (s *GameService) Tick(_ context.Context, id string) (domain.Snapshot, error) {
	session, ok := s.sessions.Get(id)
	if !ok {
		return domain.Snapshot{}, domain.ErrSessionNotFound
	}
	snap, finished, err := session.tick(session.generation())
	if err != nil {
		return snap, err
	}
	s.record(finished)
	return snap, nil
}

// Snapshot returns the current view of session id.
func (s *GameService) Snapshot(_ context.Context, id string) (domain.Snapshot, error) {
	session, ok := s.sessions.Get(id)
	if !ok {
		return domain.Snapshot{}, domain.ErrSessionNotFound
	}
	return session.snapshot(), nil
}

// Subscribe returns a channel that receives session events.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *GameService) Subscribe(_ context.Context, id string) (<-chan domain.Event, func(), error) {
	session, ok := s.sessions.Get(id)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// Close stops the session's ticker, closes its subscribers and forgets it.
func (s *GameService) Close(_ context.Context, id string) {
	session, ok := s.sessions.Get(id)
	if !ok {
		return
	}
	session.close()
	s.sessions.Delete(id)
}

// Leaderboard returns the best finished games on a bank.
func (s *GameService) Leaderboard(ctx context.Context, bankID string, limit int) ([]domain.ScoreEntry, error) {
	if s.scores == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	entries, err := s.scores.Top(ctx, bankID, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard %s: %w", bankID, err)
	}
	return entries, nil
}

func (s *GameService) tickLoop(ctx context.Context, session *Session, gen uint64) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap, finished, err := session.tick(gen)
			if err != nil {
				return
			}
			s.record(finished)
			if snap.Phase != domain.PhaseActive {
				return
			}
		}
	}
}

func (s *GameService) record(entry *domain.ScoreEntry) {
	if entry == nil {
		return
	}
	log.Printf("game %s finished: %s with %d points in %ds", entry.SessionID, entry.Reason, entry.Score, entry.ElapsedSeconds)
	if s.scores == nil {
		return
	}
	if err := s.scores.Record(context.Background(), *entry); err != nil {
		log.Printf("record score for %s: %v", entry.SessionID, err)
	}
}
