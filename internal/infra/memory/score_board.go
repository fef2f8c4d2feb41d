package memory

import (
	"context"
	"sort"
	"sync"

	"trivia-service/internal/domain"
)

// ScoreBoard keeps finished games per bank in memory.
type ScoreBoard struct {
	mu      sync.RWMutex
	entries map[string][]domain.ScoreEntry
}

func NewScoreBoard() *ScoreBoard {
	return &ScoreBoard{entries: make(map[string][]domain.ScoreEntry)}
}

func (b *ScoreBoard) Record(_ context.Context, entry domain.ScoreEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[entry.BankID] = append(b.entries[entry.BankID], entry)
	return nil
}

func (b *ScoreBoard) Top(_ context.Context, bankID string, limit int) ([]domain.ScoreEntry, error) {
	b.mu.RLock()
	entries := make([]domain.ScoreEntry, len(b.entries[bankID]))
	copy(entries, b.entries[bankID])
	b.mu.RUnlock()

	SortEntries(entries)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// SortEntries orders by score desc, then faster finish, then who finished first.
func SortEntries(entries []domain.ScoreEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].ElapsedSeconds != entries[j].ElapsedSeconds {
			return entries[i].ElapsedSeconds < entries[j].ElapsedSeconds
		}
		return entries[i].FinishedAt.Before(entries[j].FinishedAt)
	})
}
